package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomActivityEvent is emitted after a content event has been stored and
// fanned out to a room.
type RoomActivityEvent struct {
	RoomID     int64     `json:"room_id"`
	AccountID  string    `json:"account_id"`
	Kind       string    `json:"kind"`
	ElementID  string    `json:"element_id,omitempty"`
	Recipients int       `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event definitions emitted by the relay.
var (
	RoomActivityV1 = helper.EventDefinition[RoomActivityEvent](
		"relay",
		"RoomActivity",
		"v1",
	)
)
