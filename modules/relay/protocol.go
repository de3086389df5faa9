package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	domain "github.com/example/whiteboard-relay/domain/canvas"
)

// Kind selects what an envelope does.
type Kind string

// Inbound kinds.
const (
	KindJoinRoom    Kind = "join_room"
	KindLeaveRoom   Kind = "leave_room"
	KindChat        Kind = "chat"
	KindDraw        Kind = "draw"
	KindUpdateDraw  Kind = "update_draw"
	KindDeleteDraw  Kind = "delete_draw"
	KindClearCanvas Kind = "clear_canvas"
)

// Outbound-only kinds.
const (
	KindAck  Kind = "ack"
	KindNack Kind = "nack"
)

// MaxChatLength is the largest chat message accepted, in bytes.
const MaxChatLength = 5000

var (
	// ErrMalformedFrame is returned when a frame is not a JSON object.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrMissingRoomID is returned when an envelope has no room id.
	ErrMissingRoomID = errors.New("roomId is required")
	// ErrInvalidRoomID is returned when a room id is not usable as a store key.
	ErrInvalidRoomID = errors.New("roomId must be an integer")
	// ErrEmptyMessage is returned for an empty chat message.
	ErrEmptyMessage = errors.New("message cannot be empty")
	// ErrMessageTooLong is returned for a chat message over MaxChatLength bytes.
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	// ErrInvalidUTF8 is returned for a chat message that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("message contains invalid UTF-8")
	// ErrMissingElementID is returned when update_draw or delete_draw has no element id.
	ErrMissingElementID = errors.New("elementId is required")
	// ErrMissingUpdates is returned when update_draw carries no attributes.
	ErrMissingUpdates = errors.New("updates are required")
)

// RoomID is the canonical room identifier inside the relay.
// Numeric ids are stored in their shortest decimal form so "007", 7 and "7"
// name the same room.
type RoomID string

// ParseRoomID normalises a JSON string or number into a RoomID.
func ParseRoomID(raw json.RawMessage) (RoomID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", ErrMissingRoomID
	}

	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidRoomID, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", ErrMissingRoomID
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		text = string(raw)
	default:
		return "", ErrInvalidRoomID
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return RoomID(strconv.FormatInt(n, 10)), nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && f == float64(int64(f)) {
		return RoomID(strconv.FormatInt(int64(f), 10)), nil
	}
	// Non-numeric ids are kept as text and fail at the store boundary.
	return RoomID(text), nil
}

// Key converts the id into the integer key used by the store.
func (r RoomID) Key() (int64, error) {
	n, err := strconv.ParseInt(string(r), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRoomID, string(r))
	}
	return n, nil
}

// Envelope is an inbound frame. Either Type or Kind names the message.
type Envelope struct {
	Type      Kind            `json:"type"`
	Kind      Kind            `json:"kind"`
	RoomID    json.RawMessage `json:"roomId"`
	RequestID string          `json:"requestId"`
	Message   *string         `json:"message"`
	Text      *string         `json:"text"`
	Element   *domain.Element `json:"element"`
	ElementID string          `json:"elementId"`
	Updates   json.RawMessage `json:"updates"`
}

// DecodeEnvelope parses one inbound frame.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &env, nil
}

// MessageKind returns Type, falling back to Kind.
func (e *Envelope) MessageKind() Kind {
	if e.Type != "" {
		return e.Type
	}
	return e.Kind
}

// ChatText returns the chat body from "message", falling back to "text".
func (e *Envelope) ChatText() string {
	switch {
	case e.Message != nil:
		return *e.Message
	case e.Text != nil:
		return *e.Text
	}
	return ""
}

// Patch decodes the update_draw attributes.
func (e *Envelope) Patch() (domain.ElementPatch, error) {
	var patch domain.ElementPatch
	if len(bytes.TrimSpace(e.Updates)) == 0 || bytes.Equal(bytes.TrimSpace(e.Updates), []byte("null")) {
		return patch, ErrMissingUpdates
	}
	if err := json.Unmarshal(e.Updates, &patch); err != nil {
		return patch, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if patch.IsEmpty() {
		return patch, ErrMissingUpdates
	}
	return patch, nil
}

// ValidateChat checks a chat body.
func ValidateChat(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if len(text) > MaxChatLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(text) {
		return ErrInvalidUTF8
	}
	return nil
}

// Outbound is a frame sent to clients. Type and Kind always carry the same value.
type Outbound struct {
	Type      Kind            `json:"type"`
	Kind      Kind            `json:"kind"`
	RoomID    RoomID          `json:"roomId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	MessageID uint            `json:"messageId,omitempty"`
	Message   string          `json:"message,omitempty"`
	Text      string          `json:"text,omitempty"`
	AccountID string          `json:"accountId,omitempty"`
	Element   *domain.Element `json:"element,omitempty"`
	ElementID string          `json:"elementId,omitempty"`
	Cleared   *int64          `json:"cleared,omitempty"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func newOutbound(kind Kind, room RoomID) Outbound {
	return Outbound{Type: kind, Kind: kind, RoomID: room}
}
