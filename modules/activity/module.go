package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/whiteboard-relay/events"
	"github.com/example/whiteboard-relay/modules/rooms"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// RoomToucher records the last activity time of a room.
type RoomToucher interface {
	Touch(ctx context.Context, id int64, at time.Time) error
}

// RoomStats summarises the activity seen for one room since startup.
type RoomStats struct {
	Events     int       `json:"events"`
	Recipients int       `json:"recipients"`
	LastKind   string    `json:"last_kind"`
	LastActive time.Time `json:"last_active"`
}

// ActivityModule consumes relay activity events and keeps room
// last-activity timestamps current.
type ActivityModule struct {
	rooms  RoomToucher
	logger types.Logger

	mu    sync.RWMutex
	stats map[int64]RoomStats
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*ActivityModule)(nil)
	_ mono.EventConsumerModule   = (*ActivityModule)(nil)
	_ mono.HealthCheckableModule = (*ActivityModule)(nil)
)

// NewModule creates a new ActivityModule.
func NewModule(rooms RoomToucher, logger types.Logger) *ActivityModule {
	return &ActivityModule{
		rooms:  rooms,
		logger: logger.WithModule("activity"),
		stats:  make(map[int64]RoomStats),
	}
}

// Name returns the module name.
func (m *ActivityModule) Name() string {
	return "activity"
}

// Start starts the module.
func (m *ActivityModule) Start(_ context.Context) error {
	m.logger.Info("Module started")
	return nil
}

// Stop stops the module.
func (m *ActivityModule) Stop(_ context.Context) error {
	m.mu.RLock()
	tracked := len(m.stats)
	m.mu.RUnlock()
	m.logger.Info("Module stopped", "rooms_tracked", tracked)
	return nil
}

// Health returns the health status.
func (m *ActivityModule) Health(_ context.Context) mono.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, s := range m.stats {
		total += s.Events
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms_tracked": len(m.stats),
			"events_seen":   total,
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomActivityV1, m.handleRoomActivity, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomActivity consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", "RoomActivity")
	return nil
}

func (m *ActivityModule) handleRoomActivity(ctx context.Context, event events.RoomActivityEvent, _ *mono.Msg) error {
	m.record(event)

	err := m.rooms.Touch(ctx, event.RoomID, event.Timestamp)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rooms.ErrRoomNotFound):
		// Chat may target a room the directory does not know.
		m.logger.Debug("Activity for unknown room", "roomID", event.RoomID, "kind", event.Kind)
		return nil
	default:
		m.logger.Error("Failed to touch room", "roomID", event.RoomID, "error", err)
		return err
	}
}

func (m *ActivityModule) record(event events.RoomActivityEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats[event.RoomID]
	s.Events++
	s.Recipients += event.Recipients
	s.LastKind = event.Kind
	if event.Timestamp.After(s.LastActive) {
		s.LastActive = event.Timestamp
	}
	m.stats[event.RoomID] = s
}

// Stats returns the activity recorded for a room.
func (m *ActivityModule) Stats(roomID int64) (RoomStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[roomID]
	return s, ok
}
