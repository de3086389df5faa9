package relay

import (
	"context"

	"github.com/go-monolith/mono/pkg/types"
)

// Hub owns the Registry. Every registry access runs on the hub goroutine,
// one operation at a time, so the registry needs no locks.
type Hub struct {
	registry *Registry
	ops      chan func(*Registry)
	done     chan struct{}
	logger   types.Logger
}

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		ops:      make(chan func(*Registry)),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Run starts the hub's main loop. It returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down", "clients", h.registry.Len())
			h.closeAllClients()
			close(h.done)
			return
		case op := <-h.ops:
			op(h.registry)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// exec runs fn on the hub goroutine and waits for it to finish.
// It reports false when the hub has stopped.
func (h *Hub) exec(fn func(*Registry)) bool {
	finished := make(chan struct{})
	select {
	case h.ops <- func(r *Registry) {
		defer close(finished)
		fn(r)
	}:
	case <-h.done:
		return false
	}
	<-finished
	return true
}

func (h *Hub) closeAllClients() {
	for _, c := range h.registry.Clients() {
		_ = c.sink.Close()
	}
	h.registry = NewRegistry()
}

// Register adds a client to the hub. A client registered after shutdown
// is closed immediately.
func (h *Hub) Register(c *Client) {
	ok := h.exec(func(r *Registry) {
		r.Add(c)
	})
	if !ok {
		_ = c.sink.Close()
		return
	}
	h.logger.Debug("Client registered", "clientID", c.ID, "accountID", c.AccountID)
}

// Unregister removes a client and all of its memberships.
func (h *Hub) Unregister(c *Client) {
	var removed bool
	h.exec(func(r *Registry) {
		removed = r.Remove(c)
	})
	if removed {
		h.logger.Debug("Client unregistered", "clientID", c.ID, "accountID", c.AccountID)
	}
}

// JoinRoom adds the client to a room.
func (h *Hub) JoinRoom(c *Client, room RoomID) {
	var joined bool
	h.exec(func(r *Registry) {
		joined = r.JoinRoom(c, room)
	})
	if joined {
		h.logger.Info("Client joined room", "clientID", c.ID, "roomID", room)
	}
}

// LeaveRoom removes the client from a room.
func (h *Hub) LeaveRoom(c *Client, room RoomID) {
	var left bool
	h.exec(func(r *Registry) {
		left = r.LeaveRoom(c, room)
	})
	if left {
		h.logger.Info("Client left room", "clientID", c.ID, "roomID", room)
	}
}

// Broadcast queues data on every member of room and returns how many
// members accepted it. A failing member is closed and does not affect
// the others.
func (h *Hub) Broadcast(room RoomID, data []byte) int {
	delivered := 0
	h.exec(func(r *Registry) {
		for _, c := range r.MembersOf(room) {
			if h.sendToClient(c, data) {
				delivered++
			}
		}
	})
	return delivered
}

func (h *Hub) sendToClient(c *Client, data []byte) bool {
	if err := c.sink.Send(data); err != nil {
		h.logger.Warn("Failed to send to client", "clientID", c.ID, "error", err)
		_ = c.sink.Close()
		return false
	}
	return true
}

// RoomsOf returns the rooms the client belongs to.
func (h *Hub) RoomsOf(c *Client) []RoomID {
	var rooms []RoomID
	h.exec(func(r *Registry) {
		rooms = r.RoomsOf(c)
	})
	return rooms
}

// RoomClientCount returns the number of clients in a room.
func (h *Hub) RoomClientCount(room RoomID) int {
	var n int
	h.exec(func(r *Registry) {
		n = len(r.rooms[room])
	})
	return n
}

// Stats returns the number of connected clients and occupied rooms.
func (h *Hub) Stats() (clients, rooms int) {
	h.exec(func(r *Registry) {
		clients = r.Len()
		rooms = r.RoomCount()
	})
	return clients, rooms
}
