package relay

import (
	"sort"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Sink is the outbound side of one connection.
type Sink interface {
	// Send queues a frame without blocking. It fails when the connection
	// is closed or its queue is full.
	Send(data []byte) error
	Close() error
}

// Client is one authenticated connection.
// Its room set is only touched by the Registry.
type Client struct {
	ID        string
	AccountID string

	sink    Sink
	limiter *rate.Limiter
	rooms   map[RoomID]struct{}
}

// NewClient creates a Client with a fresh connection id.
// A nil limiter disables rate limiting.
func NewClient(accountID string, sink Sink, limiter *rate.Limiter) *Client {
	return &Client{
		ID:        uuid.New().String(),
		AccountID: accountID,
		sink:      sink,
		limiter:   limiter,
		rooms:     make(map[RoomID]struct{}),
	}
}

func (c *Client) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// Registry maps connections to rooms. It is not safe for concurrent use;
// the Hub serialises every access.
type Registry struct {
	clients map[string]*Client
	rooms   map[RoomID]map[string]*Client
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		rooms:   make(map[RoomID]map[string]*Client),
	}
}

// Add records a connection with an empty room set.
func (r *Registry) Add(c *Client) {
	r.clients[c.ID] = c
}

// Remove forgets a connection and all its memberships. It reports whether
// the connection was present.
func (r *Registry) Remove(c *Client) bool {
	if _, ok := r.clients[c.ID]; !ok {
		return false
	}
	for room := range c.rooms {
		r.detach(c, room)
	}
	delete(r.clients, c.ID)
	return true
}

// JoinRoom adds room to the connection's room set. Joining twice is a no-op.
// It reports false for a connection that is not registered.
func (r *Registry) JoinRoom(c *Client, room RoomID) bool {
	if _, ok := r.clients[c.ID]; !ok {
		return false
	}
	c.rooms[room] = struct{}{}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		r.rooms[room] = members
	}
	members[c.ID] = c
	return true
}

// LeaveRoom removes room from the connection's room set if present and
// reports whether it was.
func (r *Registry) LeaveRoom(c *Client, room RoomID) bool {
	if _, ok := c.rooms[room]; !ok {
		return false
	}
	r.detach(c, room)
	return true
}

func (r *Registry) detach(c *Client, room RoomID) {
	delete(c.rooms, room)
	if members, ok := r.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
}

// MembersOf returns every connection currently in room.
func (r *Registry) MembersOf(room RoomID) []*Client {
	members := r.rooms[room]
	clients := make([]*Client, 0, len(members))
	for _, c := range members {
		clients = append(clients, c)
	}
	return clients
}

// RoomsOf returns the rooms a connection belongs to, sorted.
func (r *Registry) RoomsOf(c *Client) []RoomID {
	rooms := make([]RoomID, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// Clients returns every registered connection.
func (r *Registry) Clients() []*Client {
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return len(r.clients)
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int {
	return len(r.rooms)
}
