package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domain "github.com/example/whiteboard-relay/domain/canvas"
	"github.com/example/whiteboard-relay/events"
	"github.com/example/whiteboard-relay/modules/canvas"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned to a client that sends content too fast.
var ErrRateLimited = errors.New("rate limit exceeded")

// Config tunes the relay.
type Config struct {
	// StoreTimeout bounds each gateway call.
	StoreTimeout time.Duration
	// RateLimit is the sustained content events per second per connection. 0 disables.
	RateLimit float64
	RateBurst int
}

// DefaultConfig returns the default relay configuration.
func DefaultConfig() Config {
	return Config{
		StoreTimeout: 5 * time.Second,
		RateLimit:    20,
		RateBurst:    40,
	}
}

// ActivityNotifier is told about every content event after fan-out.
type ActivityNotifier interface {
	RoomActivity(ctx context.Context, event events.RoomActivityEvent) error
}

// Relay applies inbound envelopes: membership changes go to the hub,
// content goes to the gateway first and is then broadcast to the room.
type Relay struct {
	hub      *Hub
	gateway  canvas.Gateway
	notifier ActivityNotifier
	config   Config
	logger   types.Logger
}

// NewRelay creates a Relay. notifier may be nil.
func NewRelay(hub *Hub, gateway canvas.Gateway, notifier ActivityNotifier, config Config, logger types.Logger) *Relay {
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = DefaultConfig().StoreTimeout
	}
	return &Relay{
		hub:      hub,
		gateway:  gateway,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}
}

// Open registers an authenticated connection.
func (r *Relay) Open(accountID string, sink Sink) *Client {
	var limiter *rate.Limiter
	if r.config.RateLimit > 0 {
		burst := r.config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(r.config.RateLimit), burst)
	}

	c := NewClient(accountID, sink, limiter)
	r.hub.Register(c)
	return c
}

// Close forgets a connection. Calling it more than once is harmless.
func (r *Relay) Close(c *Client) {
	r.hub.Unregister(c)
}

// HandleFrame processes one inbound frame from c. Frames from one client
// must be handled in order; frames from different clients may interleave.
func (r *Relay) HandleFrame(ctx context.Context, c *Client, data []byte) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		r.logger.Warn("Dropping malformed frame", "clientID", c.ID, "error", err)
		return
	}

	switch kind := env.MessageKind(); kind {
	case KindJoinRoom, KindLeaveRoom:
		room, err := ParseRoomID(env.RoomID)
		if err != nil {
			r.logger.Warn("Dropping membership frame", "clientID", c.ID, "kind", kind, "error", err)
			return
		}
		if kind == KindJoinRoom {
			r.hub.JoinRoom(c, room)
		} else {
			r.hub.LeaveRoom(c, room)
		}
	case KindChat, KindDraw, KindUpdateDraw, KindDeleteDraw, KindClearCanvas:
		r.handleContent(ctx, c, env)
	default:
		r.logger.Debug("Ignoring unknown message kind", "clientID", c.ID, "kind", kind)
	}
}

func (r *Relay) handleContent(ctx context.Context, c *Client, env *Envelope) {
	kind := env.MessageKind()

	room, err := ParseRoomID(env.RoomID)
	if err != nil {
		r.reject(c, env, room, err)
		return
	}
	if !c.allow() {
		r.reject(c, env, room, ErrRateLimited)
		return
	}

	out, err := r.apply(ctx, c, env, room)
	if err != nil {
		r.logger.Error("Content event not stored", "clientID", c.ID, "kind", kind, "roomID", room, "error", err)
		r.reject(c, env, room, err)
		return
	}

	data, err := json.Marshal(out)
	if err != nil {
		r.logger.Error("Failed to marshal broadcast", "kind", kind, "error", err)
		return
	}
	recipients := r.hub.Broadcast(room, data)

	if env.RequestID != "" {
		ack := newOutbound(KindAck, room)
		ack.RequestID = env.RequestID
		r.reply(c, ack)
	}

	r.notify(ctx, c, room, out, recipients)
}

// apply persists the event and returns the frame to broadcast.
func (r *Relay) apply(ctx context.Context, c *Client, env *Envelope, room RoomID) (Outbound, error) {
	kind := env.MessageKind()
	out := newOutbound(kind, room)

	key, err := room.Key()
	if err != nil {
		return out, err
	}

	// Validation happens before the store is touched.
	var (
		text  string
		patch domain.ElementPatch
	)
	switch kind {
	case KindChat:
		text = env.ChatText()
		if err := ValidateChat(text); err != nil {
			return out, err
		}
	case KindDraw:
		if err := env.Element.Validate(); err != nil {
			return out, err
		}
	case KindUpdateDraw:
		if env.ElementID == "" {
			return out, ErrMissingElementID
		}
		if patch, err = env.Patch(); err != nil {
			return out, err
		}
	case KindDeleteDraw:
		if env.ElementID == "" {
			return out, ErrMissingElementID
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.config.StoreTimeout)
	defer cancel()

	switch kind {
	case KindChat:
		msg, err := r.gateway.AppendChat(storeCtx, key, c.AccountID, text)
		if err != nil {
			return out, err
		}
		out.MessageID = msg.ID
		out.Message = msg.Message
		out.Text = msg.Message
		out.AccountID = msg.AccountID
		out.CreatedAt = &msg.CreatedAt
	case KindDraw:
		stored, err := r.gateway.CreateDrawingElement(storeCtx, key, c.AccountID, *env.Element)
		if err != nil {
			return out, err
		}
		out.Element = stored
		out.AccountID = c.AccountID
	case KindUpdateDraw:
		stored, err := r.gateway.UpdateDrawingElement(storeCtx, key, env.ElementID, patch)
		if err != nil {
			return out, err
		}
		out.Element = stored
		out.AccountID = c.AccountID
	case KindDeleteDraw:
		if _, err := r.gateway.DeleteDrawingElement(storeCtx, key, env.ElementID); err != nil {
			return out, err
		}
		out.ElementID = env.ElementID
		out.AccountID = c.AccountID
	case KindClearCanvas:
		count, err := r.gateway.ClearRoom(storeCtx, key)
		if err != nil {
			return out, err
		}
		out.Cleared = &count
		out.AccountID = c.AccountID
	}
	return out, nil
}

// reject sends a nack to the originating client only.
func (r *Relay) reject(c *Client, env *Envelope, room RoomID, cause error) {
	nack := newOutbound(KindNack, room)
	nack.RequestID = env.RequestID
	nack.Error = cause.Error()
	r.reply(c, nack)
}

func (r *Relay) reply(c *Client, out Outbound) {
	data, err := json.Marshal(out)
	if err != nil {
		r.logger.Error("Failed to marshal reply", "kind", out.Type, "error", err)
		return
	}
	if err := c.sink.Send(data); err != nil {
		r.logger.Warn("Failed to reply to client", "clientID", c.ID, "kind", out.Type, "error", err)
	}
}

func (r *Relay) notify(ctx context.Context, c *Client, room RoomID, out Outbound, recipients int) {
	if r.notifier == nil {
		return
	}
	key, _ := room.Key()
	event := events.RoomActivityEvent{
		RoomID:     key,
		AccountID:  c.AccountID,
		Kind:       string(out.Type),
		ElementID:  out.ElementID,
		Recipients: recipients,
		Timestamp:  time.Now(),
	}
	if out.Element != nil {
		event.ElementID = out.Element.ID
	}
	if err := r.notifier.RoomActivity(ctx, event); err != nil {
		r.logger.Warn("Failed to publish room activity", "roomID", room, "error", err)
	}
}
