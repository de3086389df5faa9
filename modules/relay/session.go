package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 1 << 20
)

var (
	// ErrSessionClosed is returned by Send after the session has closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrSendBufferFull is returned by Send when the peer is not draining its queue.
	ErrSendBufferFull = errors.New("send buffer full")
)

// session is the Sink for one websocket connection. Frames are queued on
// send and written by writePump so a slow peer never blocks its sender.
type session struct {
	conn      *websocket.Conn
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, buffer int) *session {
	return &session{
		conn:   conn,
		send:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

func (s *session) Send(data []byte) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the writer, which closes the connection. It never blocks.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				_ = s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.Close()
				return
			}
		case <-s.closed:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// serve runs the connection until the peer goes away or the relay stops.
// It owns the connection for its whole lifetime.
func serve(ctx context.Context, conn *websocket.Conn, accountID string, relay *Relay, buffer int, logger types.Logger) {
	s := newSession(conn, buffer)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()

	client := relay.Open(accountID, s)
	logger.Info("Client connected", "clientID", client.ID, "accountID", accountID)

	defer func() {
		relay.Close(client)
		_ = s.Close()
		<-writerDone
		logger.Info("Client disconnected", "clientID", client.ID, "accountID", accountID)
	}()

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("Read error", "clientID", client.ID, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		relay.HandleFrame(ctx, client, data)
	}
}
