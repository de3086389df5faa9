package canvas

import (
	"context"
	"errors"

	domain "github.com/example/whiteboard-relay/domain/canvas"
)

var (
	// ErrRoomNotFound is returned when an element references a room that does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrElementNotFound is returned when an element id does not exist.
	ErrElementNotFound = errors.New("drawing element not found")
	// ErrDuplicateElement is returned when an element id is already stored.
	ErrDuplicateElement = errors.New("drawing element already exists")
	// ErrEmptyPatch is returned when an update carries no attribute.
	ErrEmptyPatch = errors.New("update carries no attributes")
)

// Gateway is the durable store behind the relay. Every call is
// independently fallible and must finish before its result is broadcast.
type Gateway interface {
	AppendChat(ctx context.Context, roomKey int64, accountID, text string) (*domain.ChatMessage, error)
	CreateDrawingElement(ctx context.Context, roomKey int64, accountID string, element domain.Element) (*domain.Element, error)
	// UpdateDrawingElement and DeleteDrawingElement only see elements of
	// roomKey. An element of another room is reported as ErrElementNotFound.
	UpdateDrawingElement(ctx context.Context, roomKey int64, elementID string, patch domain.ElementPatch) (*domain.Element, error)
	// DeleteDrawingElement returns the element as it was before removal.
	DeleteDrawingElement(ctx context.Context, roomKey int64, elementID string) (*domain.Element, error)
	// ClearRoom removes every element of a room in one transaction and returns the count.
	ClearRoom(ctx context.Context, roomKey int64) (int64, error)
	// ListDrawingElements returns a room's elements oldest first.
	ListDrawingElements(ctx context.Context, roomKey int64) ([]domain.Element, error)
	// ListChats returns up to limit of the most recent chats, oldest first. limit <= 0 means all.
	ListChats(ctx context.Context, roomKey int64, limit int) ([]domain.ChatMessage, error)
}
