package canvas

import (
	"context"
	"errors"
	"fmt"
	"slices"

	domain "github.com/example/whiteboard-relay/domain/canvas"
	roomdomain "github.com/example/whiteboard-relay/domain/room"
	"github.com/example/whiteboard-relay/modules/store"
	"gorm.io/gorm"
)

// Repository is the gorm implementation of Gateway.
type Repository struct {
	db *gorm.DB
}

var _ Gateway = (*Repository)(nil)

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the canvas tables. Rooms are migrated first so the
// drawing_elements foreign key has a target.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&roomdomain.Room{}, &drawingElement{}, &chatMessage{}); err != nil {
		return fmt.Errorf("failed to migrate canvas schema: %w", err)
	}
	return nil
}

// AppendChat stores a chat line and returns it with its assigned id.
func (r *Repository) AppendChat(ctx context.Context, roomKey int64, accountID, text string) (*domain.ChatMessage, error) {
	rec := chatMessage{
		RoomID:    roomKey,
		AccountID: accountID,
		Message:   text,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to append chat: %w", err)
	}
	return rec.toDomain(), nil
}

// CreateDrawingElement stores a new element in a room.
func (r *Repository) CreateDrawingElement(ctx context.Context, roomKey int64, accountID string, element domain.Element) (*domain.Element, error) {
	if err := element.Validate(); err != nil {
		return nil, err
	}

	rec := newDrawingElement(roomKey, accountID, element)
	if err := r.db.WithContext(ctx).Omit("Room").Create(&rec).Error; err != nil {
		switch {
		case store.IsForeignKeyViolation(err):
			return nil, fmt.Errorf("room %d: %w", roomKey, ErrRoomNotFound)
		case store.IsUniqueViolation(err):
			return nil, fmt.Errorf("element %s: %w", element.ID, ErrDuplicateElement)
		}
		return nil, fmt.Errorf("failed to create drawing element: %w", err)
	}
	return rec.toDomain()
}

// UpdateDrawingElement applies a partial update to an existing element.
func (r *Repository) UpdateDrawingElement(ctx context.Context, roomKey int64, elementID string, patch domain.ElementPatch) (*domain.Element, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	var updated *domain.Element
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findElement(tx, roomKey, elementID)
		if err != nil {
			return err
		}

		current, err := rec.toDomain()
		if err != nil {
			return err
		}
		patch.Apply(current)
		rec.applyPatch(current)

		if err := tx.Omit("Room").Save(rec).Error; err != nil {
			return fmt.Errorf("failed to update drawing element: %w", err)
		}
		updated, err = rec.toDomain()
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteDrawingElement removes an element. A missing element is an error.
func (r *Repository) DeleteDrawingElement(ctx context.Context, roomKey int64, elementID string) (*domain.Element, error) {
	var deleted *domain.Element
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findElement(tx, roomKey, elementID)
		if err != nil {
			return err
		}

		result := tx.Where("id = ? AND room_id = ?", elementID, roomKey).Delete(&drawingElement{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete drawing element: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("element %s: %w", elementID, ErrElementNotFound)
		}
		deleted, err = rec.toDomain()
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ClearRoom deletes every element of a room in one transaction.
func (r *Repository) ClearRoom(ctx context.Context, roomKey int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("room_id = ?", roomKey).Delete(&drawingElement{})
		if result.Error != nil {
			return fmt.Errorf("failed to clear room: %w", result.Error)
		}
		count = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListDrawingElements returns a room's elements ordered by creation time.
func (r *Repository) ListDrawingElements(ctx context.Context, roomKey int64) ([]domain.Element, error) {
	var recs []drawingElement
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomKey).
		Order("created_at ASC").
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list drawing elements: %w", err)
	}

	elements := make([]domain.Element, 0, len(recs))
	for i := range recs {
		e, err := recs[i].toDomain()
		if err != nil {
			return nil, err
		}
		elements = append(elements, *e)
	}
	return elements, nil
}

// ListChats returns the latest chats of a room, oldest first.
func (r *Repository) ListChats(ctx context.Context, roomKey int64, limit int) ([]domain.ChatMessage, error) {
	var recs []chatMessage
	query := r.db.WithContext(ctx).Where("room_id = ?", roomKey).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	slices.Reverse(recs)

	chats := make([]domain.ChatMessage, 0, len(recs))
	for i := range recs {
		chats = append(chats, *recs[i].toDomain())
	}
	return chats, nil
}

func findElement(tx *gorm.DB, roomKey int64, elementID string) (*drawingElement, error) {
	var rec drawingElement
	if err := tx.First(&rec, "id = ? AND room_id = ?", elementID, roomKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("element %s: %w", elementID, ErrElementNotFound)
		}
		return nil, fmt.Errorf("failed to load drawing element: %w", err)
	}
	return &rec, nil
}
