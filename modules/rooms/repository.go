package rooms

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/whiteboard-relay/domain/room"
	"github.com/example/whiteboard-relay/modules/store"
	"gorm.io/gorm"
)

var (
	// ErrRoomNotFound is returned when a room is not found.
	ErrRoomNotFound = errors.New("room not found")
	// ErrSlugTaken is returned when a room with the same slug exists.
	ErrSlugTaken = errors.New("room with this slug already exists")
)

// Repository handles room persistence using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the rooms table.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&domain.Room{}); err != nil {
		return fmt.Errorf("failed to migrate rooms: %w", err)
	}
	return nil
}

// Create stores a new room.
func (r *Repository) Create(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if store.IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// FindByID retrieves a room by ID.
func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.Room, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindBySlug retrieves a room by slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	return r.findOne(ctx, "slug = ?", slug)
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*domain.Room, error) {
	var room domain.Room
	if err := r.db.WithContext(ctx).First(&room, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

// ListByAdmin returns the rooms an account administers, newest first.
func (r *Repository) ListByAdmin(ctx context.Context, adminID string) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("admin_id = ?", adminID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// Touch records activity in a room. Unknown rooms are reported as ErrRoomNotFound.
func (r *Repository) Touch(ctx context.Context, id int64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ?", id).
		Update("last_active_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to touch room: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}
