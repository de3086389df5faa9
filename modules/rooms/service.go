package rooms

import (
	"context"
	"errors"
	"strings"
	"unicode"

	domain "github.com/example/whiteboard-relay/domain/room"
)

const (
	minSlugLength = 3
	maxSlugLength = 64
)

// ErrInvalidSlug is returned when a room name cannot be turned into a slug.
var ErrInvalidSlug = errors.New("room name must produce a slug between 3 and 64 characters")

// Slugify lowercases a room name and joins its words with dashes.
// Characters other than letters, digits, '-' and '_' are dropped.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			pendingDash = true
		}
	}
	return b.String()
}

// Service holds room directory business logic.
type Service struct {
	repo *Repository
}

// NewService creates a new Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CreateRoom creates a room administered by adminID.
func (s *Service) CreateRoom(ctx context.Context, name, adminID string) (*domain.Room, error) {
	slug := Slugify(name)
	if n := len([]rune(slug)); n < minSlugLength || n > maxSlugLength {
		return nil, ErrInvalidSlug
	}

	room := &domain.Room{Slug: slug, AdminID: adminID}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ListRooms returns the rooms administered by adminID.
func (s *Service) ListRooms(ctx context.Context, adminID string) ([]domain.Room, error) {
	return s.repo.ListByAdmin(ctx, adminID)
}

// GetRoomBySlug resolves a slug to its room.
func (s *Service) GetRoomBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	return s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

// GetRoom retrieves a room by id.
func (s *Service) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	return s.repo.FindByID(ctx, id)
}
