package canvas

import (
	"fmt"
	"time"

	domain "github.com/example/whiteboard-relay/domain/canvas"
	roomdomain "github.com/example/whiteboard-relay/domain/room"
)

// drawingElement is the stored form of a domain.Element.
type drawingElement struct {
	ID          string           `gorm:"primaryKey;size:64"`
	RoomID      int64            `gorm:"not null;index:idx_drawing_room_created,priority:1"`
	Room        *roomdomain.Room `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
	AccountID   string           `gorm:"size:64;not null"`
	Kind        string           `gorm:"size:16;not null"`
	X           float64
	Y           float64
	Width       *float64
	Height      *float64
	Radius      *float64
	Path        string `gorm:"type:text"`
	Text        *string
	StrokeColor string `gorm:"size:32"`
	FillColor   *string
	StrokeWidth float64
	Opacity     float64
	CreatedAt   time.Time `gorm:"index:idx_drawing_room_created,priority:2"`
	UpdatedAt   time.Time
}

func (drawingElement) TableName() string {
	return "drawing_elements"
}

type chatMessage struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RoomID    int64  `gorm:"not null;index"`
	AccountID string `gorm:"size:64;not null"`
	Message   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (chatMessage) TableName() string {
	return "chats"
}

func newDrawingElement(roomKey int64, accountID string, e domain.Element) drawingElement {
	return drawingElement{
		ID:          e.ID,
		RoomID:      roomKey,
		AccountID:   accountID,
		Kind:        string(e.Kind),
		X:           e.X,
		Y:           e.Y,
		Width:       e.Width,
		Height:      e.Height,
		Radius:      e.Radius,
		Path:        EncodePath(e.Path),
		Text:        e.Text,
		StrokeColor: e.StrokeColor,
		FillColor:   e.FillColor,
		StrokeWidth: e.StrokeWidth,
		Opacity:     e.Opacity,
	}
}

func (r *drawingElement) toDomain() (*domain.Element, error) {
	path, err := DecodePath(r.Path)
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", r.ID, err)
	}
	return &domain.Element{
		ID:          r.ID,
		Kind:        domain.Kind(r.Kind),
		X:           r.X,
		Y:           r.Y,
		Width:       r.Width,
		Height:      r.Height,
		Radius:      r.Radius,
		Path:        path,
		Text:        r.Text,
		StrokeColor: r.StrokeColor,
		FillColor:   r.FillColor,
		StrokeWidth: r.StrokeWidth,
		Opacity:     r.Opacity,
		RoomID:      r.RoomID,
		AccountID:   r.AccountID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

// applyPatch writes the mutable attributes of e back onto the record.
func (r *drawingElement) applyPatch(e *domain.Element) {
	r.X = e.X
	r.Y = e.Y
	r.Width = e.Width
	r.Height = e.Height
	r.Radius = e.Radius
	r.Path = EncodePath(e.Path)
	r.Text = e.Text
	r.StrokeColor = e.StrokeColor
	r.FillColor = e.FillColor
	r.StrokeWidth = e.StrokeWidth
	r.Opacity = e.Opacity
}

func (c *chatMessage) toDomain() *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:        c.ID,
		RoomID:    c.RoomID,
		AccountID: c.AccountID,
		Message:   c.Message,
		CreatedAt: c.CreatedAt,
	}
}
