package canvas

import (
	"errors"
	"time"
)

// Kind is the shape family of a drawing element.
type Kind string

// Known element kinds.
const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindLine      Kind = "line"
	KindPencil    Kind = "pencil"
	KindText      Kind = "text"
)

// ErrInvalidElement is returned when an element lacks an id or has an unknown kind.
var ErrInvalidElement = errors.New("element must have an id and a known kind")

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRectangle, KindCircle, KindLine, KindPencil, KindText:
		return true
	}
	return false
}

// Point is one vertex of a freehand path.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element is a shape placed on a room's canvas.
// ID, Kind and RoomID are fixed once the element is stored.
type Element struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"type"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       *float64  `json:"width,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	Radius      *float64  `json:"radius,omitempty"`
	Path        []Point   `json:"path,omitempty"`
	Text        *string   `json:"text,omitempty"`
	StrokeColor string    `json:"strokeColor"`
	FillColor   *string   `json:"fillColor,omitempty"`
	StrokeWidth float64   `json:"strokeWidth"`
	Opacity     float64   `json:"opacity"`
	RoomID      int64     `json:"roomId,omitempty"`
	AccountID   string    `json:"accountId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the fields a client must supply when drawing.
func (e *Element) Validate() error {
	if e == nil || e.ID == "" || !e.Kind.Valid() {
		return ErrInvalidElement
	}
	return nil
}

// ElementPatch carries the attributes an update may change.
// Nil fields are left untouched.
type ElementPatch struct {
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Radius      *float64 `json:"radius,omitempty"`
	Path        *[]Point `json:"path,omitempty"`
	Text        *string  `json:"text,omitempty"`
	StrokeColor *string  `json:"strokeColor,omitempty"`
	FillColor   *string  `json:"fillColor,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
	Opacity     *float64 `json:"opacity,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ElementPatch) IsEmpty() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.Radius == nil && p.Path == nil && p.Text == nil && p.StrokeColor == nil &&
		p.FillColor == nil && p.StrokeWidth == nil && p.Opacity == nil
}

// Apply copies every set field of the patch onto e.
func (p ElementPatch) Apply(e *Element) {
	if p.X != nil {
		e.X = *p.X
	}
	if p.Y != nil {
		e.Y = *p.Y
	}
	if p.Width != nil {
		e.Width = p.Width
	}
	if p.Height != nil {
		e.Height = p.Height
	}
	if p.Radius != nil {
		e.Radius = p.Radius
	}
	if p.Path != nil {
		e.Path = append([]Point(nil), (*p.Path)...)
	}
	if p.Text != nil {
		e.Text = p.Text
	}
	if p.StrokeColor != nil {
		e.StrokeColor = *p.StrokeColor
	}
	if p.FillColor != nil {
		e.FillColor = p.FillColor
	}
	if p.StrokeWidth != nil {
		e.StrokeWidth = *p.StrokeWidth
	}
	if p.Opacity != nil {
		e.Opacity = *p.Opacity
	}
}

// ChatMessage is a chat line recorded against a room.
// IDs are assigned by the store in insertion order.
type ChatMessage struct {
	ID        uint      `json:"id"`
	RoomID    int64     `json:"roomId"`
	AccountID string    `json:"accountId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
