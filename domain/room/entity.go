package room

import "time"

// Room is a whiteboard room. Drawing elements reference it by ID.
type Room struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug         string     `gorm:"uniqueIndex;not null;size:128" json:"slug"`
	AdminID      string     `gorm:"index;not null;size:64" json:"adminId"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActiveAt *time.Time `json:"lastActiveAt,omitempty"`
}

// TableName returns the table name for the Room entity.
func (Room) TableName() string {
	return "rooms"
}
