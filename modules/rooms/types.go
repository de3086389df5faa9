package rooms

import (
	"time"

	canvasdomain "github.com/example/whiteboard-relay/domain/canvas"
	domain "github.com/example/whiteboard-relay/domain/room"
)

// DefaultChatHistory is how many chats a room load returns when no limit is given.
const DefaultChatHistory = 50

// CreateRoomRequest asks for a new room.
type CreateRoomRequest struct {
	Name    string `json:"name"`
	AdminID string `json:"admin_id"`
}

// ListRoomsRequest asks for the rooms of an account.
type ListRoomsRequest struct {
	AdminID string `json:"admin_id"`
}

// GetRoomRequest resolves a room by slug.
type GetRoomRequest struct {
	Slug string `json:"slug"`
}

// RoomContentRequest asks for the drawings or chats of a room.
type RoomContentRequest struct {
	RoomID int64 `json:"room_id"`
	Limit  int   `json:"limit,omitempty"`
}

// RoomResponse is a room as returned by the directory services.
type RoomResponse struct {
	ID           int64      `json:"id"`
	Slug         string     `json:"slug"`
	AdminID      string     `json:"adminId"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActiveAt *time.Time `json:"lastActiveAt,omitempty"`
}

// RoomListResponse lists rooms.
type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// DrawingsResponse carries the stored elements of a room.
type DrawingsResponse struct {
	RoomID   int64                  `json:"roomId"`
	Elements []canvasdomain.Element `json:"elements"`
}

// ChatsResponse carries the chat history of a room.
type ChatsResponse struct {
	RoomID   int64                      `json:"roomId"`
	Messages []canvasdomain.ChatMessage `json:"messages"`
}

func toRoomResponse(r *domain.Room) RoomResponse {
	return RoomResponse{
		ID:           r.ID,
		Slug:         r.Slug,
		AdminID:      r.AdminID,
		CreatedAt:    r.CreatedAt,
		LastActiveAt: r.LastActiveAt,
	}
}
