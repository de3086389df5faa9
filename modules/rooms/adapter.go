package rooms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RoomsPort is what other modules use to reach the room directory.
type RoomsPort interface {
	CreateRoom(ctx context.Context, name, adminID string) (*RoomResponse, error)
	ListRooms(ctx context.Context, adminID string) ([]RoomResponse, error)
	GetRoom(ctx context.Context, slug string) (*RoomResponse, error)
	RoomDrawings(ctx context.Context, roomID int64) (*DrawingsResponse, error)
	RoomChats(ctx context.Context, roomID int64, limit int) (*ChatsResponse, error)
}

// RoomsAdapter implements RoomsPort using the service container.
type RoomsAdapter struct {
	container mono.ServiceContainer
}

var _ RoomsPort = (*RoomsAdapter)(nil)

// NewRoomsAdapter creates a new RoomsAdapter.
func NewRoomsAdapter(container mono.ServiceContainer) *RoomsAdapter {
	return &RoomsAdapter{container: container}
}

func (a *RoomsAdapter) CreateRoom(ctx context.Context, name, adminID string) (*RoomResponse, error) {
	var resp RoomResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "create-room", json.Marshal, json.Unmarshal, &CreateRoomRequest{Name: name, AdminID: adminID}, &resp,
	); err != nil {
		return nil, fmt.Errorf("create-room request failed: %w", err)
	}
	return &resp, nil
}

func (a *RoomsAdapter) ListRooms(ctx context.Context, adminID string) ([]RoomResponse, error) {
	var resp RoomListResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "list-rooms", json.Marshal, json.Unmarshal, &ListRoomsRequest{AdminID: adminID}, &resp,
	); err != nil {
		return nil, fmt.Errorf("list-rooms request failed: %w", err)
	}
	return resp.Rooms, nil
}

func (a *RoomsAdapter) GetRoom(ctx context.Context, slug string) (*RoomResponse, error) {
	var resp RoomResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "get-room", json.Marshal, json.Unmarshal, &GetRoomRequest{Slug: slug}, &resp,
	); err != nil {
		return nil, fmt.Errorf("get-room request failed: %w", err)
	}
	return &resp, nil
}

func (a *RoomsAdapter) RoomDrawings(ctx context.Context, roomID int64) (*DrawingsResponse, error) {
	var resp DrawingsResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "room-drawings", json.Marshal, json.Unmarshal, &RoomContentRequest{RoomID: roomID}, &resp,
	); err != nil {
		return nil, fmt.Errorf("room-drawings request failed: %w", err)
	}
	return &resp, nil
}

func (a *RoomsAdapter) RoomChats(ctx context.Context, roomID int64, limit int) (*ChatsResponse, error) {
	var resp ChatsResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "room-chats", json.Marshal, json.Unmarshal, &RoomContentRequest{RoomID: roomID, Limit: limit}, &resp,
	); err != nil {
		return nil, fmt.Errorf("room-chats request failed: %w", err)
	}
	return &resp, nil
}
