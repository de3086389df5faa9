package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/whiteboard-relay/modules/canvas"
	"github.com/example/whiteboard-relay/modules/store"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// RoomsModule is the room directory plus the room-load reads.
type RoomsModule struct {
	db      *gorm.DB
	repo    *Repository
	service *Service
	gateway canvas.Gateway
	logger  types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*RoomsModule)(nil)
var _ mono.ServiceProviderModule = (*RoomsModule)(nil)
var _ mono.HealthCheckableModule = (*RoomsModule)(nil)

// NewModule creates a new RoomsModule. Drawings and chats are read through gateway.
func NewModule(db *gorm.DB, gateway canvas.Gateway, logger types.Logger) *RoomsModule {
	repo := NewRepository(db)
	return &RoomsModule{
		db:      db,
		repo:    repo,
		service: NewService(repo),
		gateway: gateway,
		logger:  logger.WithModule("rooms"),
	}
}

// Name returns the module name.
func (m *RoomsModule) Name() string {
	return "rooms"
}

// Repository exposes the room store to in-process collaborators.
func (m *RoomsModule) Repository() *Repository {
	return m.repo
}

// Start migrates the rooms table.
func (m *RoomsModule) Start(_ context.Context) error {
	if m.db == nil {
		return errors.New("rooms: database not set")
	}
	if err := m.repo.Migrate(); err != nil {
		return err
	}
	m.logger.Info("Module started")
	return nil
}

// Stop shuts down the module.
func (m *RoomsModule) Stop(_ context.Context) error {
	m.logger.Info("Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *RoomsModule) Health(ctx context.Context) mono.HealthStatus {
	if err := store.Ping(ctx, m.db); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	details := map[string]any{}
	if cached, ok := m.gateway.(*canvas.CachedGateway); ok {
		details["drawings_cache"] = cached.Stats()
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *RoomsModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-room", json.Unmarshal, json.Marshal, m.handleCreateRoom,
	); err != nil {
		return fmt.Errorf("failed to register create-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-rooms", json.Unmarshal, json.Marshal, m.handleListRooms,
	); err != nil {
		return fmt.Errorf("failed to register list-rooms service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-room", json.Unmarshal, json.Marshal, m.handleGetRoom,
	); err != nil {
		return fmt.Errorf("failed to register get-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "room-drawings", json.Unmarshal, json.Marshal, m.handleRoomDrawings,
	); err != nil {
		return fmt.Errorf("failed to register room-drawings service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "room-chats", json.Unmarshal, json.Marshal, m.handleRoomChats,
	); err != nil {
		return fmt.Errorf("failed to register room-chats service: %w", err)
	}

	m.logger.Info("Registered services", "services", "create-room, list-rooms, get-room, room-drawings, room-chats")
	return nil
}

func (m *RoomsModule) handleCreateRoom(ctx context.Context, req CreateRoomRequest, _ *mono.Msg) (RoomResponse, error) {
	room, err := m.service.CreateRoom(ctx, req.Name, req.AdminID)
	if err != nil {
		return RoomResponse{}, err
	}
	m.logger.Info("Room created", "roomID", room.ID, "slug", room.Slug, "adminID", room.AdminID)
	return toRoomResponse(room), nil
}

func (m *RoomsModule) handleListRooms(ctx context.Context, req ListRoomsRequest, _ *mono.Msg) (RoomListResponse, error) {
	rooms, err := m.service.ListRooms(ctx, req.AdminID)
	if err != nil {
		return RoomListResponse{}, err
	}
	resp := RoomListResponse{Rooms: make([]RoomResponse, 0, len(rooms))}
	for i := range rooms {
		resp.Rooms = append(resp.Rooms, toRoomResponse(&rooms[i]))
	}
	return resp, nil
}

func (m *RoomsModule) handleGetRoom(ctx context.Context, req GetRoomRequest, _ *mono.Msg) (RoomResponse, error) {
	room, err := m.service.GetRoomBySlug(ctx, req.Slug)
	if err != nil {
		return RoomResponse{}, err
	}
	return toRoomResponse(room), nil
}

func (m *RoomsModule) handleRoomDrawings(ctx context.Context, req RoomContentRequest, _ *mono.Msg) (DrawingsResponse, error) {
	if _, err := m.service.GetRoom(ctx, req.RoomID); err != nil {
		return DrawingsResponse{}, err
	}
	elements, err := m.gateway.ListDrawingElements(ctx, req.RoomID)
	if err != nil {
		return DrawingsResponse{}, err
	}
	return DrawingsResponse{RoomID: req.RoomID, Elements: elements}, nil
}

func (m *RoomsModule) handleRoomChats(ctx context.Context, req RoomContentRequest, _ *mono.Msg) (ChatsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultChatHistory
	}
	messages, err := m.gateway.ListChats(ctx, req.RoomID, limit)
	if err != nil {
		return ChatsResponse{}, err
	}
	return ChatsResponse{RoomID: req.RoomID, Messages: messages}, nil
}
