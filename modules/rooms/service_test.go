package rooms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/whiteboard-relay/modules/store"
)

func setupTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()

	db, err := store.Open(store.Config{Driver: store.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close(db) })

	repo := NewRepository(db)
	if err := repo.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewService(repo), repo
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "design", want: "design"},
		{name: "spaces", in: "  Design   Review ", want: "design-review"},
		{name: "punctuation dropped", in: "Sprint #12!", want: "sprint-12"},
		{name: "dashes collapse", in: "a -- b", want: "a-b"},
		{name: "leading dash dropped", in: "-abc", want: "abc"},
		{name: "underscore kept", in: "team_room", want: "team_room"},
		{name: "empty", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestService_CreateRoom(t *testing.T) {
	s, _ := setupTestService(t)
	ctx := context.Background()

	room, err := s.CreateRoom(ctx, "Design Review", "admin-1")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if room.ID == 0 {
		t.Error("CreateRoom() did not assign an id")
	}
	if room.Slug != "design-review" {
		t.Errorf("room.Slug = %q, want %q", room.Slug, "design-review")
	}

	if _, err := s.CreateRoom(ctx, "design review", "admin-2"); !errors.Is(err, ErrSlugTaken) {
		t.Errorf("CreateRoom() duplicate error = %v, want %v", err, ErrSlugTaken)
	}
	if _, err := s.CreateRoom(ctx, "!!", "admin-1"); !errors.Is(err, ErrInvalidSlug) {
		t.Errorf("CreateRoom() invalid error = %v, want %v", err, ErrInvalidSlug)
	}
}

func TestService_ListAndGet(t *testing.T) {
	s, _ := setupTestService(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta"} {
		if _, err := s.CreateRoom(ctx, name, "admin-1"); err != nil {
			t.Fatalf("CreateRoom(%q) error = %v", name, err)
		}
	}
	if _, err := s.CreateRoom(ctx, "gamma", "admin-2"); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	rooms, err := s.ListRooms(ctx, "admin-1")
	if err != nil {
		t.Fatalf("ListRooms() error = %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("ListRooms() len = %d, want 2", len(rooms))
	}

	room, err := s.GetRoomBySlug(ctx, " GAMMA ")
	if err != nil {
		t.Fatalf("GetRoomBySlug() error = %v", err)
	}
	if room.AdminID != "admin-2" {
		t.Errorf("room.AdminID = %q, want %q", room.AdminID, "admin-2")
	}

	if _, err := s.GetRoomBySlug(ctx, "missing"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("GetRoomBySlug() error = %v, want %v", err, ErrRoomNotFound)
	}
	if _, err := s.GetRoom(ctx, 999); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("GetRoom() error = %v, want %v", err, ErrRoomNotFound)
	}
}

func TestRepository_Touch(t *testing.T) {
	s, repo := setupTestService(t)
	ctx := context.Background()

	room, err := s.CreateRoom(ctx, "active", "admin-1")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if room.LastActiveAt != nil {
		t.Fatal("new room should have no activity")
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := repo.Touch(ctx, room.ID, at); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	reloaded, err := s.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	if reloaded.LastActiveAt == nil || !reloaded.LastActiveAt.Equal(at) {
		t.Errorf("LastActiveAt = %v, want %v", reloaded.LastActiveAt, at)
	}

	if err := repo.Touch(ctx, 4242, at); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Touch() error = %v, want %v", err, ErrRoomNotFound)
	}
}
