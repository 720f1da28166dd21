package store

import (
	"testing"

	"gungi-server/internal/gungi"
	"gungi-server/internal/session"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	if _, ok := s.GetRoom("missing"); ok {
		t.Fatal("empty store returned a room")
	}

	r := &session.Room{RoomID: "r1", Game: gungi.New()}
	s.SaveRoom(r)

	got, ok := s.GetRoom("r1")
	if !ok || got != r {
		t.Fatal("saved room not returned")
	}
	if n := len(s.ListRooms()); n != 1 {
		t.Fatalf("ListRooms() = %d rooms, want 1", n)
	}
}

func TestDeleteRoomIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	s.SaveRoom(&session.Room{RoomID: "r1", Game: gungi.New()})

	s.DeleteRoom("r1")
	if _, ok := s.GetRoom("r1"); ok {
		t.Fatal("room still present after delete")
	}
	// Deleting again, or deleting something unknown, is a no-op.
	s.DeleteRoom("r1")
	s.DeleteRoom("never-existed")
}
