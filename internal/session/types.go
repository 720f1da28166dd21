package session

import (
	"sync"

	"gungi-server/internal/gungi"
)

// Role is a user's seat inside a room.
type Role string

const (
	RoleCreator   Role = "creator"
	RoleOpponent  Role = "opponent"
	RoleSpectator Role = "spectator"
)

// User is one roster entry. UserID is the client-held identity token
// that survives transport reconnects; it is unique within a room.
type User struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Role      Role   `json:"userType"`
	Connected bool   `json:"connected"`
}

// Room is one match: a roster, a started flag and its own engine
// instance. All mutations are serialized through mu, including the
// broadcast that announces them, so members observe a single order.
type Room struct {
	RoomID      string
	Users       []*User
	GameStarted bool
	Game        *gungi.Game

	mu        sync.Mutex
	destroyed bool
}

// RoomSummary is the read-only projection served by the discovery
// endpoint.
type RoomSummary struct {
	RoomID      string `json:"roomId"`
	Users       []User `json:"users"`
	GameStarted bool   `json:"gameStarted"`
}

// Store owns the roomId -> Room mapping. DeleteRoom on an unknown id
// is a no-op.
type Store interface {
	GetRoom(roomID string) (*Room, bool)
	SaveRoom(r *Room)
	DeleteRoom(roomID string)
	ListRooms() []*Room
}

func (r *Room) findUser(userID string) *User {
	for _, u := range r.Users {
		if u.UserID == userID {
			return u
		}
	}
	return nil
}

// pinCreatorFirst moves the creator, if any, to index 0 without
// disturbing the relative order of the rest. Runs after every roster
// mutation.
func (r *Room) pinCreatorFirst() {
	for i, u := range r.Users {
		if u.Role != RoleCreator || i == 0 {
			continue
		}
		creator := r.Users[i]
		copy(r.Users[1:i+1], r.Users[:i])
		r.Users[0] = creator
		return
	}
}

// snapshotUsers copies the roster for use outside the room lock.
func (r *Room) snapshotUsers() []User {
	out := make([]User, 0, len(r.Users))
	for _, u := range r.Users {
		out = append(out, *u)
	}
	return out
}

func (r *Room) connectedCount() int {
	n := 0
	for _, u := range r.Users {
		if u.Connected {
			n++
		}
	}
	return n
}
