package ws

import (
	"gungi-server/internal/gungi"
	"gungi-server/internal/session"
)

// SessionManager is the slice of the session layer the hub drives.
type SessionManager interface {
	Resolve(userID, username, roomHint string) (string, session.Role, error)
	Roster(roomID string) ([]session.User, error)
	StartGame(roomID, opponentID string) error
	Spectate(roomID string) error
	ApplyMove(roomID, userID string, mv gungi.Move) error
	EndGame(roomID string, forfeit bool) error
	HandleDisconnect(roomID, userID string)
	State(roomID string) (gungi.State, error)
}
