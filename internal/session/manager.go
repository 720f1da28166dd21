package session

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"gungi-server/internal/config"
	"gungi-server/internal/gungi"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not in room")
	ErrIllegalMove  = errors.New("illegal move")
)

// Manager owns the room registry, the roster inside each room and the
// userId -> roomId index used to tell returning players apart from new
// spectators. All room mutations run under that room's lock together
// with the broadcast announcing them.
type Manager struct {
	store Store
	cfg   config.Config
	bc    Broadcaster

	mu       sync.Mutex
	userRoom map[string]string
}

func NewManager(s Store, cfg config.Config, bc Broadcaster) *Manager {
	return &Manager{
		store:    s,
		cfg:      cfg,
		bc:       bc,
		userRoom: make(map[string]string),
	}
}

// SetBroadcaster wires the hub in after construction, since the hub
// itself depends on the manager.
func (m *Manager) SetBroadcaster(bc Broadcaster) {
	m.bc = bc
}

func (m *Manager) bind(userID, roomID string) {
	m.mu.Lock()
	m.userRoom[userID] = roomID
	m.mu.Unlock()
}

// unbindIf releases an identity binding only while it still points at
// the given room. A token live in two rooms keeps its newer binding
// when the older room goes away.
func (m *Manager) unbindIf(userID, roomID string) {
	m.mu.Lock()
	if m.userRoom[userID] == roomID {
		delete(m.userRoom, userID)
	}
	m.mu.Unlock()
}

// BoundRoom returns the room currently associated with an identity
// token, or "" if there is none.
func (m *Manager) BoundRoom(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userRoom[userID]
}

// CreateRoom registers a fresh room with an empty roster and its own
// engine instance.
func (m *Manager) CreateRoom() *Room {
	r := &Room{
		RoomID: uuid.NewString(),
		Game:   gungi.New(),
	}
	m.store.SaveRoom(r)
	return r
}

func (m *Manager) Get(roomID string) (*Room, bool) {
	return m.store.GetRoom(roomID)
}

// ListAll returns a snapshot of every live room for discovery.
func (m *Manager) ListAll() []RoomSummary {
	rooms := m.store.ListRooms()
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		out = append(out, RoomSummary{
			RoomID:      r.RoomID,
			Users:       r.snapshotUsers(),
			GameStarted: r.GameStarted,
		})
		r.mu.Unlock()
	}
	return out
}

// Roster returns a copy of a room's current member list.
func (m *Manager) Roster(roomID string) ([]User, error) {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotUsers(), nil
}

// State snapshots the room's current game state under the room lock.
func (m *Manager) State(roomID string) (gungi.State, error) {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		return gungi.State{}, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Game.State(), nil
}

// Resolve classifies a new connection as room creation, spectator join
// or player reconnect, using only the identity token and the optional
// room hint. Every successful resolution ends with a roomId and users
// broadcast to the resolved room.
func (m *Manager) Resolve(userID, username, roomHint string) (string, Role, error) {
	if roomHint == "" {
		r := m.CreateRoom()
		r.mu.Lock()
		defer r.mu.Unlock()
		m.addUserLocked(r, userID, username, RoleCreator)
		m.broadcastRosterLocked(r)
		log.Printf("room %s created by %s", r.RoomID, userID)
		return r.RoomID, RoleCreator, nil
	}

	r, ok := m.store.GetRoom(roomHint)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrRoomNotFound, roomHint)
	}
	bound := m.BoundRoom(userID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return "", "", fmt.Errorf("%w: %s", ErrRoomNotFound, roomHint)
	}

	if u := r.findUser(userID); u != nil && bound == roomHint {
		// Returning player: same token, same room. Keep the existing
		// roster slot and role.
		u.Connected = true
		m.bc.Broadcast(r.RoomID, "user_reconnected", map[string]interface{}{
			"username": u.Username,
		})
		m.broadcastRosterLocked(r)
		log.Printf("user %s reconnected to room %s as %s", userID, r.RoomID, u.Role)
		return r.RoomID, u.Role, nil
	}

	u := m.addUserLocked(r, userID, username, RoleSpectator)
	m.broadcastRosterLocked(r)
	return r.RoomID, u.Role, nil
}

// AddUser appends a new roster entry unless the userId is already
// present. The first user of a room is always the creator, whatever
// role was requested.
func (m *Manager) AddUser(roomID, userID, username string, role Role) error {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	m.addUserLocked(r, userID, username, role)
	return nil
}

func (m *Manager) addUserLocked(r *Room, userID, username string, role Role) *User {
	if u := r.findUser(userID); u != nil {
		u.Connected = true
		return u
	}
	if len(r.Users) == 0 {
		role = RoleCreator
	}
	u := &User{UserID: userID, Username: username, Role: role, Connected: true}
	r.Users = append(r.Users, u)
	r.pinCreatorFirst()
	m.bind(userID, r.RoomID)
	return u
}

// MarkConnected flags a roster entry as connected again and notifies
// the room.
func (m *Manager) MarkConnected(roomID, userID string) error {
	return m.setConnected(roomID, userID, true, "user_reconnected")
}

// MarkDisconnected flags a roster entry as gone and notifies the room.
func (m *Manager) MarkDisconnected(roomID, userID string) error {
	return m.setConnected(roomID, userID, false, "user_disconnected")
}

func (m *Manager) setConnected(roomID, userID string, connected bool, event string) error {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.findUser(userID)
	if u == nil {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	u.Connected = connected
	m.bc.Broadcast(roomID, event, map[string]interface{}{"username": u.Username})
	return nil
}

// Promote rewrites a roster entry's role. A missing room or user is
// logged and ignored.
func (m *Manager) Promote(roomID, userID string, role Role) {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		log.Printf("promote: room %s not found", roomID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m.promoteLocked(r, userID, role)
}

func (m *Manager) promoteLocked(r *Room, userID string, role Role) {
	u := r.findUser(userID)
	if u == nil {
		log.Printf("promote: user %s not in room %s", userID, r.RoomID)
		return
	}
	u.Role = role
	r.pinCreatorFirst()
}

// Remove deletes a roster entry entirely. Only spectators are removed
// this way; player slots survive disconnects.
func (m *Manager) Remove(roomID, userID string) {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m.removeLocked(r, userID)
}

func (m *Manager) removeLocked(r *Room, userID string) {
	for i, u := range r.Users {
		if u.UserID == userID {
			r.Users = append(r.Users[:i], r.Users[i+1:]...)
			break
		}
	}
	r.pinCreatorFirst()
	m.unbindIf(userID, r.RoomID)
}

// StartGame flips the room into its started state, promotes the chosen
// opponent and announces the initial position. The started flag only
// ever transitions once.
func (m *Manager) StartGame(roomID, opponentID string) error {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if !r.GameStarted {
		r.GameStarted = true
		m.promoteLocked(r, opponentID, RoleOpponent)
	}
	m.bc.Broadcast(roomID, "game", map[string]interface{}{
		"gameState": r.Game.State(),
		"players":   r.snapshotUsers(),
	})
	return nil
}

// Spectate re-sends the running game to the room, for late spectators.
func (m *Manager) Spectate(roomID string) error {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m.bc.Broadcast(roomID, "game", map[string]interface{}{
		"gameState": r.Game.State(),
		"players":   r.snapshotUsers(),
	})
	return nil
}

// ApplyMove relays one action into the room's engine. A "ready" move
// is announced to the room before the engine sees it. An engine
// rejection leaves the room untouched and is reported to the caller
// only; an accepted move is followed by a game_updated broadcast.
func (m *Manager) ApplyMove(roomID, userID string, mv gungi.Move) error {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if mv.Type == "ready" {
		m.bc.Broadcast(roomID, "readied", map[string]interface{}{
			"userId": userID,
		})
	}
	if err := r.Game.ApplyMove(mv); err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	m.bc.Broadcast(roomID, "game_updated", map[string]interface{}{
		"gameState": r.Game.State(),
	})
	return nil
}

// EndGame destroys a room on an explicit finish or forfeit and
// announces the result. The room is the one the acting connection
// belongs to. Destroying an already destroyed room is a no-op.
func (m *Manager) EndGame(roomID string, forfeit bool) error {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		// The room may already be gone through the other teardown
		// path; a second end-of-game is a no-op.
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return nil
	}
	st := r.Game.State()
	msg := resultMessage(st, forfeit)
	m.destroyLocked(r, "game_over_notification", map[string]interface{}{
		"message": msg,
	})
	log.Printf("room %s ended: %q", roomID, msg)
	return nil
}

// resultMessage picks the human-readable outcome, first match wins.
func resultMessage(st gungi.State, forfeit bool) string {
	switch {
	case st.InStalemate:
		return "Stalemate"
	case st.InCheckmate && st.Turn == "b":
		return "White Wins"
	case st.InCheckmate && st.Turn == "w":
		return "Black Wins"
	case forfeit && st.Turn == "b":
		return "Black Forfeits"
	case forfeit && st.Turn == "w":
		return "White Forfeits"
	}
	return ""
}

// HandleDisconnect applies the disconnect policy for one user in one
// room, then tears the room down if it is abandoned. Spectators leave
// the roster; players keep their slot for a later reconnect. The room
// is the one the closed connection belonged to, never inferred from
// the identity binding: the same token may be live in another room and
// that room must not be touched.
func (m *Manager) HandleDisconnect(roomID, userID string) {
	r, ok := m.store.GetRoom(roomID)
	if !ok {
		m.unbindIf(userID, roomID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	u := r.findUser(userID)
	if u == nil {
		m.unbindIf(userID, roomID)
		return
	}
	if u.Role == RoleSpectator {
		m.removeLocked(r, userID)
		m.bc.Broadcast(roomID, "users_updated", map[string]interface{}{
			"users": r.snapshotUsers(),
		})
	} else {
		u.Connected = false
		m.bc.Broadcast(roomID, "user_disconnected", map[string]interface{}{
			"username": u.Username,
		})
	}
	if r.connectedCount() <= m.cfg.AbandonThreshold {
		m.destroyLocked(r, "game_destroyed", nil)
		log.Printf("room %s destroyed: abandoned", roomID)
	}
}

// destroyLocked performs the idempotent teardown: remove the room from
// the registry, release every identity binding, notify the members
// still attached to the transport group and finally drop the group.
func (m *Manager) destroyLocked(r *Room, event string, data interface{}) {
	if r.destroyed {
		return
	}
	r.destroyed = true
	m.store.DeleteRoom(r.RoomID)
	for _, u := range r.Users {
		m.unbindIf(u.UserID, r.RoomID)
	}
	m.bc.Broadcast(r.RoomID, event, data)
	m.bc.CloseRoom(r.RoomID)
}

func (m *Manager) broadcastRosterLocked(r *Room) {
	m.bc.Broadcast(r.RoomID, "roomId", r.RoomID)
	m.bc.Broadcast(r.RoomID, "users", r.snapshotUsers())
}
