package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gungi-server/internal/config"
	"gungi-server/internal/gungi"
)

// client is one websocket connection bound to a room and an identity
// token. Writes are serialized through wmu since broadcasts and pings
// come from different goroutines.
type client struct {
	conn   *websocket.Conn
	wmu    sync.Mutex
	userID string
	roomID string
}

func (cl *client) send(event string, data interface{}) error {
	cl.wmu.Lock()
	defer cl.wmu.Unlock()
	return cl.conn.WriteJSON(map[string]interface{}{
		"event": event,
		"data":  data,
	})
}

func (cl *client) ping(timeout time.Duration) error {
	cl.wmu.Lock()
	defer cl.wmu.Unlock()
	return cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

// close sends a close frame and drops the transport, holding wmu so a
// concurrent broadcast never interleaves with the close handshake.
func (cl *client) close(reason string) {
	cl.wmu.Lock()
	defer cl.wmu.Unlock()
	_ = cl.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(time.Second),
	)
	_ = cl.conn.Close()
}

// Hub owns the room-scoped broadcast groups and the read loop of every
// connection. Inbound events form a closed alphabet; anything else is
// dropped at this boundary.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*client]struct{}
	byUser map[string]map[string]*client

	manager SessionManager
	cfg     config.Config
}

func NewHub(manager SessionManager, cfg config.Config) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*client]struct{}),
		byUser:  make(map[string]map[string]*client),
		manager: manager,
		cfg:     cfg,
	}
}

func (h *Hub) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if h.cfg.CORSOrigin == "*" || h.cfg.CORSOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == h.cfg.CORSOrigin
		},
	}
}

// HandleWS upgrades a connection and runs its session. The handshake
// carries the identity token, display name and optional room hint as
// query parameters.
func (h *Hub) HandleWS(c *gin.Context) {
	userID := c.Query("userId")
	username := c.Query("username")
	roomHint := c.Query("gameId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing userId"})
		return
	}

	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	cl := &client{conn: conn, userID: userID}

	roomID, role, err := h.manager.Resolve(userID, username, roomHint)
	if err != nil {
		_ = cl.send("error", gin.H{"message": err.Error()})
		_ = conn.Close()
		return
	}
	cl.roomID = roomID
	h.register(cl)
	log.Printf("user %s joined room %s as %s", userID, roomID, role)

	// The resolution broadcast went out before this connection was in
	// the group, so hand the newcomer its own copy of the room state.
	// Resending the game state also covers any move applied between
	// resolution and registration.
	_ = cl.send("roomId", roomID)
	if users, err := h.manager.Roster(roomID); err == nil {
		_ = cl.send("users", users)
	}
	if state, err := h.manager.State(roomID); err == nil {
		_ = cl.send("game_updated", gin.H{"gameState": state})
	}

	go h.pingLoop(cl)
	h.readLoop(cl)
}

// register adds the client to its room group. A prior connection for
// the same identity is superseded: the newer one wins and the old
// transport is closed.
func (h *Hub) register(cl *client) {
	h.mu.Lock()
	if _, ok := h.rooms[cl.roomID]; !ok {
		h.rooms[cl.roomID] = make(map[*client]struct{})
		h.byUser[cl.roomID] = make(map[string]*client)
	}
	prev := h.byUser[cl.roomID][cl.userID]
	if prev != nil {
		delete(h.rooms[cl.roomID], prev)
	}
	h.rooms[cl.roomID][cl] = struct{}{}
	h.byUser[cl.roomID][cl.userID] = cl
	h.mu.Unlock()

	if prev != nil {
		log.Printf("superseding connection for user %s in room %s", cl.userID, cl.roomID)
		_ = prev.send("error", gin.H{"message": "session superseded by a newer connection"})
		prev.close("superseded")
	}
}

// unregister removes the client and reports whether it was still the
// authoritative connection for its identity.
func (h *Hub) unregister(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[cl.roomID]
	if !ok {
		return false
	}
	delete(clients, cl)
	if h.byUser[cl.roomID][cl.userID] != cl {
		return false
	}
	delete(h.byUser[cl.roomID], cl.userID)
	return true
}

func (h *Hub) readLoop(cl *client) {
	defer func() {
		authoritative := h.unregister(cl)
		_ = cl.conn.Close()
		if authoritative {
			h.manager.HandleDisconnect(cl.roomID, cl.userID)
		}
	}()

	cl.conn.SetReadLimit(4096)
	_ = cl.conn.SetReadDeadline(time.Now().Add(h.cfg.PingTimeout))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(h.cfg.PingTimeout))
	})

	for {
		var msg struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("read error for user %s: %v", cl.userID, err)
			}
			return
		}
		h.dispatch(cl, msg.Event, msg.Data)
	}
}

func (h *Hub) pingLoop(cl *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := cl.ping(h.cfg.PingTimeout); err != nil {
			return
		}
	}
}

func (h *Hub) dispatch(cl *client, event string, data json.RawMessage) {
	switch event {
	case "init_game":
		var req struct {
			OpponentID string `json:"opponentId"`
			RoomID     string `json:"roomId"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			h.reject(cl, "invalid init_game payload")
			return
		}
		if err := h.manager.StartGame(req.RoomID, req.OpponentID); err != nil {
			h.reject(cl, err.Error())
		}
	case "spectate_active_game":
		var req struct {
			GameID string `json:"gameId"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			h.reject(cl, "invalid spectate payload")
			return
		}
		if err := h.manager.Spectate(req.GameID); err != nil {
			h.reject(cl, err.Error())
		}
	case "make_move":
		var req struct {
			RoomID string     `json:"roomId"`
			Move   gungi.Move `json:"move"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			h.reject(cl, "invalid move payload")
			return
		}
		if err := h.manager.ApplyMove(req.RoomID, cl.userID, req.Move); err != nil {
			h.reject(cl, err.Error())
		}
	case "game_over":
		var req struct {
			Forfeit bool `json:"forfeit"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			h.reject(cl, "invalid game_over payload")
			return
		}
		if err := h.manager.EndGame(cl.roomID, req.Forfeit); err != nil {
			h.reject(cl, err.Error())
		}
	default:
		log.Printf("unknown event %q from user %s", event, cl.userID)
	}
}

// reject reports a failure to the originating connection only. Room
// state is never broadcast on a rejected action.
func (h *Hub) reject(cl *client, message string) {
	if err := cl.send("error", gin.H{"message": message}); err != nil {
		log.Printf("failed to report error to user %s: %v", cl.userID, err)
	}
}

// Broadcast sends an event to every member of a room.
func (h *Hub) Broadcast(roomID string, event string, data interface{}) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[roomID]))
	for cl := range h.rooms[roomID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.send(event, data); err != nil {
			log.Printf("broadcast to user %s failed: %v", cl.userID, err)
		}
	}
}

// CloseRoom drops a destroyed room's broadcast group and closes the
// remaining connections.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	clients := h.rooms[roomID]
	delete(h.rooms, roomID)
	delete(h.byUser, roomID)
	h.mu.Unlock()

	for cl := range clients {
		cl.close("room destroyed")
	}
}
