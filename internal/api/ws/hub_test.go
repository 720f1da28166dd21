package ws

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gungi-server/internal/config"
	"gungi-server/internal/gungi"
	"gungi-server/internal/session"
	"gungi-server/internal/store"
)

const timeout = 2 * time.Second

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// startTestServer wires a full hub + manager + store behind httptest.
func startTestServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		CORSOrigin:       "*",
		PingInterval:     time.Second,
		PingTimeout:      10 * time.Second,
		AbandonThreshold: 0,
	}
	m := session.NewManager(store.NewMemoryStore(), cfg, nil)
	hub := NewHub(m, cfg)
	m.SetBroadcaster(hub)

	r := gin.New()
	r.GET("/ws", hub.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, m
}

// wsDial connects as the given identity, optionally with a room hint.
func wsDial(t *testing.T, srv *httptest.Server, userID, username, gameID string) *websocket.Conn {
	t.Helper()
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("username", username)
	if gameID != "" {
		q.Set("gameId", gameID)
	}
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + q.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitFor reads events until one with the wanted name arrives.
func waitFor(t *testing.T, conn *websocket.Conn, event string) envelope {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(timeout))
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		if msg.Event == event {
			return msg
		}
	}
	t.Fatalf("timed out waiting for %q", event)
	return envelope{}
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	if err := conn.WriteJSON(map[string]interface{}{"event": event, "data": data}); err != nil {
		t.Fatalf("write %q failed: %v", event, err)
	}
}

func roomIDOf(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	msg := waitFor(t, conn, "roomId")
	var roomID string
	if err := json.Unmarshal(msg.Data, &roomID); err != nil {
		t.Fatalf("bad roomId payload: %v", err)
	}
	return roomID
}

func TestConnectWithoutHintCreatesRoom(t *testing.T) {
	srv, _ := startTestServer(t)
	conn := wsDial(t, srv, "alice", "Alice", "")

	roomID := roomIDOf(t, conn)
	if roomID == "" {
		t.Fatal("empty room id")
	}

	msg := waitFor(t, conn, "users")
	var users []session.User
	if err := json.Unmarshal(msg.Data, &users); err != nil {
		t.Fatalf("bad users payload: %v", err)
	}
	if len(users) != 1 || users[0].Role != session.RoleCreator || !users[0].Connected {
		t.Fatalf("unexpected roster: %+v", users)
	}
}

func TestSpectatorJoinAndPromotion(t *testing.T) {
	srv, _ := startTestServer(t)
	alice := wsDial(t, srv, "alice", "Alice", "")
	roomID := roomIDOf(t, alice)

	bob := wsDial(t, srv, "bob", "Bob", roomID)
	if got := roomIDOf(t, bob); got != roomID {
		t.Fatalf("bob resolved into %s, want %s", got, roomID)
	}

	sendEvent(t, alice, "init_game", map[string]interface{}{
		"opponentId": "bob",
		"roomId":     roomID,
	})

	msg := waitFor(t, bob, "game")
	var payload struct {
		Players []session.User `json:"players"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("bad game payload: %v", err)
	}
	if len(payload.Players) != 2 {
		t.Fatalf("want 2 players, got %d", len(payload.Players))
	}
	if payload.Players[0].UserID != "alice" || payload.Players[0].Role != session.RoleCreator {
		t.Fatalf("index 0 = %+v, want alice as creator", payload.Players[0])
	}
	if payload.Players[1].UserID != "bob" || payload.Players[1].Role != session.RoleOpponent {
		t.Fatalf("index 1 = %+v, want bob as opponent", payload.Players[1])
	}
}

func TestReadyMoveBroadcasts(t *testing.T) {
	srv, _ := startTestServer(t)
	alice := wsDial(t, srv, "alice", "Alice", "")
	roomID := roomIDOf(t, alice)

	sendEvent(t, alice, "make_move", map[string]interface{}{
		"roomId": roomID,
		"move":   map[string]interface{}{"type": "ready", "color": "w"},
	})

	msg := waitFor(t, alice, "readied")
	var readied struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(msg.Data, &readied); err != nil {
		t.Fatalf("bad readied payload: %v", err)
	}
	if readied.UserID != "alice" {
		t.Fatalf("readied.userId = %s, want alice", readied.UserID)
	}
	waitFor(t, alice, "game_updated")
}

func TestJoinerReceivesGameSnapshot(t *testing.T) {
	srv, _ := startTestServer(t)
	alice := wsDial(t, srv, "alice", "Alice", "")
	roomID := roomIDOf(t, alice)

	// First game_updated is alice's own connect-time snapshot; the
	// second confirms the placement was applied.
	waitFor(t, alice, "game_updated")
	sendEvent(t, alice, "make_move", map[string]interface{}{
		"roomId": roomID,
		"move":   map[string]interface{}{"type": "place", "color": "w", "piece": "pawn", "to": "c3"},
	})
	waitFor(t, alice, "game_updated")

	// A joiner gets its own state snapshot right after the roster, so
	// anything applied before it was in the broadcast group is covered.
	bob := wsDial(t, srv, "bob", "Bob", roomID)
	roomIDOf(t, bob)
	msg := waitFor(t, bob, "game_updated")
	var payload struct {
		GameState struct {
			Phase string                   `json:"phase"`
			Board map[string][]gungi.Piece `json:"board"`
		} `json:"gameState"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("bad game_updated payload: %v", err)
	}
	if payload.GameState.Phase != gungi.PhaseDraft {
		t.Fatalf("snapshot phase = %q, want draft", payload.GameState.Phase)
	}
	if tower := payload.GameState.Board["c3"]; len(tower) != 1 || tower[0].Type != "pawn" {
		t.Fatalf("snapshot missed the placed piece: %+v", payload.GameState.Board)
	}
}

func TestIllegalMoveReportedToSenderOnly(t *testing.T) {
	srv, _ := startTestServer(t)
	alice := wsDial(t, srv, "alice", "Alice", "")
	roomID := roomIDOf(t, alice)

	sendEvent(t, alice, "make_move", map[string]interface{}{
		"roomId": roomID,
		"move":   map[string]interface{}{"type": "teleport"},
	})

	msg := waitFor(t, alice, "error")
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("bad error payload: %v", err)
	}
	if !strings.Contains(payload.Message, "illegal move") {
		t.Fatalf("error message = %q, want illegal move", payload.Message)
	}
}

func TestUnknownRoomHintRejected(t *testing.T) {
	srv, _ := startTestServer(t)
	conn := wsDial(t, srv, "alice", "Alice", "no-such-room")

	msg := waitFor(t, conn, "error")
	if !strings.Contains(string(msg.Data), "room not found") {
		t.Fatalf("unexpected error payload: %s", msg.Data)
	}
}

func TestSpectatorDisconnectUpdatesRoster(t *testing.T) {
	srv, _ := startTestServer(t)
	alice := wsDial(t, srv, "alice", "Alice", "")
	roomID := roomIDOf(t, alice)

	bob := wsDial(t, srv, "bob", "Bob", roomID)
	roomIDOf(t, bob)

	// Alice sees the two-member roster before bob drops.
	for {
		msg := waitFor(t, alice, "users")
		var users []session.User
		if err := json.Unmarshal(msg.Data, &users); err != nil {
			t.Fatalf("bad users payload: %v", err)
		}
		if len(users) == 2 {
			break
		}
	}

	bob.Close()

	msg := waitFor(t, alice, "users_updated")
	var payload struct {
		Users []session.User `json:"users"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("bad users_updated payload: %v", err)
	}
	if len(payload.Users) != 1 || payload.Users[0].UserID != "alice" {
		t.Fatalf("unexpected roster after spectator left: %+v", payload.Users)
	}
}

func TestGameOverForfeitNotification(t *testing.T) {
	srv, m := startTestServer(t)
	alice := wsDial(t, srv, "alice", "Alice", "")
	roomID := roomIDOf(t, alice)

	sendEvent(t, alice, "game_over", map[string]interface{}{"forfeit": true})

	msg := waitFor(t, alice, "game_over_notification")
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.Message != "White Forfeits" {
		t.Fatalf("message = %q, want White Forfeits", payload.Message)
	}

	// Registry must drop the room once the notification is out.
	deadline := time.Now().Add(timeout)
	for {
		if _, ok := m.Get(roomID); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("room still registered after game over")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSupersededConnectionIsClosed(t *testing.T) {
	srv, _ := startTestServer(t)
	first := wsDial(t, srv, "alice", "Alice", "")
	roomID := roomIDOf(t, first)

	second := wsDial(t, srv, "alice", "Alice", roomID)
	if got := roomIDOf(t, second); got != roomID {
		t.Fatalf("reconnect resolved into %s, want %s", got, roomID)
	}

	// The old transport is told it lost and then closed.
	first.SetReadDeadline(time.Now().Add(timeout))
	sawClose := false
	for !sawClose {
		var msg envelope
		if err := first.ReadJSON(&msg); err != nil {
			sawClose = true
			continue
		}
		if msg.Event == "error" && strings.Contains(string(msg.Data), "superseded") {
			sawClose = true
		}
	}

	// The newer connection still works.
	sendEvent(t, second, "make_move", map[string]interface{}{
		"roomId": roomID,
		"move":   map[string]interface{}{"type": "ready", "color": "w"},
	})
	waitFor(t, second, "readied")
}

func TestSecondTabLeavesNewRoomIntact(t *testing.T) {
	srv, m := startTestServer(t)

	// Alice opens a room, then opens a second tab without a hint and
	// lands in a fresh room. Two live connections, two rooms, one
	// identity token.
	first := wsDial(t, srv, "alice", "Alice", "")
	oldRoom := roomIDOf(t, first)
	second := wsDial(t, srv, "alice", "Alice", "")
	newRoom := roomIDOf(t, second)
	if oldRoom == newRoom {
		t.Fatalf("second tab reused room %s", oldRoom)
	}

	// Closing the first tab reaps its now-abandoned room and nothing
	// else.
	first.Close()
	deadline := time.Now().Add(timeout)
	for {
		if _, ok := m.Get(oldRoom); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("abandoned first room still registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := m.Get(newRoom); !ok {
		t.Fatal("closing the first tab destroyed the second tab's room")
	}
	users, err := m.Roster(newRoom)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || !users[0].Connected {
		t.Fatalf("second room roster corrupted: %+v", users)
	}

	// The second tab keeps working.
	sendEvent(t, second, "make_move", map[string]interface{}{
		"roomId": newRoom,
		"move":   map[string]interface{}{"type": "ready", "color": "w"},
	})
	waitFor(t, second, "readied")
}

func TestTwoCreatorsGetDistinctRooms(t *testing.T) {
	srv, _ := startTestServer(t)
	rooms := map[string]bool{}
	for i := 0; i < 2; i++ {
		conn := wsDial(t, srv, fmt.Sprintf("user-%d", i), "User", "")
		rooms[roomIDOf(t, conn)] = true
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 distinct rooms, got %d", len(rooms))
	}
}
