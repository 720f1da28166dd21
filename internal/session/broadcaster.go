package session

// Broadcaster delivers room-scoped events to every connected member.
// The websocket hub implements it; tests substitute a recording fake.
type Broadcaster interface {
	Broadcast(roomID string, event string, data interface{})
	// CloseRoom drops the transport group for a destroyed room.
	CloseRoom(roomID string)
}
