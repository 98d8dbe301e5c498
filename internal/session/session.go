package session

import "sync"

// Session is a stable identity: a reserved nick plus its reconnection token.
// The balance field is only authoritative while the player is NOT seated at
// a room; at seat time the room's game takes over, and the room writes the
// final balance back on leave.
type Session struct {
	Nick  string
	Token string

	mu      sync.Mutex
	balance int
	roomID  string
}

func (s *Session) Balance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

func (s *Session) SetBalance(n int) {
	s.mu.Lock()
	s.balance = n
	s.mu.Unlock()
}

func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

func (s *Session) SetRoomID(id string) {
	s.mu.Lock()
	s.roomID = id
	s.mu.Unlock()
}
