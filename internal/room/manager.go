package room

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"blackjack/internal/game"
	"blackjack/internal/session"
	"blackjack/internal/utils"
	"blackjack/internal/websocket"
)

// GameConfig carries the per-table game parameters.
type GameConfig struct {
	NumDecks       int
	MaxSeats       int
	OpeningBalance int
}

// Manager owns the live rooms and routes transport events to them.
type Manager struct {
	mu         sync.RWMutex
	rooms      map[string]*Room
	nickToRoom map[string]string

	hub      websocket.HubInterface
	registry *session.Registry
	gameCfg  GameConfig
	roomCfg  Config
	ledger   Ledger
}

func NewManager(hub websocket.HubInterface, registry *session.Registry, gameCfg GameConfig, roomCfg Config, ledger Ledger) *Manager {
	return &Manager{
		rooms:      make(map[string]*Room),
		nickToRoom: make(map[string]string),
		hub:        hub,
		registry:   registry,
		gameCfg:    gameCfg,
		roomCfg:    roomCfg,
		ledger:     ledger,
	}
}

// CreateRoom spins up an empty room and returns it.
func (m *Manager) CreateRoom() *Room {
	id := uuid.NewString()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	g := game.New(m.gameCfg.NumDecks, m.gameCfg.MaxSeats, rng)
	r := New(id, g, m.hub, m.roomCfg, m.removeRoom, m.releasePlayer, m.ledger)

	m.mu.Lock()
	m.rooms[id] = r
	m.mu.Unlock()

	utils.Log.Info("room created", "room", shortID(id))
	return r
}

// Rooms lists every live room for the lobby.
func (m *Manager) Rooms() []Info {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info())
	}
	return infos
}

// Join seats a session in the given room. A session already routed to the
// same room rejoins as a reconnect; one routed elsewhere is refused.
func (m *Manager) Join(roomID, nick string) error {
	s, ok := m.registry.Get(nick)
	if !ok {
		return errors.New("no such session, log in first")
	}

	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return errors.New("no such room")
	}
	if cur, seated := m.nickToRoom[nick]; seated && cur != roomID {
		m.mu.Unlock()
		return errors.New("already seated in another room")
	}
	m.nickToRoom[nick] = roomID
	m.mu.Unlock()

	if err := r.HandleJoin(s); err != nil {
		m.mu.Lock()
		if m.nickToRoom[nick] == roomID {
			delete(m.nickToRoom, nick)
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

type joinPayload struct {
	RoomID string `json:"room_id"`
}

// HandleIncoming is the hub's message callback. It runs on a connection's
// read goroutine, so blocking on a room lock here is safe.
func (m *Manager) HandleIncoming(msg websocket.IncomingMessage) {
	switch msg.Event {
	case "join":
		var p joinPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.RoomID == "" {
			m.sendError(msg.From, "invalid join payload")
			return
		}
		if err := m.Join(p.RoomID, msg.From); err != nil {
			m.sendError(msg.From, err.Error())
		}

	case "action":
		var act websocket.ActionPayload
		if err := json.Unmarshal(msg.Data, &act); err != nil {
			m.sendError(msg.From, "invalid action payload")
			return
		}
		r, ok := m.roomFor(msg.From)
		if !ok {
			m.sendError(msg.From, "join a room first")
			return
		}
		r.HandleAction(msg.From, act)

	case "leave":
		r, ok := m.roomFor(msg.From)
		if !ok {
			return
		}
		r.HandleLeave(msg.From)
		m.mu.Lock()
		delete(m.nickToRoom, msg.From)
		m.mu.Unlock()

	default:
		m.sendError(msg.From, "unknown event: "+msg.Event)
	}
}

// HandleDisconnect is the hub's disconnect callback. The seat survives; the
// player can reconnect until kicked by a timeout.
func (m *Manager) HandleDisconnect(nick string) {
	if r, ok := m.roomFor(nick); ok {
		r.HandleDisconnect(nick)
	}
}

func (m *Manager) roomFor(nick string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.nickToRoom[nick]
	if !ok {
		return nil, false
	}
	r, ok := m.rooms[id]
	return r, ok
}

// removeRoom is the room's onEmpty callback, invoked off the room goroutine.
func (m *Manager) removeRoom(roomID string) {
	m.mu.Lock()
	delete(m.rooms, roomID)
	for nick, id := range m.nickToRoom {
		if id == roomID {
			delete(m.nickToRoom, nick)
		}
	}
	m.mu.Unlock()
	utils.Log.Info("room destroyed", "room", shortID(roomID))
}

// releasePlayer is the room's onRemoved callback: the seat's balance has
// been written back to the session; persist it and drop the routing entry.
func (m *Manager) releasePlayer(s *session.Session) {
	m.mu.Lock()
	delete(m.nickToRoom, s.Nick)
	m.mu.Unlock()

	if err := m.registry.PersistBalance(context.Background(), s); err != nil {
		utils.Log.Error("failed to persist balance", "nick", s.Nick, "err", err)
	}
}

func (m *Manager) sendError(nick, msg string) {
	m.hub.SendToPlayer(nick, websocket.OutgoingMessage{Event: "error", Data: msg})
}
