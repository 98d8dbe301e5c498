package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNickTaken is returned when a login names a reserved nick without its
// reconnection token.
var ErrNickTaken = errors.New("nickname already taken")

// Registry maps nicks to live sessions. It is shared across rooms and safe
// for concurrent lookup and rebind; it is created at process start and
// drained at shutdown.
type Registry struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	store          Store
	openingBalance int
}

func NewRegistry(store Store, openingBalance int) *Registry {
	return &Registry{
		sessions:       make(map[string]*Session),
		store:          store,
		openingBalance: openingBalance,
	}
}

// Login reserves a nick, or restores the existing session when the caller
// presents its reconnection token. The second return reports restoration.
func (r *Registry) Login(ctx context.Context, nick, token string) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[nick]; ok {
		if token == "" || token != s.Token {
			return nil, false, ErrNickTaken
		}
		return s, true, nil
	}

	balance := r.openingBalance
	if b, ok, err := r.store.Balance(ctx, nick); err == nil && ok {
		balance = b
	}

	s := &Session{
		Nick:    nick,
		Token:   uuid.NewString(),
		balance: balance,
	}
	r.sessions[nick] = s
	return s, false, nil
}

// Get resolves a nick to its live session.
func (r *Registry) Get(nick string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[nick]
	return s, ok
}

// PersistBalance mirrors the session's balance into the store.
func (r *Registry) PersistBalance(ctx context.Context, s *Session) error {
	return r.store.SetBalance(ctx, s.Nick, s.Balance())
}

// Drop forgets a session entirely.
func (r *Registry) Drop(nick string) {
	r.mu.Lock()
	delete(r.sessions, nick)
	r.mu.Unlock()
}
