package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store mirrors per-nick balances so a player who leaves a room can be
// re-seated elsewhere with the balance they walked away with.
type Store interface {
	SetBalance(ctx context.Context, nick string, balance int) error
	Balance(ctx context.Context, nick string) (int, bool, error)
}

type memStore struct {
	mu       sync.Mutex
	balances map[string]int
}

func NewMemoryStore() Store {
	return &memStore{balances: make(map[string]int)}
}

func (m *memStore) SetBalance(ctx context.Context, nick string, balance int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[nick] = balance
	return nil
}

func (m *memStore) Balance(ctx context.Context, nick string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[nick]
	return b, ok, nil
}

type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb, ttl: 24 * time.Hour}
}

func balanceKey(nick string) string {
	return fmt.Sprintf("bj:balance:%s", nick)
}

func (r *redisStore) SetBalance(ctx context.Context, nick string, balance int) error {
	return r.rdb.Set(ctx, balanceKey(nick), balance, r.ttl).Err()
}

func (r *redisStore) Balance(ctx context.Context, nick string) (int, bool, error) {
	val, err := r.rdb.Get(ctx, balanceKey(nick)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	b, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, err
	}
	return b, true, nil
}
