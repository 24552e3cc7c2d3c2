package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AdmissionGuard limits each user to one live quiz. Acquire fails fast with
// ErrSessionActive instead of waiting or replacing the holder. Release only
// frees the slot when token still holds it.
type AdmissionGuard interface {
	Acquire(ctx context.Context, userID int64, token string) error
	Release(ctx context.Context, userID int64, token string) error
}

type MemoryAdmission struct {
	mu      sync.Mutex
	holders map[int64]string
}

func NewMemoryAdmission() *MemoryAdmission {
	return &MemoryAdmission{holders: make(map[int64]string)}
}

func (m *MemoryAdmission) Acquire(_ context.Context, userID int64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.holders[userID]; busy {
		return ErrSessionActive
	}
	m.holders[userID] = token
	return nil
}

func (m *MemoryAdmission) Release(_ context.Context, userID int64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.holders[userID] == token {
		delete(m.holders, userID)
	}
	return nil
}

// RedisAdmission shares the one-quiz-per-user slot between bot replicas. The
// TTL bounds how long a crashed replica can hold a slot.
type RedisAdmission struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisAdmission(client *redis.Client, ttl time.Duration) *RedisAdmission {
	return &RedisAdmission{client: client, ttl: ttl, prefix: "quiz:active:"}
}

func (r *RedisAdmission) key(userID int64) string {
	return fmt.Sprintf("%s%d", r.prefix, userID)
}

func (r *RedisAdmission) Acquire(ctx context.Context, userID int64, token string) error {
	ok, err := r.client.SetNX(ctx, r.key(userID), token, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire quiz slot: %w", err)
	}
	if !ok {
		return ErrSessionActive
	}
	return nil
}

func (r *RedisAdmission) Release(ctx context.Context, userID int64, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.key(userID)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release quiz slot: %w", err)
	}
	return nil
}
