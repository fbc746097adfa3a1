package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-holder lease on a key. The lease expires after ttl so a
// crashed holder cannot block other processes forever.
type Lock struct {
	client *Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

// NewLock returns a lock on key with the given lease duration.
func (c *Client) NewLock(key string, ttl time.Duration) *Lock {
	return &Lock{client: c, key: key, ttl: ttl}
}

// TryAcquire attempts to take the lease without blocking. It reports false
// when another holder owns it.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	token, err := newToken()
	if err != nil {
		return false, err
	}
	ok, err := l.client.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring lock %s: %w", l.key, err)
	}
	if !ok {
		return false, nil
	}
	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

// Release gives up the lease if this Lock still holds it.
func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client.rdb, []string{l.key}, token).Err(); err != nil && !IsNilError(err) {
		return fmt.Errorf("releasing lock %s: %w", l.key, err)
	}
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating lock token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
