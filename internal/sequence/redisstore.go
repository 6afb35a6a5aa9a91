package sequence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each counter under <prefix><name> and increments it with
// INCR, which Redis executes atomically. Durability follows the server's
// persistence settings (appendonly is expected in production).
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store using client. prefix defaults to "sequence:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sequence:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(name string) string { return s.prefix + name }

// Increment implements CounterStore.
func (s *RedisStore) Increment(ctx context.Context, name string) (int64, error) {
	v, err := s.client.Incr(ctx, s.key(name)).Result()
	if err != nil {
		return 0, classifyRedis(err)
	}
	return v, nil
}

// Current implements CounterStore.
func (s *RedisStore) Current(ctx context.Context, name string) (int64, error) {
	raw, err := s.client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, classifyRedis(err)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, storageError(fmt.Errorf("corrupt counter %q: %w", name, err))
	}
	return v, nil
}

func classifyRedis(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return unavailable(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return unavailable(err)
	}
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		msg := replyErr.Error()
		for _, p := range []string{"LOADING", "BUSY", "TRYAGAIN", "CLUSTERDOWN", "MASTERDOWN", "READONLY"} {
			if strings.HasPrefix(msg, p) {
				return unavailable(err)
			}
		}
		// WRONGTYPE, "value is not an integer", overflow...
		return storageError(err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "pool timeout") {
		return unavailable(err)
	}
	return storageError(err)
}
