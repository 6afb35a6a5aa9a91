package sequence

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Store kinds accepted by NewStore.
const (
	StoreSQL    = "sql"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Backends carries the connections a store may be built on.
type Backends struct {
	DB          *sqlx.DB
	Redis       redis.UniversalClient
	RedisPrefix string
}

// NewStore resolves a configured store kind (case-insensitive) to a CounterStore.
func NewStore(kind string, b Backends) (CounterStore, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", StoreSQL:
		if b.DB == nil {
			return nil, fmt.Errorf("sequence store %q needs a database connection", StoreSQL)
		}
		return NewSQLStore(b.DB), nil
	case StoreRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("sequence store %q needs a redis client", StoreRedis)
		}
		return NewRedisStore(b.Redis, b.RedisPrefix), nil
	case StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown sequence store: %s", kind)
	}
}
