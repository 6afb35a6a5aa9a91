package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/gotrs-io/gotrs-helpdesk/internal/config"
	"github.com/gotrs-io/gotrs-helpdesk/internal/database"
	"github.com/gotrs-io/gotrs-helpdesk/internal/repository"
	"github.com/gotrs-io/gotrs-helpdesk/internal/sequence"
)

// app holds the connections shared by the commands.
type app struct {
	cfg      *config.Config
	db       *sqlx.DB
	redis    redis.UniversalClient
	store    sequence.CounterStore
	alloc    *sequence.Allocator
	registry *prometheus.Registry
	logger   *log.Logger
}

func loadConfig(path string) (*config.Config, error) {
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		return config.LoadFromFile(path)
	}
	return loadDir(path)
}

// loadWatchedConfig is loadConfig for long running commands: a config file
// passed directly is watched too, so reloads reach OnChange listeners.
func loadWatchedConfig(path string) (*config.Config, error) {
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		return config.WatchFile(path)
	}
	return loadDir(path)
}

func loadDir(path string) (*config.Config, error) {
	if err := config.Load(path); err != nil {
		return nil, err
	}
	return config.Get(), nil
}

func usesMemory(cfg *config.Config) bool {
	return strings.EqualFold(cfg.Sequence.Store, sequence.StoreMemory)
}

// openApp connects to the backends the configuration asks for. The database is
// opened unless everything runs in memory; Redis only for the redis store.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		logger:   log.Default(),
	}

	if !usesMemory(cfg) {
		db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.GetDSN(), database.PoolOptions{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
		a.logger.Printf("🗄️  Connected to %s", db.DriverName())
	}

	if strings.EqualFold(cfg.Sequence.Store, sequence.StoreRedis) {
		a.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    cfg.Redis.GetRedisAddrs(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.logger.Printf("📮 Connected to redis %s", strings.Join(cfg.Redis.GetRedisAddrs(), ","))
	}

	store, err := sequence.NewStore(cfg.Sequence.Store, sequence.Backends{
		DB:          a.db,
		Redis:       a.redis,
		RedisPrefix: cfg.Sequence.KeyPrefix,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.alloc = sequence.NewAllocator(store,
		sequence.WithMetrics(sequence.NewMetrics(a.registry)),
		sequence.WithLogger(a.logger),
		sequence.WithDebug(cfg.Logging.Debug),
		sequence.WithTimeout(cfg.Sequence.Timeout),
	)
	return a, nil
}

// ticketRepository picks the SQL repository whenever a database is open.
func (a *app) ticketRepository() repository.TicketRepository {
	if a.db != nil {
		return repository.NewSQLTicketRepository(a.db)
	}
	a.logger.Printf("⚠️  No database configured, tickets are kept in memory")
	return repository.NewMemoryTicketRepository()
}

func (a *app) ticketFormat() sequence.Format {
	return sequence.Format{Prefix: a.cfg.Ticket.IDPrefix, Width: a.cfg.Ticket.IDWidth}
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
