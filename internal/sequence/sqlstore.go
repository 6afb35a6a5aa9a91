package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gotrs-io/gotrs-helpdesk/internal/database"
)

// We keep exactly one row per sequence name and increment it with a single
// dialect specific statement:
//
//	Postgres/SQLite: INSERT ... ON CONFLICT (name) DO UPDATE SET value = sequence_counter.value + 1 RETURNING value
//	MySQL:           INSERT ... ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)
//
// The MySQL variant reads the value from the Exec result so it stays on the
// connection that ran the statement.
const (
	upsertReturningQuery = `INSERT INTO sequence_counter (name, value, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT (name) DO UPDATE SET value = sequence_counter.value + 1, updated_at = excluded.updated_at
		RETURNING value`

	upsertMySQLQuery = `INSERT INTO sequence_counter (name, value, updated_at)
		VALUES (?, LAST_INSERT_ID(1), ?)
		ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1), updated_at = VALUES(updated_at)`

	currentQuery = `SELECT value FROM sequence_counter WHERE name = ?`
)

// SQLStore persists counters in the sequence_counter table.
type SQLStore struct {
	db    *sqlx.DB
	clock func() time.Time
}

// NewSQLStore returns a store on db. The schema must already exist
// (see database.Migrate).
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, clock: time.Now}
}

// Increment implements CounterStore.
func (s *SQLStore) Increment(ctx context.Context, name string) (int64, error) {
	now := s.clock().UTC()
	switch s.db.DriverName() {
	case database.DriverPostgres, database.DriverSQLite:
		var v int64
		if err := s.db.QueryRowxContext(ctx, s.db.Rebind(upsertReturningQuery), name, now).Scan(&v); err != nil {
			return 0, classifySQL(err)
		}
		return v, nil
	case database.DriverMySQL:
		res, err := s.db.ExecContext(ctx, upsertMySQLQuery, name, now)
		if err != nil {
			return 0, classifySQL(err)
		}
		v, err := res.LastInsertId()
		if err != nil {
			return 0, storageError(fmt.Errorf("read counter: %w", err))
		}
		return v, nil
	default:
		return 0, storageError(fmt.Errorf("unsupported driver %q", s.db.DriverName()))
	}
}

// Current implements CounterStore.
func (s *SQLStore) Current(ctx context.Context, name string) (int64, error) {
	var v int64
	err := s.db.GetContext(ctx, &v, s.db.Rebind(currentQuery), name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, classifySQL(err)
	}
	return v, nil
}

func classifySQL(err error) error {
	if database.IsTransient(err) {
		return unavailable(err)
	}
	return storageError(err)
}
