package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// statements are executed in order; every one of them is idempotent.
var schemaStatements = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS sequence_counter (
			name       VARCHAR(100) PRIMARY KEY,
			value      BIGINT NOT NULL DEFAULT 0 CHECK (value >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id             VARCHAR(36) PRIMARY KEY,
			ticket_number  VARCHAR(32) NOT NULL UNIQUE,
			sequence_value BIGINT NOT NULL,
			user_id        VARCHAR(64) NOT NULL,
			user_name      VARCHAR(200) NOT NULL,
			user_email     VARCHAR(200) NOT NULL,
			folder_path    TEXT NOT NULL,
			query_text     TEXT NOT NULL,
			status         VARCHAR(16) NOT NULL DEFAULT 'pending',
			admin_comment  TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_user_created ON tickets (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS ticket_comments (
			id          VARCHAR(36) PRIMARY KEY,
			ticket_id   VARCHAR(36) NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
			text        TEXT NOT NULL,
			author      VARCHAR(200) NOT NULL,
			author_type VARCHAR(8) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticket_comments_ticket ON ticket_comments (ticket_id, created_at)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS sequence_counter (
			name       VARCHAR(100) NOT NULL PRIMARY KEY,
			value      BIGINT UNSIGNED NOT NULL DEFAULT 0,
			updated_at DATETIME(6) NOT NULL
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id             VARCHAR(36) NOT NULL PRIMARY KEY,
			ticket_number  VARCHAR(32) NOT NULL,
			sequence_value BIGINT NOT NULL,
			user_id        VARCHAR(64) NOT NULL,
			user_name      VARCHAR(200) NOT NULL,
			user_email     VARCHAR(200) NOT NULL,
			folder_path    TEXT NOT NULL,
			query_text     TEXT NOT NULL,
			status         VARCHAR(16) NOT NULL DEFAULT 'pending',
			admin_comment  TEXT NOT NULL,
			created_at     DATETIME(6) NOT NULL,
			updated_at     DATETIME(6) NOT NULL,
			UNIQUE KEY uq_tickets_number (ticket_number),
			KEY idx_tickets_user_created (user_id, created_at)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS ticket_comments (
			id          VARCHAR(36) NOT NULL PRIMARY KEY,
			ticket_id   VARCHAR(36) NOT NULL,
			text        TEXT NOT NULL,
			author      VARCHAR(200) NOT NULL,
			author_type VARCHAR(8) NOT NULL,
			created_at  DATETIME(6) NOT NULL,
			KEY idx_ticket_comments_ticket (ticket_id, created_at),
			CONSTRAINT fk_ticket_comments_ticket FOREIGN KEY (ticket_id) REFERENCES tickets(id) ON DELETE CASCADE
		) ENGINE=InnoDB`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS sequence_counter (
			name       TEXT PRIMARY KEY,
			value      INTEGER NOT NULL DEFAULT 0 CHECK (value >= 0),
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id             TEXT PRIMARY KEY,
			ticket_number  TEXT NOT NULL UNIQUE,
			sequence_value INTEGER NOT NULL,
			user_id        TEXT NOT NULL,
			user_name      TEXT NOT NULL,
			user_email     TEXT NOT NULL,
			folder_path    TEXT NOT NULL,
			query_text     TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending',
			admin_comment  TEXT NOT NULL DEFAULT '',
			created_at     DATETIME NOT NULL,
			updated_at     DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_user_created ON tickets (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS ticket_comments (
			id          TEXT PRIMARY KEY,
			ticket_id   TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
			text        TEXT NOT NULL,
			author      TEXT NOT NULL,
			author_type TEXT NOT NULL,
			created_at  DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticket_comments_ticket ON ticket_comments (ticket_id, created_at)`,
	},
}

// Migrate creates the helpdesk tables when they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts, ok := schemaStatements[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	log.Printf("🗄️  Schema ready (%s, %d statements)", db.DriverName(), len(stmts))
	return nil
}
