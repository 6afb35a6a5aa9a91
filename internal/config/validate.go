package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/gotrs-io/gotrs-helpdesk/internal/database"
)

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	if _, err := database.NormalizeDriver(c.Database.Driver); err != nil || c.Database.Driver == "" {
		add("database.driver %q is not supported", c.Database.Driver)
	}

	switch strings.ToLower(c.Sequence.Store) {
	case "", "sql", "redis", "memory":
	default:
		add("sequence.store %q must be sql, redis or memory", c.Sequence.Store)
	}
	if c.Sequence.Timeout < 0 {
		add("sequence.timeout must not be negative")
	}

	if c.Ticket.IDPrefix == "" || strings.Contains(c.Ticket.IDPrefix, "-") {
		add("ticket.id_prefix %q must be non-empty and contain no dash", c.Ticket.IDPrefix)
	}
	if c.Ticket.IDWidth < 0 || c.Ticket.IDWidth > 18 {
		add("ticket.id_width %d out of range 0..18", c.Ticket.IDWidth)
	}
	if c.Ticket.SequenceName == "" {
		add("ticket.sequence_name is required")
	}
	if c.Ticket.CreateRetry.MaxAttempts < 1 {
		add("ticket.create_retry.max_attempts must be at least 1")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port %d out of range", c.Server.Port)
	}

	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.AuditSchedule); err != nil {
			add("scheduler.audit_schedule %q: %v", c.Scheduler.AuditSchedule, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}
