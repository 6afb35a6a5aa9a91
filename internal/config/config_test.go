package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/gotrs-helpdesk/internal/database"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	c, err := LoadFromFile(writeConfig(t, "app:\n  name: helpdesk\n"))
	require.NoError(t, err)

	assert.Equal(t, "sql", c.Sequence.Store)
	assert.Equal(t, "TKT", c.Ticket.IDPrefix)
	assert.Equal(t, 6, c.Ticket.IDWidth)
	assert.Equal(t, "ticketId", c.Ticket.SequenceName)
	assert.Equal(t, 3, c.Ticket.CreateRetry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, c.Ticket.CreateRetry.InitialBackoff)
	assert.Equal(t, "@every 15m", c.Scheduler.AuditSchedule)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Same(t, c, Get())
}

func TestLoadFromFile_FileAndEnv(t *testing.T) {
	t.Setenv("HELPDESK_DATABASE_PASSWORD", "from-env")
	t.Setenv("HELPDESK_SEQUENCE_STORE", "redis")

	c, err := LoadFromFile(writeConfig(t, `
database:
  driver: mysql
  host: db
  port: 3306
  user: helpdesk
sequence:
  store: sql
  timeout: 750ms
ticket:
  id_prefix: REQ
  id_width: 4
logging:
  debug: true
`))
	require.NoError(t, err)

	assert.Equal(t, "redis", c.Sequence.Store)
	assert.Equal(t, 750*time.Millisecond, c.Sequence.Timeout)
	assert.Equal(t, "from-env", c.Database.Password)
	assert.Equal(t, "REQ", c.Ticket.IDPrefix)
	assert.Equal(t, 4, c.Ticket.IDWidth)
	assert.True(t, c.Logging.Debug)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	cases := map[string]string{
		"store":    "sequence:\n  store: etcd\n",
		"prefix":   "ticket:\n  id_prefix: T-K\n",
		"width":    "ticket:\n  id_width: 40\n",
		"schedule": "scheduler:\n  audit_schedule: sometimes\n",
		"driver":   "database:\n  driver: oracle\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, body))
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		c := DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432, User: "u", Password: "p", Name: "helpdesk", SSLMode: "disable"}
		assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=helpdesk sslmode=disable", c.GetDSN())
	})

	t.Run("mysql", func(t *testing.T) {
		c := DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "helpdesk"}
		dsn := c.GetDSN()
		assert.Contains(t, dsn, "u:p@tcp(db:3306)/helpdesk")
		assert.Contains(t, dsn, "parseTime=true")
	})

	t.Run("sqlite", func(t *testing.T) {
		c := DatabaseConfig{Driver: "sqlite", Name: "/var/lib/helpdesk/tickets"}
		assert.Equal(t, "file:/var/lib/helpdesk/tickets.db?_busy_timeout=5000&_journal_mode=WAL", c.GetDSN())
	})

	t.Run("explicit dsn wins", func(t *testing.T) {
		c := DatabaseConfig{Driver: "postgres", DSN: "postgres://x@y/z"}
		assert.Equal(t, "postgres://x@y/z", c.GetDSN())
	})
}

func TestAddrs(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6379}
	assert.Equal(t, []string{"cache:6379"}, r.GetRedisAddrs())
	r.Addrs = []string{"a:1", "b:2"}
	assert.Equal(t, []string{"a:1", "b:2"}, r.GetRedisAddrs())

	s := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", s.GetServerAddr())
}

func TestOnChange(t *testing.T) {
	var got *Config
	OnChange(func(c *Config) { got = c })

	c, err := LoadFromFile(writeConfig(t, "logging:\n  debug: true\n"))
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestValidate_DriverAliases(t *testing.T) {
	for _, driver := range []string{"postgres", "postgresql", "pgx", "mysql", "mariadb", "sqlite", "sqlite3"} {
		t.Run(driver, func(t *testing.T) {
			c, err := LoadFromFile(writeConfig(t, "database:\n  driver: "+driver+"\n"))
			require.NoError(t, err)
			_, err = database.NormalizeDriver(c.Database.Driver)
			assert.NoError(t, err, "a driver accepted by Validate must open")
		})
	}
}

func TestWatchFile_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "logging:\n  debug: false\n")
	reloaded := make(chan bool, 4)
	OnChange(func(c *Config) {
		select {
		case reloaded <- c.Logging.Debug:
		default:
		}
	})

	c, err := WatchFile(path)
	require.NoError(t, err)
	assert.False(t, c.Logging.Debug)
	assert.False(t, <-reloaded)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  debug: true\n"), 0o600))
	require.Eventually(t, func() bool {
		cur := Get()
		return cur != nil && cur.Logging.Debug
	}, 5*time.Second, 20*time.Millisecond)
}
