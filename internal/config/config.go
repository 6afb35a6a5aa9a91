package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. HELPDESK_DATABASE_HOST.
const EnvPrefix = "HELPDESK"

var (
	cfg       *Config
	once      sync.Once
	mu        sync.RWMutex
	listeners []func(*Config)
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" yaml:"app"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Sequence  SequenceConfig  `mapstructure:"sequence" yaml:"sequence"`
	Ticket    TicketConfig    `mapstructure:"ticket" yaml:"ticket"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
}

type AppConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Version string `mapstructure:"version" yaml:"version"`
	Env     string `mapstructure:"env" yaml:"env"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	DSN             string        `mapstructure:"dsn" yaml:"dsn"` // overrides the fields below
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	Name            string        `mapstructure:"name" yaml:"name"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"-"`
	SSLMode         string        `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

type RedisConfig struct {
	Host     string   `mapstructure:"host" yaml:"host"`
	Port     int      `mapstructure:"port" yaml:"port"`
	Addrs    []string `mapstructure:"addrs" yaml:"addrs"` // cluster or sentinel seeds
	Password string   `mapstructure:"password" yaml:"-"`
	DB       int      `mapstructure:"db" yaml:"db"`
	PoolSize int      `mapstructure:"pool_size" yaml:"pool_size"`
}

// SequenceConfig selects the counter store.
type SequenceConfig struct {
	Store     string        `mapstructure:"store" yaml:"store"` // sql, redis or memory
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
}

type TicketConfig struct {
	IDPrefix     string      `mapstructure:"id_prefix" yaml:"id_prefix"`
	IDWidth      int         `mapstructure:"id_width" yaml:"id_width"`
	SequenceName string      `mapstructure:"sequence_name" yaml:"sequence_name"`
	AdminEmail   string      `mapstructure:"admin_email" yaml:"admin_email"`
	CreateRetry  RetryConfig `mapstructure:"create_retry" yaml:"create_retry"`
}

type LoggingConfig struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type SchedulerConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	AuditSchedule string `mapstructure:"audit_schedule" yaml:"audit_schedule"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "helpdesk")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "helpdesk")
	v.SetDefault("database.user", "helpdesk")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.addrs", []string{})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("sequence.store", "sql")
	v.SetDefault("sequence.key_prefix", "sequence:")
	v.SetDefault("sequence.timeout", 3*time.Second)

	v.SetDefault("ticket.id_prefix", "TKT")
	v.SetDefault("ticket.id_width", 6)
	v.SetDefault("ticket.sequence_name", "ticketId")
	v.SetDefault("ticket.admin_email", "")
	v.SetDefault("ticket.create_retry.max_attempts", 3)
	v.SetDefault("ticket.create_retry.initial_backoff", 50*time.Millisecond)
	v.SetDefault("ticket.create_retry.max_backoff", time.Second)

	v.SetDefault("logging.debug", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.audit_schedule", "@every 15m")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads config.yaml from configPath (optional), applies HELPDESK_
// environment overrides and watches the file for changes.
func Load(configPath string) error {
	var err error
	once.Do(func() {
		v := newViper()
		v.SetConfigName("config")
		v.AddConfigPath(configPath)

		found := true
		if err = v.ReadInConfig(); err != nil {
			// It's OK if config.yaml doesn't exist
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				err = fmt.Errorf("failed to read config: %w", err)
				return
			}
			found, err = false, nil
		}

		var c *Config
		if c, err = decode(v); err != nil {
			return
		}
		set(c)

		if found {
			watch(v)
		}
	})

	return err
}

// LoadFromFile loads configuration from a specific file without watching it.
func LoadFromFile(configFile string) (*Config, error) {
	_, c, err := readFile(configFile)
	return c, err
}

// WatchFile loads configFile like LoadFromFile and reloads it on every change.
func WatchFile(configFile string) (*Config, error) {
	v, c, err := readFile(configFile)
	if err != nil {
		return nil, err
	}
	watch(v)
	return c, nil
}

func readFile(configFile string) (*viper.Viper, *Config, error) {
	v := newViper()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}
	c, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	set(c)
	return v, c, nil
}

func watch(v *viper.Viper) {
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("🔄 Config file changed: %s", e.Name)
		newCfg, err := decode(v)
		if err != nil {
			log.Printf("⚠️  Failed to reload config, keeping previous: %v", err)
			return
		}
		set(newCfg)
		log.Println("✅ Configuration reloaded")
	})
	v.WatchConfig()
}

// set swaps the active configuration and notifies listeners.
func set(c *Config) {
	mu.Lock()
	cfg = c
	ls := append([]func(*Config){}, listeners...)
	mu.Unlock()
	for _, fn := range ls {
		fn(c)
	}
}

// Get returns the current configuration (thread-safe)
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// OnChange registers fn to run after every successful reload.
func OnChange(fn func(*Config)) {
	mu.Lock()
	defer mu.Unlock()
	listeners = append(listeners, fn)
}

// GetDSN returns the connection string for the configured driver.
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch strings.ToLower(c.Driver) {
	case "mysql", "mariadb":
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN()
	case "sqlite", "sqlite3":
		name := c.Name
		if !strings.HasSuffix(name, ".db") && name != ":memory:" {
			name += ".db"
		}
		return "file:" + name + "?_busy_timeout=5000&_journal_mode=WAL"
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
		)
	}
}

// GetRedisAddrs returns the Redis server addresses.
func (c *RedisConfig) GetRedisAddrs() []string {
	if len(c.Addrs) > 0 {
		return c.Addrs
	}
	return []string{net.JoinHostPort(c.Host, strconv.Itoa(c.Port))}
}

// GetServerAddr returns the server listen address
func (c *ServerConfig) GetServerAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsProduction returns true if running in production mode
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}
