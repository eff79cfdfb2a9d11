package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"hometemp/internal/core"
	"hometemp/internal/danfoss"
	"hometemp/internal/storage"
	"hometemp/internal/storage/mysql"
	"hometemp/internal/storage/postgres"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredential  = errors.New("missing required credential")
)

// Environment variable names
const (
	EnvAPIKey        = "DANFOSS_API_KEY"
	EnvAPISecret     = "DANFOSS_API_SECRET"
	EnvAPIURL        = "DANFOSS_API_URL"
	EnvPostgresPass  = "POSTGRES_PASSWORD"
	EnvPostgresUser  = "POSTGRES_USER"
	EnvPostgresHost  = "POSTGRES_HOST"
	EnvPostgresDB    = "POSTGRES_DBNAME"
	EnvPostgresPort  = "POSTGRES_PORT"
	EnvPostgresSSL   = "POSTGRES_SSLMODE"
	EnvStorageDriver = "STORAGE_DRIVER"
	EnvSQLitePath    = "SQLITE_PATH"
	EnvPollInterval  = "POLL_INTERVAL"
	EnvHTTPTimeout   = "HTTP_TIMEOUT"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFormat     = "LOG_FORMAT"
)

var defaults = map[string]string{
	EnvAPIURL:        danfoss.DefaultBaseURL,
	EnvPostgresPass:  "postgres",
	EnvPostgresUser:  "postgres",
	EnvPostgresHost:  "home-temp-database-1",
	EnvPostgresDB:    "home-temp",
	EnvPostgresSSL:   "disable",
	EnvStorageDriver: storage.DriverPostgres,
	EnvSQLitePath:    "./home-temp.db",
	EnvPollInterval:  "30s",
	EnvHTTPTimeout:   "30s",
	EnvLogLevel:      "info",
	EnvLogFormat:     "json",
}

// StartupError is a fatal configuration problem detected before polling starts
type StartupError struct {
	Kind core.ErrorKind
	Name string // offending variable
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%s: %s is not set", ErrMissingCredential, e.Name)
}

func (e *StartupError) Unwrap() error { return ErrMissingCredential }

// Config represents the application configuration. It is read once and not changed afterwards.
type Config struct {
	Danfoss  DanfossConfig
	Database DatabaseConfig
	Poll     PollConfig
	Log      LogConfig
}

// DanfossConfig contains Danfoss Ally API settings
type DanfossConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

// DatabaseConfig contains database settings. The POSTGRES_* variables also
// configure the mysql driver.
type DatabaseConfig struct {
	Driver     string // postgres, mysql or sqlite
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// PollConfig contains poll loop settings
type PollConfig struct {
	Interval time.Duration
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string
	Format string
}

// Options controls where configuration is read from
type Options struct {
	ConfigFile string // optional YAML/JSON/TOML file
	EnvFile    string // optional dotenv file, ignored when missing
}

// Load reads the optional dotenv file and config file and then the environment, and
// validates the result. Dotenv entries only fill variables missing from the
// environment; the environment wins over the config file.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(opts.ConfigFile); os.IsNotExist(statErr) {
				return nil, ErrConfigFileNotFound
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	interval, err := parseDuration(v.GetString(EnvPollInterval))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvPollInterval, err)
	}
	timeout, err := parseDuration(v.GetString(EnvHTTPTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvHTTPTimeout, err)
	}

	driver := strings.ToLower(v.GetString(EnvStorageDriver))
	port := 0
	if raw := v.GetString(EnvPostgresPort); raw != "" {
		port, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidConfig, EnvPostgresPort)
		}
	}
	if port == 0 {
		port = defaultPort(driver)
	}

	config := &Config{
		Danfoss: DanfossConfig{
			APIKey:    strings.TrimSpace(v.GetString(EnvAPIKey)),
			APISecret: strings.TrimSpace(v.GetString(EnvAPISecret)),
			BaseURL:   v.GetString(EnvAPIURL),
			Timeout:   timeout,
		},
		Database: DatabaseConfig{
			Driver:     driver,
			Host:       v.GetString(EnvPostgresHost),
			Port:       port,
			User:       v.GetString(EnvPostgresUser),
			Password:   v.GetString(EnvPostgresPass),
			Name:       v.GetString(EnvPostgresDB),
			SSLMode:    v.GetString(EnvPostgresSSL),
			SQLitePath: v.GetString(EnvSQLitePath),
		},
		Poll: PollConfig{
			Interval: interval,
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString(EnvLogLevel)),
			Format: strings.ToLower(v.GetString(EnvLogFormat)),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Danfoss.APIKey == "" {
		return &StartupError{Kind: core.KindMissingCredential, Name: EnvAPIKey}
	}
	if c.Danfoss.APISecret == "" {
		return &StartupError{Kind: core.KindMissingCredential, Name: EnvAPISecret}
	}

	if c.Danfoss.BaseURL == "" {
		c.Danfoss.BaseURL = danfoss.DefaultBaseURL
	}

	switch c.Database.Driver {
	case storage.DriverPostgres, storage.DriverMySQL:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("%w: database host and name are required", ErrInvalidConfig)
		}
	case storage.DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("%w: %s is required for sqlite", ErrInvalidConfig, EnvSQLitePath)
		}
	default:
		return fmt.Errorf("%w: unsupported %s %q", ErrInvalidConfig, EnvStorageDriver, c.Database.Driver)
	}

	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return fmt.Errorf("%w: invalid database port", ErrInvalidConfig)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, EnvPollInterval)
	}
	if c.Danfoss.Timeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, EnvHTTPTimeout)
	}

	return nil
}

// DSN returns the connection string handed to storage.Open
func (c *Config) DSN() string {
	switch c.Database.Driver {
	case storage.DriverMySQL:
		return mysql.ConnConfig{
			Host:     c.Database.Host,
			Port:     c.Database.Port,
			User:     c.Database.User,
			Password: c.Database.Password,
			DBName:   c.Database.Name,
		}.DSN()
	case storage.DriverSQLite:
		return c.Database.SQLitePath
	default:
		return postgres.ConnConfig{
			Host:     c.Database.Host,
			Port:     c.Database.Port,
			User:     c.Database.User,
			Password: c.Database.Password,
			DBName:   c.Database.Name,
			SSLMode:  c.Database.SSLMode,
		}.DSN()
	}
}

// LogValue renders the configuration without secrets
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("api_url", c.Danfoss.BaseURL),
		slog.Duration("http_timeout", c.Danfoss.Timeout),
		slog.String("storage_driver", c.Database.Driver),
		slog.String("db_host", c.Database.Host),
		slog.Int("db_port", c.Database.Port),
		slog.String("db_name", c.Database.Name),
		slog.String("db_user", c.Database.User),
		slog.Duration("poll_interval", c.Poll.Interval),
		slog.String("log_level", c.Log.Level),
	)
}

func defaultPort(driver string) int {
	switch driver {
	case storage.DriverMySQL:
		return 3306
	case storage.DriverSQLite:
		return 0
	default:
		return 5432
	}
}

// parseDuration accepts Go durations ("30s", "1m") and bare seconds ("30")
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}
