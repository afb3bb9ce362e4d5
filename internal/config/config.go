package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"wastewater-dashboard/pkg/database"
	"wastewater-dashboard/pkg/logging"
)

// Data source kinds
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds all configuration for the dashboard, populated from environment variables
type Config struct {
	Server   ServerConfig   `env:", prefix=SERVER_"`
	Data     DataConfig     `env:", prefix=DATA_"`
	Database DatabaseConfig `env:", prefix=DB_"`
	Logging  LoggingConfig  `env:", prefix=LOG_"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `env:"HOST, default=127.0.0.1"`
	Port            int           `env:"PORT, default=8050"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT, default=15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT, default=15s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT, default=60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=30s"`
}

// DataConfig selects where the three tables come from
type DataConfig struct {
	Source string `env:"SOURCE, default=csv"`

	InterpolatedPath string `env:"INTERPOLATED_PATH, default=wastewater_stats_interpolated.csv"`
	RawPath          string `env:"RAW_PATH, default=wastewater_stats_prepared.csv"`
	PositivityPath   string `env:"POSITIVITY_PATH, default=test_positivity.csv"`

	InterpolatedTable string `env:"INTERPOLATED_TABLE, default=wastewater_interpolated"`
	RawTable          string `env:"RAW_TABLE, default=wastewater_raw"`
	PositivityTable   string `env:"POSITIVITY_TABLE, default=test_positivity"`
}

// DatabaseConfig holds the read-only Postgres connection used by the postgres source
type DatabaseConfig struct {
	Host            string        `env:"HOST, default=localhost"`
	Port            int           `env:"PORT, default=5432"`
	User            string        `env:"USER, default=postgres"`
	Password        string        `env:"PASSWORD"`
	Database        string        `env:"NAME, default=wastewater"`
	SSLMode         string        `env:"SSLMODE, default=disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS, default=4"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS, default=2"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME, default=30m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME, default=5m"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `env:"LEVEL, default=info"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints the env tags cannot express
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_SHUTDOWN_TIMEOUT must be positive"))
	}

	switch c.Data.Source {
	case SourceCSV:
		if c.Data.InterpolatedPath == "" || c.Data.RawPath == "" || c.Data.PositivityPath == "" {
			errs = append(errs, errors.New("DATA_INTERPOLATED_PATH, DATA_RAW_PATH and DATA_POSITIVITY_PATH are required for the csv source"))
		}
	case SourcePostgres:
		if c.Database.Database == "" {
			errs = append(errs, errors.New("DB_NAME is required for the postgres source"))
		}
		if c.Data.InterpolatedTable == "" || c.Data.RawTable == "" || c.Data.PositivityTable == "" {
			errs = append(errs, errors.New("DATA_*_TABLE names are required for the postgres source"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATA_SOURCE %q must be %q or %q", c.Data.Source, SourceCSV, SourcePostgres))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseSettings converts to the pkg/database connection config
func (c *DatabaseConfig) DatabaseSettings() *database.Config {
	return &database.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}
