package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/airframesio/pg2parquet/internal/options"
)

// Static errors for configuration validation
var (
	ErrConnectionConflict  = errors.New("--connection cannot be used with -H/--port/--user/--dbname")
	ErrDatabaseNameMissing = errors.New("database name is required (--dbname, or embed it in --connection)")
	ErrDatabasePortInvalid = errors.New("database port must be between 1 and 65535")
	ErrMaxRetriesInvalid   = errors.New("db-max-retries must be >= 0")
	ErrRetryDelayInvalid   = errors.New("db-retry-delay must be >= 0")
	ErrTableOrQueryMissing = errors.New("one of --table or --query is required")
	ErrTableAndQuerySet    = errors.New("--table and --query are mutually exclusive")
	ErrOutputFileMissing   = errors.New("--output-file is required (unless --dry-run)")
)

// DatabaseConfig holds the discrete connection flags; it is ignored when
// ConnString is non-empty. Password falls back to PGPASSWORD and is never
// read from a config file to avoid leaking credentials into version control.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// Config is the fully resolved configuration for one export run, built
// from cobra flags, viper-bound config file values, and the PGPASSWORD/
// DATABASE_URL environment variables.
type Config struct {
	Debug      bool
	LogFormat  string
	DryRun     bool
	MaxRetries int
	RetryDelay int // seconds

	ConnString string // --connection / DATABASE_URL; wins over Database below
	Database   DatabaseConfig

	Table      string
	Query      string
	OutputFile string

	Options options.Options

	// discreteFlagsSet records whether the caller explicitly passed any of
	// -H/--port/--user/--dbname on the command line. Those flags carry
	// non-zero defaults (localhost:5432), so a zero-value check on
	// DatabaseConfig can't tell "explicitly set" from "left at default" —
	// only cobra's Flags().Changed() can, so buildConfig sets this.
	discreteFlagsSet bool
}

// connectionString assembles a libpq key/value connection string from the
// discrete flags, or returns ConnString unchanged when it was set directly.
func (c *Config) connectionString() string {
	if c.ConnString != "" {
		return c.ConnString
	}
	password := c.Database.Password
	if password == "" {
		password = os.Getenv("PGPASSWORD")
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, password, c.Database.Name,
	)
}

func (c *Config) Validate() error {
	if c.ConnString != "" && c.discreteFlagsSet {
		return ErrConnectionConflict
	}
	if c.ConnString == "" {
		if c.Database.Name == "" {
			return ErrDatabaseNameMissing
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("%w, got %d", ErrDatabasePortInvalid, c.Database.Port)
		}
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("%w, got %d", ErrMaxRetriesInvalid, c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w, got %d", ErrRetryDelayInvalid, c.RetryDelay)
	}

	if c.Table == "" && c.Query == "" {
		return ErrTableOrQueryMissing
	}
	if c.Table != "" && c.Query != "" {
		return ErrTableAndQuerySet
	}

	if !c.DryRun && c.OutputFile == "" {
		return ErrOutputFileMissing
	}

	return c.Options.Validate()
}

func (c *Config) retryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}
