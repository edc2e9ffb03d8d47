package cmd

import (
	"strings"
	"testing"

	"github.com/airframesio/pg2parquet/internal/options"
)

func newTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 5432,
			User: "testuser",
			Name: "testdb",
		},
		Table:      "events",
		OutputFile: "events.parquet",
		MaxRetries: 3,
		RetryDelay: 5,
		Options:    options.Default(),
	}
}

func TestConfigValidation_ValidConfig(t *testing.T) {
	if err := newTestConfig().Validate(); err != nil {
		t.Fatalf("valid config should not return error: %v", err)
	}
}

func TestConfigValidation_MissingDatabaseName(t *testing.T) {
	c := newTestConfig()
	c.Database.Name = ""
	if err := c.Validate(); err == nil {
		t.Fatal("should return error for missing database name")
	}
}

func TestConfigValidation_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 65536, 100000} {
		c := newTestConfig()
		c.Database.Port = port
		if err := c.Validate(); err == nil {
			t.Fatalf("should return error for invalid port %d", port)
		}
	}
}

func TestConfigValidation_ConnectionStringBypassesDiscretePortCheck(t *testing.T) {
	c := newTestConfig()
	c.ConnString = "postgres://user@localhost/testdb"
	c.Database = DatabaseConfig{}
	if err := c.Validate(); err != nil {
		t.Fatalf("connection string alone should be valid: %v", err)
	}
}

func TestConfigValidation_ConnectionConflictsWithDiscreteFlags(t *testing.T) {
	c := newTestConfig()
	c.ConnString = "postgres://user@localhost/testdb"
	c.discreteFlagsSet = true
	if err := c.Validate(); err == nil {
		t.Fatal("expected error when --connection and discrete db flags are both set")
	}
}

func TestConfigValidation_TableAndQueryMutuallyExclusive(t *testing.T) {
	c := newTestConfig()
	c.Query = "SELECT 1"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error when both --table and --query are set")
	}
}

func TestConfigValidation_MissingTableAndQuery(t *testing.T) {
	c := newTestConfig()
	c.Table = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error when neither --table nor --query is set")
	}
}

func TestConfigValidation_MissingOutputFileUnlessDryRun(t *testing.T) {
	c := newTestConfig()
	c.OutputFile = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing --output-file")
	}

	c.DryRun = true
	if err := c.Validate(); err != nil {
		t.Fatalf("--dry-run should not require --output-file: %v", err)
	}
}

func TestConfigValidation_NegativeRetrySettings(t *testing.T) {
	c := newTestConfig()
	c.MaxRetries = -1
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for negative db-max-retries")
	}

	c = newTestConfig()
	c.RetryDelay = -1
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for negative db-retry-delay")
	}
}

func TestConfigValidation_InvalidOptionsPropagate(t *testing.T) {
	c := newTestConfig()
	c.Options.DecimalPrecision = 100
	if err := c.Validate(); err == nil {
		t.Fatal("expected the options validation error to propagate")
	}
}

func TestConnectionString_PrefersConnString(t *testing.T) {
	c := newTestConfig()
	c.ConnString = "postgres://user@localhost/testdb"
	if got := c.connectionString(); got != c.ConnString {
		t.Fatalf("got %q, want the raw ConnString", got)
	}
}

func TestConnectionString_FallsBackToPGPASSWORD(t *testing.T) {
	t.Setenv("PGPASSWORD", "s3cr3t")
	c := newTestConfig()
	got := c.connectionString()
	if got == "" {
		t.Fatal("expected a non-empty connection string")
	}
	if !strings.Contains(got, "password=s3cr3t ") {
		t.Fatalf("got %q, want the PGPASSWORD value as the password", got)
	}
}
