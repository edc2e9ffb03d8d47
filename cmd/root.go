package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/airframesio/pg2parquet/internal/options"
)

var (
	// Version information - set via ldflags during build
	// Example: go build -ldflags "-X github.com/airframesio/pg2parquet/cmd.Version=1.2.3"
	Version = "dev"

	// signalContext is set by main() before Cobra initialization, so signal
	// handling is wired up before any library can interfere.
	signalContext context.Context
	stopFilePath  string

	versionCheckResult *VersionCheckResult

	cfgFile    string
	debug      bool
	logFormat  string
	dryRun     bool

	dbHost       string
	dbPort       int
	dbUser       string
	dbPassword   string
	dbName       string
	connString   string
	dbMaxRetries int
	dbRetryDelay int

	table      string
	query      string
	outputFile string

	numericHandling  string
	decimalPrecision int
	decimalScale     int
	enumHandling     string
	arrayHandling    string
	intervalHandling string
	float16Handling  string

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			Underline(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D9FF"))

	logger *slog.Logger
)

// SetSignalContext stores the signal-aware context created in main(); it
// must be called before Execute() so signal handling predates cobra/viper.
func SetSignalContext(ctx context.Context, stopFile string) {
	signalContext = ctx
	stopFilePath = stopFile
}

// textOnlyHandler is a slog handler that outputs human-readable text
// without key=value pairs, suitable for interactive terminal usage.
type textOnlyHandler struct {
	opts   slog.HandlerOptions
	writer io.Writer
}

func newTextOnlyHandler(w io.Writer, opts *slog.HandlerOptions) *textOnlyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &textOnlyHandler{opts: *opts, writer: w}
}

func (h *textOnlyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *textOnlyHandler) Handle(_ context.Context, r slog.Record) error {
	timestamp := r.Time.Format("2006-01-02 15:04:05")
	level := r.Level.String()
	msg := r.Message
	r.Attrs(func(a slog.Attr) bool {
		msg += fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
		return true
	})
	_, err := fmt.Fprintf(h.writer, "%s %s %s\n", timestamp, level, msg)
	return err
}

func (h *textOnlyHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *textOnlyHandler) WithGroup(_ string) slog.Handler      { return h }

// initLogger initializes the slog logger based on debug flag and log format.
func initLogger(isDebug bool, format string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if isDebug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "logfmt":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = newTextOnlyHandler(os.Stderr, opts)
	}

	logger = slog.New(handler)
}

var rootCmd = &cobra.Command{
	Use:     "pg2parquet",
	Version: Version,
	Short:   "Export a PostgreSQL table or query to a Parquet file",
	Long: titleStyle.Render("pg2parquet") + `

Exports a single PostgreSQL table or query result to a Parquet file,
translating PostgreSQL's server-side type system (arrays, ranges,
composites, enums, decimals, intervals, UUIDs, bit strings, and the
pgvector vector/halfvec/sparsevec types) into Parquet's columnar encoding.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a table or query result to a Parquet file",
	Run: func(_ *cobra.Command, _ []string) {
		runExport()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// cobra's default "{{.Name}} version {{.Version}}" template doesn't
	// match the single "pg2parquet 0.x.y" line the CLI's own version
	// flag output is expected to print.
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.AddCommand(exportCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pg2parquet.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, logfmt, json)")

	exportCmd.Flags().StringVarP(&dbHost, "host", "H", "localhost", "PostgreSQL host")
	exportCmd.Flags().IntVar(&dbPort, "port", 5432, "PostgreSQL port")
	exportCmd.Flags().StringVar(&dbUser, "user", "", "PostgreSQL user")
	exportCmd.Flags().StringVar(&dbPassword, "password", "", "PostgreSQL password (default: PGPASSWORD env var)")
	exportCmd.Flags().StringVar(&dbName, "dbname", "", "PostgreSQL database name")
	exportCmd.Flags().StringVarP(&connString, "connection", "c", "", "full libpq connection string (default: DATABASE_URL env var); conflicts with -H/--port/--user/--dbname")
	exportCmd.Flags().IntVar(&dbMaxRetries, "db-max-retries", 3, "maximum number of connection retry attempts")
	exportCmd.Flags().IntVar(&dbRetryDelay, "db-retry-delay", 2, "delay in seconds between connection retry attempts")

	exportCmd.Flags().StringVarP(&table, "table", "t", "", "table to export (optionally schema-qualified); mutually exclusive with --query")
	exportCmd.Flags().StringVar(&query, "query", "", "SQL query to export; mutually exclusive with --table")
	exportCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "destination Parquet file path (required unless --dry-run)")
	exportCmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and print the output schema without writing a file")

	exportCmd.Flags().StringVar(&numericHandling, "numeric-handling", string(options.NumericDecimal), "numeric encoding: decimal, double, float32, string")
	exportCmd.Flags().IntVar(&decimalPrecision, "decimal-precision", 38, "decimal precision for numeric columns (1..76)")
	exportCmd.Flags().IntVar(&decimalScale, "decimal-scale", 18, "decimal scale for numeric columns (0..precision)")
	exportCmd.Flags().StringVar(&enumHandling, "enum-handling", string(options.EnumDictBytes), "enum encoding: dict-bytes, plain-text, int")
	exportCmd.Flags().StringVar(&arrayHandling, "array-handling", string(options.ArrayFlat), "array encoding: flat, dims, dims+lb")
	exportCmd.Flags().StringVar(&intervalHandling, "interval-handling", string(options.IntervalDuration), "interval encoding: duration, struct")
	exportCmd.Flags().StringVar(&float16Handling, "float16-handling", string(options.Float16AsFloat32), "pgvector halfvec element encoding: float32, float16")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	_ = viper.BindPFlag("db.host", exportCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("db.port", exportCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("db.user", exportCmd.Flags().Lookup("user"))
	_ = viper.BindPFlag("db.password", exportCmd.Flags().Lookup("password"))
	_ = viper.BindPFlag("db.name", exportCmd.Flags().Lookup("dbname"))
	_ = viper.BindPFlag("connection", exportCmd.Flags().Lookup("connection"))
	_ = viper.BindPFlag("db.max_retries", exportCmd.Flags().Lookup("db-max-retries"))
	_ = viper.BindPFlag("db.retry_delay", exportCmd.Flags().Lookup("db-retry-delay"))

	_ = viper.BindPFlag("table", exportCmd.Flags().Lookup("table"))
	_ = viper.BindPFlag("query", exportCmd.Flags().Lookup("query"))
	_ = viper.BindPFlag("output_file", exportCmd.Flags().Lookup("output-file"))
	_ = viper.BindPFlag("dry_run", exportCmd.Flags().Lookup("dry-run"))

	_ = viper.BindPFlag("numeric_handling", exportCmd.Flags().Lookup("numeric-handling"))
	_ = viper.BindPFlag("decimal_precision", exportCmd.Flags().Lookup("decimal-precision"))
	_ = viper.BindPFlag("decimal_scale", exportCmd.Flags().Lookup("decimal-scale"))
	_ = viper.BindPFlag("enum_handling", exportCmd.Flags().Lookup("enum-handling"))
	_ = viper.BindPFlag("array_handling", exportCmd.Flags().Lookup("array-handling"))
	_ = viper.BindPFlag("interval_handling", exportCmd.Flags().Lookup("interval-handling"))
	_ = viper.BindPFlag("float16_handling", exportCmd.Flags().Lookup("float16-handling"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pg2parquet")
	}

	viper.SetEnvPrefix("PG2PARQUET")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && debug {
		if logger == nil {
			initLogger(debug, logFormat)
		}
		logger.Debug(fmt.Sprintf("using config file: %s", viper.ConfigFileUsed()))
	}
}

// buildConfig resolves viper-bound flags plus the PGPASSWORD/DATABASE_URL
// environment variables (read directly, not through viper's generic
// prefix, matching libpq's own convention) into a Config.
func buildConfig() *Config {
	conn := viper.GetString("connection")
	if conn == "" {
		conn = os.Getenv("DATABASE_URL")
	}

	discreteFlagsSet := exportCmd.Flags().Changed("host") ||
		exportCmd.Flags().Changed("port") ||
		exportCmd.Flags().Changed("user") ||
		exportCmd.Flags().Changed("dbname")

	return &Config{
		Debug:      viper.GetBool("debug"),
		LogFormat:  viper.GetString("log_format"),
		DryRun:     viper.GetBool("dry_run"),
		MaxRetries: viper.GetInt("db.max_retries"),
		RetryDelay: viper.GetInt("db.retry_delay"),

		ConnString: conn,
		Database: DatabaseConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			User:     viper.GetString("db.user"),
			Password: dbPassword,
			Name:     viper.GetString("db.name"),
		},

		Table:      viper.GetString("table"),
		Query:      viper.GetString("query"),
		OutputFile: viper.GetString("output_file"),

		discreteFlagsSet: discreteFlagsSet,

		Options: options.Options{
			NumericHandling:  options.NumericHandling(viper.GetString("numeric_handling")),
			DecimalPrecision: viper.GetInt("decimal_precision"),
			DecimalScale:     viper.GetInt("decimal_scale"),
			EnumHandling:     options.EnumHandling(viper.GetString("enum_handling")),
			ArrayHandling:    options.ArrayHandling(viper.GetString("array_handling")),
			IntervalHandling: options.IntervalHandling(viper.GetString("interval_handling")),
			Float16Handling:  options.Float16Handling(viper.GetString("float16_handling")),
		},
	}
}

func signalAwareContext() context.Context {
	ctx := signalContext
	if ctx == nil {
		logger.Warn("signal context not set, creating fallback")
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
	}
	return ctx
}

func runExport() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\nPANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	config := buildConfig()

	initLogger(config.Debug, config.LogFormat)

	logger.Info("")
	logger.Info(fmt.Sprintf("pg2parquet v%s", Version))
	logger.Info("----------------------------------------")

	if config.Debug && stopFilePath != "" {
		fmt.Fprintln(os.Stderr, "\n"+infoStyle.Render("To stop the export: press CTRL-C, or run:"))
		fmt.Fprintf(os.Stderr, "   "+infoStyle.Render("touch %s")+"\n\n", stopFilePath)
	}

	logger.Debug("validating configuration...")
	if err := config.Validate(); err != nil {
		logger.Error(fmt.Sprintf("configuration error: %s", err.Error()))
		os.Exit(2)
	}
	logger.Debug("configuration validated successfully")

	updateCheckDone := make(chan struct{})
	go func() {
		defer close(updateCheckDone)
		result := checkForUpdates(context.Background(), Version)
		versionCheckResult = &result
		if result.UpdateAvailable {
			logger.Info(formatUpdateMessage(result))
		} else if result.Error != nil && config.Debug {
			logger.Debug(fmt.Sprintf("version check failed: %v", result.Error))
		}
	}()
	select {
	case <-updateCheckDone:
	case <-time.After(2 * time.Second):
		logger.Debug("version check taking longer than expected, continuing...")
	}

	ctx := signalAwareContext()

	exited := make(chan struct{})
	go func() {
		<-ctx.Done()
		logger.Info("")
		logger.Info("interrupt signal received, shutting down...")
		select {
		case <-exited:
			return
		case <-time.After(2 * time.Second):
			logger.Error("graceful shutdown timed out, forcing exit...")
			os.Exit(130)
		}
	}()

	exitCode := runExportPipeline(ctx, config)
	close(exited)
	os.Exit(exitCode)
}
