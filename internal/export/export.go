// Package export implements the Export Driver (spec §4.6): it glues the
// Schema Resolver, Type Mapper, Value Decoders, and Shredder to a real
// PostgreSQL connection and a real Parquet file, running the pipeline
// "DB cursor -> decode -> shred -> writer" sequentially, one row batch
// at a time.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/parquet-go/parquet-go"

	"github.com/airframesio/pg2parquet/internal/catalog"
	"github.com/airframesio/pg2parquet/internal/decode"
	"github.com/airframesio/pg2parquet/internal/mapper"
	"github.com/airframesio/pg2parquet/internal/options"
	"github.com/airframesio/pg2parquet/internal/pgerrors"
	"github.com/airframesio/pg2parquet/internal/shred"
)

// Config is everything one export run needs. ConnString is the fully
// assembled libpq connection string or DATABASE_URL; precedence between
// --connection and the discrete -H/--port/--user/--dbname flags (plus
// PGPASSWORD) is resolved by the CLI before Config is built.
type Config struct {
	ConnString string
	Table      string // mutually exclusive with Query
	Query      string
	OutputFile string
	BatchSize  int // FETCH size per cursor pull and row-group flush cadence
	MaxRetries int
	RetryDelay time.Duration
	DryRun     bool
	Options    options.Options
}

const cursorName = "pg2parquet_export"

const defaultBatchSize = 10000

// Run executes one export end to end: connect (with retry), resolve the
// output schema, and either print it (--dry-run) or stream every row of
// the cursor through decode -> shred -> Parquet writer, flushing a row
// group every BatchSize rows. ctx cancellation (process signal) aborts
// the pipeline at its next I/O boundary; the partial output file is
// removed on any non-nil return (spec §7).
func Run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	sql, err := selectSQL(cfg)
	if err != nil {
		return err
	}

	conn, err := connectWithRetry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	resolver := catalog.NewResolver(conn, cfg.Options)
	cols, err := resolver.ResolveQuery(ctx, sql)
	if err != nil {
		return err
	}

	schema := buildSchema(cols, cfg.Options)

	if cfg.DryRun {
		printSchema(logger, schema, cols)
		return nil
	}

	f, err := os.Create(cfg.OutputFile)
	if err != nil {
		return pgerrors.NewWriteError(fmt.Errorf("create output file: %w", err))
	}

	writer := parquet.NewGenericWriter[map[string]any](f, schema, parquet.Compression(&parquet.Snappy))

	rowCount, stats, runErr := pump(ctx, conn, sql, cols, cfg, writer, logger)
	if runErr != nil {
		writer.Close()
		f.Close()
		os.Remove(cfg.OutputFile)
		return runErr
	}

	if err := writer.Close(); err != nil {
		f.Close()
		os.Remove(cfg.OutputFile)
		return pgerrors.NewWriteError(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(cfg.OutputFile)
		return pgerrors.NewWriteError(err)
	}

	logSummary(logger, rowCount, stats)
	return nil
}

// selectSQL synthesizes "SELECT * FROM <table>" for --table, or passes
// --query straight through, per spec §6.
func selectSQL(cfg Config) (string, error) {
	switch {
	case cfg.Table != "" && cfg.Query != "":
		return "", pgerrors.NewConfigError("--table and --query cannot both be set")
	case cfg.Table != "":
		return fmt.Sprintf("SELECT * FROM %s", quoteTable(cfg.Table)), nil
	case cfg.Query != "":
		return cfg.Query, nil
	default:
		return "", pgerrors.NewConfigError("one of --table or --query is required")
	}
}

func quoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

func connectWithRetry(ctx context.Context, cfg Config, logger *slog.Logger) (*pgx.Conn, error) {
	attempts := cfg.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := pgx.Connect(ctx, cfg.ConnString)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt < attempts {
			logger.Warn("connection attempt failed, retrying", "attempt", attempt, "of", attempts, "error", err)
			select {
			case <-time.After(cfg.RetryDelay):
			case <-ctx.Done():
				return nil, pgerrors.NewConnectionError(ctx.Err())
			}
		}
	}
	return nil, pgerrors.NewConnectionError(lastErr)
}

func buildSchema(cols []catalog.Column, opt options.Options) *parquet.Schema {
	fields := make(parquet.Group, len(cols))
	for _, c := range cols {
		fields[c.Name] = mapper.Node(c.Type, opt)
	}
	return parquet.NewSchema("pg2parquet_export", fields)
}

func printSchema(logger *slog.Logger, schema *parquet.Schema, cols []catalog.Column) {
	logger.Info("dry run: resolved schema", "columns", len(cols))
	fmt.Println(schema)
}

// pump opens a server-side cursor for sql and FETCHes it in cfg.BatchSize
// batches, forcing every result column to binary wire format (a single
// result-format code in the Bind message applies to all columns, per the
// extended query protocol) so decode.Decode sees raw bytes even for
// pgvector/range/composite columns pgx has no registered codec for.
func pump(
	ctx context.Context,
	conn *pgx.Conn,
	sql string,
	cols []catalog.Column,
	cfg Config,
	writer *parquet.GenericWriter[map[string]any],
	logger *slog.Logger,
) (int64, *shred.Stats, error) {
	pgConn := conn.PgConn()

	if _, err := pgConn.Exec(ctx, "BEGIN").ReadAll(); err != nil {
		return 0, nil, pgerrors.NewConnectionError(fmt.Errorf("begin: %w", err))
	}
	declareSQL := fmt.Sprintf("DECLARE %s CURSOR FOR %s", cursorName, sql)
	if _, err := pgConn.Exec(ctx, declareSQL).ReadAll(); err != nil {
		_, _ = pgConn.Exec(ctx, "ROLLBACK").ReadAll()
		return 0, nil, pgerrors.NewConnectionError(fmt.Errorf("declare cursor: %w", err))
	}

	stats := shred.NewStats()
	warned := make(map[string]bool)
	batch := make([]map[string]any, 0, cfg.BatchSize)
	var rowNum int64

	fetchSQL := fmt.Sprintf("FETCH %d FROM %s", cfg.BatchSize, cursorName)
	for {
		reader := pgConn.ExecParams(ctx, fetchSQL, nil, nil, nil, []int16{1})
		fetched := 0
		for reader.NextRow() {
			fetched++
			rowNum++
			raw := reader.Values()
			values := make([]decode.Value, len(cols))
			for i, c := range cols {
				v, err := decode.Decode(raw[i], c.Type)
				if err != nil {
					reader.Close()
					rollbackAndClose(ctx, pgConn, cursorName)
					de := pgerrors.NewDecodeError(rowNum, c.Name, "failed to decode column")
					de.Err = err
					return rowNum, stats, de
				}
				values[i] = v
			}
			batch = append(batch, shred.Row(cols, values, cfg.Options, stats))
			warnNewOverflows(logger, stats, warned)
		}
		if _, err := reader.Close(); err != nil {
			rollbackAndClose(ctx, pgConn, cursorName)
			return rowNum, stats, pgerrors.NewConnectionError(fmt.Errorf("fetch: %w", err))
		}

		if len(batch) > 0 {
			if _, err := writer.Write(batch); err != nil {
				rollbackAndClose(ctx, pgConn, cursorName)
				return rowNum, stats, pgerrors.NewWriteError(err)
			}
			if err := writer.Flush(); err != nil {
				rollbackAndClose(ctx, pgConn, cursorName)
				return rowNum, stats, pgerrors.NewWriteError(err)
			}
			batch = batch[:0]
		}

		if fetched < cfg.BatchSize {
			break
		}

		select {
		case <-ctx.Done():
			rollbackAndClose(ctx, pgConn, cursorName)
			return rowNum, stats, pgerrors.NewConnectionError(ctx.Err())
		default:
		}
	}

	if _, err := pgConn.Exec(ctx, fmt.Sprintf("CLOSE %s", cursorName)).ReadAll(); err != nil {
		return rowNum, stats, pgerrors.NewConnectionError(fmt.Errorf("close cursor: %w", err))
	}
	if _, err := pgConn.Exec(ctx, "COMMIT").ReadAll(); err != nil {
		return rowNum, stats, pgerrors.NewConnectionError(fmt.Errorf("commit: %w", err))
	}

	return rowNum, stats, nil
}

// rollbackAndClose best-efforts a ROLLBACK after a mid-cursor failure;
// the error (if any) is already being returned by the caller, so this is
// purely cleanup and its own failure is not reported further.
func rollbackAndClose(ctx context.Context, pgConn *pgconn.PgConn, cursor string) {
	_, _ = pgConn.Exec(ctx, "ROLLBACK").ReadAll()
	_ = cursor // cursor is implicitly closed by the ROLLBACK
}

func warnNewOverflows(logger *slog.Logger, stats *shred.Stats, warned map[string]bool) {
	for col, n := range stats.Counts() {
		if n > 0 && !warned[col] {
			warned[col] = true
			logger.Warn("decimal value lost to NULL (NaN or precision overflow)", "column", col)
		}
	}
}

func logSummary(logger *slog.Logger, rowCount int64, stats *shred.Stats) {
	logger.Info("export complete", "rows", rowCount)
	for col, n := range stats.Counts() {
		if n > 0 {
			logger.Info("decimal overflow/NaN summary", "column", col, "count", n)
		}
	}
}
