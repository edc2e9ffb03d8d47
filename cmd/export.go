package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/airframesio/pg2parquet/internal/export"
	"github.com/airframesio/pg2parquet/internal/pgerrors"
)

// runExportPipeline adapts a validated Config into an export.Config and
// runs the Export Driver, translating its typed errors (pgerrors) into the
// process exit codes spec §6/§7 describe: 2 for configuration problems,
// 130 for a signal-driven cancellation, 1 for everything else.
func runExportPipeline(ctx context.Context, config *Config) int {
	cfg := export.Config{
		ConnString: config.connectionString(),
		Table:      config.Table,
		Query:      config.Query,
		OutputFile: config.OutputFile,
		MaxRetries: config.MaxRetries,
		RetryDelay: config.retryDelayDuration(),
		DryRun:     config.DryRun,
		Options:    config.Options,
	}

	err := export.Run(ctx, cfg, logger)
	if err == nil {
		logger.Info("")
		logger.Info("export completed successfully")
		return 0
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("")
		logger.Info("export cancelled by user")
		return 130
	}

	var configErr *pgerrors.ConfigError
	if errors.As(err, &configErr) {
		logger.Error(fmt.Sprintf("configuration error: %s", err.Error()))
		return 2
	}

	logger.Error(fmt.Sprintf("export failed: %s", err.Error()))
	return 1
}
