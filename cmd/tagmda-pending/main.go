package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/tagmda/internal/config"
	"github.com/mikey/tagmda/internal/core"
	"github.com/mikey/tagmda/internal/di"
	"github.com/mikey/tagmda/internal/metrics"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParsePendingFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	// Build the dependency injection container
	container, err := di.BuildPendingContainer(flags, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	service *core.PendingService,
	opts core.RunOptions,
	db core.DBSink,
	cache core.CacheStore,
	metricsCfg config.MetricsConfig,
) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var stats core.RunStats
	cached := 0
	pending, runErr := service.Init(ctx, opts)
	if runErr == nil {
		stats, runErr = pending.Loop(ctx)
		cached = len(pending.CachedIDs())
	}
	logger.Info("Pending run complete",
		zap.String("action", opts.Dispose.String()),
		zap.Bool("pretend", opts.Pretend),
		zap.Int("candidates", stats.Candidates),
		zap.Int("disposed", stats.Disposed),
		zap.Int("pretended", stats.Pretended),
		zap.Any("skipped", stats.Skipped),
		zap.Int("cached", cached))

	if err := metrics.WriteTextfile(metricsCfg.Textfile); err != nil {
		logger.Error("Failed to export metrics", zap.Error(err))
	}

	// Close any resources that need closing
	for _, resource := range []any{db, cache} {
		if closer, ok := resource.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close resource", zap.Error(err))
			}
		}
	}

	return runErr
}
