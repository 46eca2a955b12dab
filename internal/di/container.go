package di

import (
	"flag"
	"fmt"
	"io"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/tagmda/internal/address"
	"github.com/mikey/tagmda/internal/config"
	"github.com/mikey/tagmda/internal/core"
	"github.com/mikey/tagmda/internal/factory"
	"github.com/mikey/tagmda/internal/logging"
	"github.com/mikey/tagmda/internal/utils"
)

// PendingFlags contains all command line flags for tagmda-pending
type PendingFlags struct {
	ConfigFile string
	Dispose    string
	Threshold  string
	Younger    bool
	Older      bool
	Cache      bool
	Pretend    bool
	Verbose    bool

	// IDs are the positional message ids; "-" reads ids from stdin
	IDs []string
}

// ParsePendingFlags parses the tagmda-pending command line
func ParsePendingFlags(args []string) (*PendingFlags, error) {
	flags := &PendingFlags{}
	fs := flag.NewFlagSet("tagmda-pending", flag.ContinueOnError)

	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")
	fs.StringVar(&flags.Dispose, "dispose", "pass", "Action: pass, show, release, whitelist, blacklist, delete")
	fs.StringVar(&flags.Threshold, "threshold", "", "Age threshold such as 7d, used with -younger or -older")
	fs.BoolVar(&flags.Younger, "younger", false, "Only messages younger than the threshold")
	fs.BoolVar(&flags.Older, "older", false, "Only messages older than the threshold")
	fs.BoolVar(&flags.Cache, "cache", false, "Skip messages handled by earlier cached runs")
	fs.BoolVar(&flags.Pretend, "pretend", false, "Report what would be done without doing it")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if flags.Younger && flags.Older {
		return nil, fmt.Errorf("-younger and -older are mutually exclusive")
	}
	if (flags.Younger || flags.Older) && flags.Threshold == "" {
		return nil, fmt.Errorf("-younger and -older need -threshold")
	}
	flags.IDs = fs.Args()
	return flags, nil
}

// BuildPendingContainer creates and configures a dependency injection container for tagmda-pending
func BuildPendingContainer(flags *PendingFlags, stdin io.Reader, stdout io.Writer) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *PendingFlags { return flags }); err != nil {
		return nil, err
	}

	newLogger := func(cfg *config.Config) (*zap.Logger, error) {
		return logging.InitLogger(cfg, flags.Verbose)
	}
	if err := provideCommon(container, func() string { return flags.ConfigFile }, newLogger); err != nil {
		return nil, err
	}

	// Register factories
	for _, ctor := range []any{
		factory.NewQueueFactory,
		factory.NewCacheFactory,
		factory.NewSinkFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return nil, err
		}
	}

	// Register collaborators
	if err := container.Provide(func(f *factory.QueueFactory) (core.MailQueue, error) {
		return f.CreateMailQueue()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.SinkFactory) (core.DBSink, error) {
		return f.CreateDBSink()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory, flags *PendingFlags) (core.CacheStore, error) {
		if !flags.Cache && !f.IsCacheEnabled() {
			return nil, nil
		}
		return f.CreateCacheStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		f *factory.SinkFactory,
		queue core.MailQueue,
		db core.DBSink,
		cache core.CacheStore,
	) (core.Collaborators, error) {
		releaser, err := f.CreateReleaser()
		if err != nil {
			return core.Collaborators{}, err
		}
		return core.Collaborators{
			Queue:    queue,
			Files:    f.CreateFileSink(),
			DB:       db,
			Display:  f.CreateDisplay(stdout),
			Releaser: releaser,
			Cache:    cache,
		}, nil
	}); err != nil {
		return nil, err
	}

	// Register pending settings and service
	if err := container.Provide(func(cfg *config.Config) core.PendingSettings {
		return cfg.PendingSettings()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewPendingService); err != nil {
		return nil, err
	}

	// Register run options
	if err := container.Provide(func(flags *PendingFlags, cache core.CacheStore) (core.RunOptions, error) {
		dispose, err := core.ParseDisposition(flags.Dispose)
		if err != nil {
			return core.RunOptions{}, err
		}
		return core.RunOptions{
			IDs:       flags.IDs,
			Input:     stdin,
			Dispose:   dispose,
			Threshold: flags.Threshold,
			Younger:   flags.Younger,
			Older:     flags.Older,
			Cache:     cache != nil,
			Pretend:   flags.Pretend,
		}, nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers configuration, logger, text processor and the
// tagging components shared by both binaries.
func provideCommon(container *dig.Container, configFile func() string, newLogger func(*config.Config) (*zap.Logger, error)) error {
	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.New(configFile())
	}); err != nil {
		return err
	}

	// Register logger
	if err := container.Provide(func(cfg *config.Config) (*zap.Logger, error) {
		logger, err := newLogger(cfg)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		return logger, nil
	}); err != nil {
		return err
	}

	if err := container.Provide(func(cfg *config.Config) config.MetricsConfig {
		return cfg.GetMetrics()
	}); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register tagging components
	if err := container.Provide(factory.NewTaggerFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TaggerFactory) *address.Unwrapper {
		return f.CreateUnwrapper()
	}); err != nil {
		return err
	}
	return nil
}
