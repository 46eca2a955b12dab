package factory

import (
	"io"

	"github.com/mikey/tagmda/internal/adapters/release"
	"github.com/mikey/tagmda/internal/adapters/sink"
	"github.com/mikey/tagmda/internal/config"
	"github.com/mikey/tagmda/internal/core"
	"github.com/mikey/tagmda/internal/utils"
	"go.uber.org/zap"
)

// SinkFactory creates the side-effect collaborators of the pending loop
type SinkFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewSinkFactory creates a new sink factory
func NewSinkFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *SinkFactory {
	return &SinkFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateFileSink creates the list file sink
func (f *SinkFactory) CreateFileSink() core.FileSink {
	return sink.NewFileSink(f.cfg.GetPending().ListsDir, f.logger)
}

// CreateDBSink creates the SQL sink. It returns nil when no statement is
// configured, so no database is opened for file-only setups.
func (f *SinkFactory) CreateDBSink() (core.DBSink, error) {
	db := f.cfg.GetDatabase()
	if db.WhitelistAppend == "" && db.BlacklistAppend == "" &&
		db.ReleaseAppend == "" && db.DeleteAppend == "" {
		return nil, nil
	}
	sqlSink, err := sink.NewSQLSink(db.Driver, db.DSN, f.logger)
	if err != nil {
		return nil, err
	}
	return sqlSink, nil
}

// CreateDisplay creates a terminal display writing to out
func (f *SinkFactory) CreateDisplay(out io.Writer) core.Display {
	return sink.NewTerminalDisplay(out, f.textProcessor, f.cfg.GetPending().PreviewSize, f.logger)
}

// CreateReleaser creates the SMTP release mechanism
func (f *SinkFactory) CreateReleaser() (core.Releaser, error) {
	cfg, err := f.cfg.GetRelease()
	if err != nil {
		return nil, err
	}
	return release.NewSMTPReleaser(cfg, f.logger), nil
}
