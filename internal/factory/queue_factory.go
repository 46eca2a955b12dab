package factory

import (
	"github.com/mikey/tagmda/internal/adapters/queue"
	"github.com/mikey/tagmda/internal/config"
	"github.com/mikey/tagmda/internal/core"
	"go.uber.org/zap"
)

// QueueFactory creates the hold queue backend
type QueueFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewQueueFactory creates a new queue factory
func NewQueueFactory(cfg *config.Config, logger *zap.Logger) *QueueFactory {
	return &QueueFactory{cfg: cfg, logger: logger}
}

// CreateMailQueue opens the configured pending directory
func (f *QueueFactory) CreateMailQueue() (core.MailQueue, error) {
	return queue.NewDirQueue(f.cfg.GetPending().Dir, f.logger)
}
