package factory

import (
	"fmt"

	"github.com/mikey/tagmda/internal/address"
	"github.com/mikey/tagmda/internal/config"
	"github.com/mikey/tagmda/internal/cookie"
	"go.uber.org/zap"
)

// TaggerFactory creates the cookie engine and address tagger
type TaggerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTaggerFactory creates a new tagger factory
func NewTaggerFactory(cfg *config.Config, logger *zap.Logger) *TaggerFactory {
	return &TaggerFactory{cfg: cfg, logger: logger}
}

// CreateEngine builds the immutable cookie engine
func (f *TaggerFactory) CreateEngine() (*cookie.Engine, error) {
	engine, err := f.cfg.CookieEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to build cookie engine: %w", err)
	}
	algo, size := engine.KeyRing().Current()
	f.logger.Debug("Cookie engine ready",
		zap.String("algo", algo.String()),
		zap.Int("bytes", size),
		zap.Bool("rollover", engine.KeyRing().HasRollover()))
	return engine, nil
}

// CreateTagger builds a tagger over engine
func (f *TaggerFactory) CreateTagger(engine *cookie.Engine) *address.Tagger {
	return address.NewTagger(engine, f.cfg.GetTags(), f.cfg.GetString("address.confirm_address"))
}

// CreateUnwrapper returns the envelope unwrapper with every known scheme
func (f *TaggerFactory) CreateUnwrapper() *address.Unwrapper {
	return address.DefaultUnwrapper()
}
