package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mikey/tagmda/internal/address"
	"github.com/mikey/tagmda/internal/cookie"
	"github.com/mikey/tagmda/internal/metrics"
	"go.uber.org/zap"
)

// stdinMarker in the id list means "read more ids from the input stream"
const stdinMarker = "-"

// SinkTarget names the list file and SQL statement of one disposition.
// Empty fields are not written.
type SinkTarget struct {
	File      string
	Statement string
}

// Identity is the owner of the pending queue, passed to SQL statements
type Identity struct {
	Recipient string
	Username  string
	Hostname  string
}

// PendingSettings holds the per-disposition sinks and policies
type PendingSettings struct {
	Whitelist        SinkTarget
	Blacklist        SinkTarget
	Release          SinkTarget
	Delete           SinkTarget
	WhitelistRelease bool
	BlacklistDelete  bool
	CacheLen         int
	Identity         Identity
}

// RunOptions selects messages and the action of one pending run
type RunOptions struct {
	// IDs are explicit message ids; "-" reads further ids from Input
	IDs   []string
	Input io.Reader

	Dispose Disposition

	// Threshold is an age such as "7d"; Younger keeps messages newer than
	// now-Threshold, Older keeps older ones.
	Threshold string
	Younger   bool
	Older     bool

	Cache   bool
	Pretend bool
}

// Collaborators are the external resources the pending loop writes to.
// Display, Releaser, DB and Cache may be nil when unused.
type Collaborators struct {
	Queue    MailQueue
	Files    FileSink
	DB       DBSink
	Display  Display
	Releaser Releaser
	Cache    CacheStore
}

// PendingService resolves held messages to dispositions
type PendingService struct {
	deps      Collaborators
	settings  PendingSettings
	unwrapper *address.Unwrapper
	logger    *zap.Logger
	now       func() time.Time
}

// NewPendingService creates the pending service
func NewPendingService(
	deps Collaborators,
	settings PendingSettings,
	unwrapper *address.Unwrapper,
	logger *zap.Logger,
) *PendingService {
	if unwrapper == nil {
		unwrapper = address.DefaultUnwrapper()
	}
	return &PendingService{
		deps:      deps,
		settings:  settings,
		unwrapper: unwrapper,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the time source used for age filtering
func (s *PendingService) SetClock(now func() time.Time) {
	s.now = now
}

// RunStats summarises one pending run
type RunStats struct {
	Candidates int
	Disposed   int
	Pretended  int
	Skipped    map[string]int
}

func (r *RunStats) skip(reason string) {
	if r.Skipped == nil {
		r.Skipped = make(map[string]int)
	}
	r.Skipped[reason]++
	metrics.PendingSkipped.WithLabelValues(reason).Inc()
}

type runState int

const (
	stateLoaded runState = iota
	stateDrained
)

// Run is one pass over the pending queue, created by Init
type Run struct {
	svc    *PendingService
	opts   RunOptions
	ids    []string
	cache  *ProcessedCache
	cutoff time.Time
	hasAge bool
	state  runState
	stats  RunStats
}

// Run initialises and processes the queue in one call
func (s *PendingService) Run(ctx context.Context, opts RunOptions) (RunStats, error) {
	run, err := s.Init(ctx, opts)
	if err != nil {
		return RunStats{}, err
	}
	return run.Loop(ctx)
}

// Init builds the finalized candidate list
func (s *PendingService) Init(ctx context.Context, opts RunOptions) (*Run, error) {
	run := &Run{svc: s, opts: opts}

	if opts.Threshold != "" && (opts.Younger || opts.Older) {
		age, err := cookie.ParseDuration(opts.Threshold)
		if err != nil {
			return nil, fmt.Errorf("invalid age threshold: %w", err)
		}
		run.cutoff = s.now().Add(-age)
		run.hasAge = true
	}

	ids, err := s.candidateIDs(ctx, opts)
	if err != nil {
		return nil, err
	}

	if opts.Cache {
		if s.deps.Cache == nil {
			return nil, errors.New("pending cache enabled but no cache store configured")
		}
		stored, err := s.deps.Cache.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load pending cache: %w", err)
		}
		run.cache = NewProcessedCache(stored, s.settings.CacheLen)
		kept := ids[:0]
		for _, id := range ids {
			if run.cache.Contains(id) {
				s.logger.Debug("Skipping cached message", zap.String("msgid", id))
				continue
			}
			kept = append(kept, id)
		}
		ids = kept
	}

	run.ids = ids
	run.stats.Candidates = len(ids)
	return run, nil
}

func (s *PendingService) candidateIDs(ctx context.Context, opts RunOptions) ([]string, error) {
	if len(opts.IDs) == 0 {
		ids, err := s.deps.Queue.ListIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list pending queue: %w", err)
		}
		sort.Strings(ids)
		return ids, nil
	}

	var fromInput, explicit []string
	readInput := false
	for _, id := range opts.IDs {
		id = strings.TrimSpace(id)
		switch {
		case id == stdinMarker:
			readInput = true
		case id != "":
			explicit = append(explicit, id)
		}
	}
	if readInput {
		if opts.Input == nil {
			return nil, errors.New("message ids requested from input but no input given")
		}
		scanner := bufio.NewScanner(opts.Input)
		for scanner.Scan() {
			if id := strings.TrimSpace(scanner.Text()); id != "" {
				fromInput = append(fromInput, id)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read message ids: %w", err)
		}
	}
	// An explicit id list never falls back to the whole queue, even when empty
	ids := append(fromInput, explicit...)
	if len(ids) == 0 {
		s.logger.Warn("No usable message ids given, nothing to process")
	}
	sort.Strings(ids)
	return ids, nil
}

// IDs returns the finalized candidate list
func (r *Run) IDs() []string {
	return append([]string(nil), r.ids...)
}

// CachedIDs returns the processed-id cache, most recent first
func (r *Run) CachedIDs() []string {
	if r.cache == nil {
		return nil
	}
	return r.cache.IDs()
}

// Loop processes every candidate in order and persists the cache. On a
// backend error the cache is still saved for the messages already handled.
func (r *Run) Loop(ctx context.Context) (RunStats, error) {
	if r.state == stateDrained {
		return r.stats, errors.New("pending run already drained")
	}
	metrics.PendingRuns.Inc()

	var loopErr error
	for _, id := range r.ids {
		if err := r.process(ctx, id); err != nil {
			loopErr = err
			break
		}
	}

	if err := r.drain(ctx); err != nil && loopErr == nil {
		loopErr = err
	}
	return r.stats, loopErr
}

func (r *Run) process(ctx context.Context, id string) error {
	s := r.svc
	logger := s.logger.With(zap.String("msgid", id))

	exists, err := s.deps.Queue.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up message %s: %w", id, err)
	}
	if !exists {
		logger.Debug("Message no longer pending")
		r.stats.skip("missing")
		return nil
	}
	raw, err := s.deps.Queue.Fetch(ctx, id)
	if errors.Is(err, ErrMessageNotFound) {
		logger.Debug("Message vanished before fetch")
		r.stats.skip("missing")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch message %s: %w", id, err)
	}

	msg, err := NewPendingMessage(id, raw, s.unwrapper)
	if err != nil {
		logger.Warn("Skipping unparseable message", zap.Error(err))
		r.stats.skip("unparseable")
		return nil
	}
	if msg.Recipient == "" {
		msg.Recipient = s.settings.Identity.Recipient
	}

	if !r.withinAge(msg) {
		logger.Debug("Message outside age threshold", zap.Time("held_at", msg.Timestamp))
		r.stats.skip("age")
		return nil
	}

	if r.opts.Pretend {
		log := logger.Debug
		if r.opts.Dispose.Mutates() {
			log = logger.Info
		}
		log("Pretending disposition",
			zap.String("action", r.opts.Dispose.String()),
			zap.String("sender", msg.Sender))
		r.stats.Pretended++
		metrics.PendingDispositions.WithLabelValues(r.opts.Dispose.String(), "pretend").Inc()
		return nil
	}

	if err := s.dispose(ctx, msg, r.opts.Dispose); err != nil {
		return err
	}
	logger.Info("Disposed message",
		zap.String("action", r.opts.Dispose.String()),
		zap.String("sender", msg.Sender))
	r.stats.Disposed++
	metrics.PendingDispositions.WithLabelValues(r.opts.Dispose.String(), "live").Inc()

	if r.cache != nil {
		r.cache.Push(id)
	}
	return nil
}

func (r *Run) withinAge(msg *PendingMessage) bool {
	if !r.hasAge {
		return true
	}
	if msg.Timestamp.IsZero() {
		return false
	}
	if r.opts.Younger && msg.Timestamp.Before(r.cutoff) {
		return false
	}
	if r.opts.Older && msg.Timestamp.After(r.cutoff) {
		return false
	}
	return true
}

func (r *Run) drain(ctx context.Context) error {
	r.state = stateDrained
	if r.cache == nil || r.opts.Pretend {
		return nil
	}
	if err := r.svc.deps.Cache.Save(ctx, r.cache.IDs()); err != nil {
		return fmt.Errorf("failed to save pending cache: %w", err)
	}
	return nil
}

func (s *PendingService) dispose(ctx context.Context, msg *PendingMessage, d Disposition) error {
	switch d {
	case DispositionPass:
		return nil
	case DispositionShow:
		if s.deps.Display == nil {
			return errors.New("no display configured")
		}
		if err := s.deps.Display.Render(ctx, msg); err != nil {
			return fmt.Errorf("failed to show message %s: %w", msg.ID, err)
		}
		return nil
	case DispositionRelease:
		return s.release(ctx, msg)
	case DispositionWhitelist:
		if err := s.record(ctx, msg, s.settings.Whitelist); err != nil {
			return err
		}
		if s.settings.WhitelistRelease {
			return s.release(ctx, msg)
		}
		return nil
	case DispositionBlacklist:
		if err := s.record(ctx, msg, s.settings.Blacklist); err != nil {
			return err
		}
		if s.settings.BlacklistDelete {
			return s.delete(ctx, msg)
		}
		return nil
	case DispositionDelete:
		return s.delete(ctx, msg)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDisposition, d)
	}
}

func (s *PendingService) release(ctx context.Context, msg *PendingMessage) error {
	if err := s.record(ctx, msg, s.settings.Release); err != nil {
		return err
	}
	if s.deps.Releaser == nil {
		return errors.New("no release mechanism configured")
	}
	if err := s.deps.Releaser.Release(ctx, msg); err != nil {
		return fmt.Errorf("failed to release message %s: %w", msg.ID, err)
	}
	return s.remove(ctx, msg)
}

func (s *PendingService) delete(ctx context.Context, msg *PendingMessage) error {
	if err := s.record(ctx, msg, s.settings.Delete); err != nil {
		return err
	}
	return s.remove(ctx, msg)
}

func (s *PendingService) remove(ctx context.Context, msg *PendingMessage) error {
	if err := s.deps.Queue.Delete(ctx, msg.ID); err != nil && !errors.Is(err, ErrMessageNotFound) {
		return fmt.Errorf("failed to remove message %s: %w", msg.ID, err)
	}
	return nil
}

// record appends the sender to the target's file, then its database
func (s *PendingService) record(ctx context.Context, msg *PendingMessage, target SinkTarget) error {
	if msg.Sender == "" {
		s.logger.Debug("Null sender, nothing to record", zap.String("msgid", msg.ID))
		return nil
	}
	if target.File != "" {
		if s.deps.Files == nil {
			return errors.New("list file configured but no file sink")
		}
		if err := s.deps.Files.Append(msg.Sender, target.File); err != nil {
			return fmt.Errorf("failed to append to %s: %w", target.File, err)
		}
	}
	if target.Statement != "" {
		if s.deps.DB == nil {
			return errors.New("database statement configured but no database sink")
		}
		if err := s.deps.DB.Insert(ctx, target.Statement, s.params(msg)); err != nil {
			return fmt.Errorf("failed to insert into database: %w", err)
		}
	}
	return nil
}

func (s *PendingService) params(msg *PendingMessage) map[string]string {
	return map[string]string{
		"recipient": s.settings.Identity.Recipient,
		"username":  s.settings.Identity.Username,
		"hostname":  s.settings.Identity.Hostname,
		"sender":    msg.Sender,
	}
}
