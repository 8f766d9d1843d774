// Package sync keeps local client state converged with the server.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mymail/mymail/internal/metrics"
	"github.com/mymail/mymail/internal/model"
	"github.com/mymail/mymail/internal/roster"
	"github.com/mymail/mymail/internal/store"
)

// DefaultPollInterval is the gap between delta fetches.
const DefaultPollInterval = 3 * time.Second

// Fetcher is the slice of the API client the engine needs.
type Fetcher interface {
	Updates(ctx context.Context, userID, lastMessageID int64) (*model.Updates, error)
}

// Notifier raises the new-message alert.
type Notifier interface {
	Notify(title, body string)
}

// Engine polls the server for roster and message deltas and merges
// them into the local caches. A single loop goroutine runs ticks, so
// at most one fetch is in flight and merges never interleave.
type Engine struct {
	api      Fetcher
	roster   *roster.Cache
	store    *store.Store
	notifier Notifier
	logger   *slog.Logger
	metrics  metrics.Recorder
	selfID   int64
	interval time.Duration

	cursorMu sync.Mutex
	cursor   int64

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewEngine creates an engine for one authenticated session. The
// cursor starts at zero; a new login gets a new engine, never a reused
// one.
func NewEngine(api Fetcher, rosterCache *roster.Cache, msgStore *store.Store, notifier Notifier, logger *slog.Logger, recorder metrics.Recorder, selfID int64) *Engine {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Engine{
		api:      api,
		roster:   rosterCache,
		store:    msgStore,
		notifier: notifier,
		logger:   logger.With("component", "sync.engine", "user_id", selfID),
		metrics:  recorder,
		selfID:   selfID,
		interval: DefaultPollInterval,
	}
}

// SetPollInterval overrides the default poll interval.
func (e *Engine) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		e.interval = interval
	}
}

// Cursor returns the highest message ID merged so far.
func (e *Engine) Cursor() int64 {
	e.cursorMu.Lock()
	defer e.cursorMu.Unlock()
	return e.cursor
}

// Bootstrap performs the initial full load: roster plus the complete
// message history, seeding the store and the cursor. It fires no
// notifications; history is not news.
func (e *Engine) Bootstrap(ctx context.Context) error {
	updates, err := e.api.Updates(ctx, e.selfID, 0)
	if err != nil {
		return err
	}

	e.roster.Replace(updates.Users)
	merged := e.store.Append(updates.NewMessages)
	e.advanceCursor(updates.NewMessages)

	e.logger.Info("initial sync complete",
		"users", len(updates.Users),
		"messages", merged,
	)
	return nil
}

// Run starts the poll loop. Blocks until the context is cancelled or
// Shutdown is called.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("sync engine already started")
	}
	e.started = true
	e.done = make(chan struct{})
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	defer close(e.done)

	e.logger.Info("sync engine started", "poll_interval", e.interval)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		e.mu.Lock()
		draining := e.draining
		e.mu.Unlock()

		if draining {
			e.logger.Info("sync engine draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			e.logger.Info("sync engine stopping")
			return ctx.Err()
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// Shutdown stops the poll loop and waits for the in-flight tick to
// finish. After it returns no further merges happen.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.draining = true
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	e.logger.Info("sync engine shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			e.logger.Info("sync engine shutdown complete")
			return nil
		case <-ctx.Done():
			e.logger.Warn("sync engine shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

// tick fetches one delta and merges it. Fetch failures are logged and
// dropped; the next tick retries from the same cursor.
func (e *Engine) tick(ctx context.Context) {
	start := time.Now()

	updates, err := e.api.Updates(ctx, e.selfID, e.Cursor())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		e.logger.Warn("delta fetch failed", "cursor", e.Cursor(), "error", err)
		e.metrics.IncSyncTick("failed")
		return
	}

	// Roster first: presence must never lag behind a message that
	// names a user the roster does not know yet.
	e.roster.Replace(updates.Users)

	merged := e.store.Append(updates.NewMessages)
	e.advanceCursor(updates.NewMessages)

	if merged > 0 {
		e.metrics.IncMessagesMerged(merged)
	}

	if e.hasIncoming(updates.NewMessages) && e.notifier != nil {
		e.notifier.Notify("MyMail", "You have a new message")
	}

	if len(updates.NewMessages) == 0 {
		e.metrics.IncSyncTick("empty")
	} else {
		e.metrics.IncSyncTick("success")
	}
	e.metrics.ObserveSyncDuration(time.Since(start))
}

// advanceCursor moves the cursor to the highest message ID in the
// batch. The cursor never moves backwards.
func (e *Engine) advanceCursor(messages []model.Message) {
	e.cursorMu.Lock()
	defer e.cursorMu.Unlock()
	for _, msg := range messages {
		if msg.ID > e.cursor {
			e.cursor = msg.ID
		}
	}
}

// hasIncoming reports whether any message in the batch was sent by
// someone else. One true answer per batch means one notification per
// tick, regardless of how many messages or senders arrived.
func (e *Engine) hasIncoming(messages []model.Message) bool {
	for _, msg := range messages {
		if msg.FromUserID != e.selfID {
			return true
		}
	}
	return false
}
