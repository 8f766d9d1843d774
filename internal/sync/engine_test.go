package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	stdsync "sync"
	"testing"
	"time"

	"github.com/mymail/mymail/internal/model"
	"github.com/mymail/mymail/internal/roster"
	"github.com/mymail/mymail/internal/store"
)

type fakeFetcher struct {
	mu    stdsync.Mutex
	fn    func(userID, lastMessageID int64) (*model.Updates, error)
	calls int
}

func (f *fakeFetcher) Updates(_ context.Context, userID, lastMessageID int64) (*model.Updates, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	return fn(userID, lastMessageID)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu    stdsync.Mutex
	count int
}

func (n *fakeNotifier) Notify(title, body string) {
	n.mu.Lock()
	n.count++
	n.mu.Unlock()
}

func (n *fakeNotifier) notifications() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func msg(id, from int64, to ...int64) model.Message {
	return model.Message{ID: id, FromUserID: from, ToUserIDs: to, Text: "m", Timestamp: id * 1000}
}

func newTestEngine(api Fetcher, notifier Notifier, selfID int64) (*Engine, *roster.Cache, *store.Store) {
	r := roster.New()
	s := store.New()
	e := NewEngine(api, r, s, notifier, testLogger(), nil, selfID)
	return e, r, s
}

func TestBootstrapSeedsState(t *testing.T) {
	t.Parallel()

	api := &fakeFetcher{fn: func(userID, lastMessageID int64) (*model.Updates, error) {
		if userID != 1 || lastMessageID != 0 {
			t.Errorf("bootstrap fetched userID=%d since=%d, want 1 and 0", userID, lastMessageID)
		}
		return &model.Updates{
			Users:       []model.User{{ID: 1}, {ID: 2}},
			NewMessages: []model.Message{msg(3, 2, 1), msg(7, 1, 2), msg(5, 2, 1)},
		}, nil
	}}
	notifier := &fakeNotifier{}

	e, r, s := newTestEngine(api, notifier, 1)

	if err := e.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("roster holds %d users, want 2", r.Len())
	}
	if s.Len() != 3 {
		t.Fatalf("store holds %d messages, want 3", s.Len())
	}
	if e.Cursor() != 7 {
		t.Fatalf("cursor = %d, want 7", e.Cursor())
	}
	// History is not news.
	if notifier.notifications() != 0 {
		t.Fatalf("bootstrap fired %d notifications, want 0", notifier.notifications())
	}
}

func TestTickNotifiesOncePerBatch(t *testing.T) {
	t.Parallel()

	// Three new messages from two foreign senders plus one echo of our
	// own send: exactly one notification.
	api := &fakeFetcher{fn: func(_, _ int64) (*model.Updates, error) {
		return &model.Updates{
			Users: []model.User{{ID: 1}, {ID: 2}, {ID: 3}},
			NewMessages: []model.Message{
				msg(10, 2, 1),
				msg(11, 1, 3),
				msg(12, 3, 1),
			},
		}, nil
	}}
	notifier := &fakeNotifier{}

	e, _, s := newTestEngine(api, notifier, 1)
	e.tick(context.Background())

	if got := notifier.notifications(); got != 1 {
		t.Fatalf("tick fired %d notifications, want 1", got)
	}
	if s.Len() != 3 {
		t.Fatalf("store holds %d messages, want 3", s.Len())
	}
	if e.Cursor() != 12 {
		t.Fatalf("cursor = %d, want 12", e.Cursor())
	}
}

func TestTickOwnEchoDoesNotNotify(t *testing.T) {
	t.Parallel()

	api := &fakeFetcher{fn: func(_, _ int64) (*model.Updates, error) {
		return &model.Updates{
			Users:       []model.User{{ID: 1}, {ID: 2}},
			NewMessages: []model.Message{msg(4, 1, 2)},
		}, nil
	}}
	notifier := &fakeNotifier{}

	e, _, _ := newTestEngine(api, notifier, 1)
	e.tick(context.Background())

	if got := notifier.notifications(); got != 0 {
		t.Fatalf("own echo fired %d notifications, want 0", got)
	}
	if e.Cursor() != 4 {
		t.Fatalf("cursor = %d, want 4", e.Cursor())
	}
}

func TestTickSwallowsFetchFailure(t *testing.T) {
	t.Parallel()

	failing := errors.New("connection refused")
	api := &fakeFetcher{fn: func(_, _ int64) (*model.Updates, error) {
		return nil, failing
	}}
	notifier := &fakeNotifier{}

	e, r, s := newTestEngine(api, notifier, 1)
	r.Replace([]model.User{{ID: 1}, {ID: 2}})

	e.tick(context.Background())

	// Stale data wins over a hard failure: nothing is cleared, the
	// cursor holds, and the next tick retries from the same position.
	if r.Len() != 2 {
		t.Fatalf("roster was touched on a failed tick")
	}
	if s.Len() != 0 || e.Cursor() != 0 {
		t.Fatalf("state advanced on a failed tick: len=%d cursor=%d", s.Len(), e.Cursor())
	}
	if notifier.notifications() != 0 {
		t.Fatal("failed tick fired a notification")
	}
}

func TestCursorNeverRegresses(t *testing.T) {
	t.Parallel()

	var batch []model.Message
	api := &fakeFetcher{fn: func(_, _ int64) (*model.Updates, error) {
		return &model.Updates{NewMessages: batch}, nil
	}}

	e, _, _ := newTestEngine(api, &fakeNotifier{}, 1)

	batch = []model.Message{msg(10, 1, 2)}
	e.tick(context.Background())

	batch = []model.Message{msg(5, 2, 1)}
	e.tick(context.Background())

	if e.Cursor() != 10 {
		t.Fatalf("cursor = %d, want 10", e.Cursor())
	}
}

func TestRunAndShutdown(t *testing.T) {
	t.Parallel()

	var nextID int64 = 100
	var mu stdsync.Mutex
	api := &fakeFetcher{}
	api.fn = func(_, _ int64) (*model.Updates, error) {
		mu.Lock()
		nextID++
		id := nextID
		mu.Unlock()
		return &model.Updates{
			Users:       []model.User{{ID: 1}, {ID: 2}},
			NewMessages: []model.Message{msg(id, 2, 1)},
		}, nil
	}

	e, _, s := newTestEngine(api, &fakeNotifier{}, 1)
	e.SetPollInterval(time.Millisecond)

	runErr := make(chan error, 1)
	go func() {
		runErr <- e.Run(context.Background())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("engine never merged a delta")
		}
		time.Sleep(time.Millisecond)
	}

	if err := e.Run(context.Background()); err == nil {
		t.Fatal("second Run() did not report already started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	// No merge may happen after Shutdown returns.
	frozen := s.Len()
	time.Sleep(20 * time.Millisecond)
	if s.Len() != frozen {
		t.Fatalf("store grew from %d to %d after shutdown", frozen, s.Len())
	}

	select {
	case <-runErr:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Shutdown")
	}

	// Shutdown on a stopped engine is a no-op.
	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatalf("repeated Shutdown() error: %v", err)
	}
}
