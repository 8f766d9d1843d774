// Package session drives the login/logout state machine and owns the
// sync engine lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	stdsync "sync"
	"time"

	"github.com/mymail/mymail/internal/client"
	"github.com/mymail/mymail/internal/metrics"
	"github.com/mymail/mymail/internal/model"
	"github.com/mymail/mymail/internal/roster"
	"github.com/mymail/mymail/internal/store"
	"github.com/mymail/mymail/internal/sync"
)

// State is the controller's lifecycle state.
type State int

const (
	// StateLoggedOut is the rest state; no engine runs.
	StateLoggedOut State = iota
	// StateAuthenticating covers the login round trip.
	StateAuthenticating
	// StateLoggedIn means the sync engine is polling.
	StateLoggedIn
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedIn:
		return "logged_in"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// API is the remote surface the controller drives. *client.Client
// satisfies it.
type API interface {
	Login(ctx context.Context, email, password string) (*model.User, error)
	Logout(ctx context.Context, userID int64) error
	Updates(ctx context.Context, userID, lastMessageID int64) (*model.Updates, error)
	SendMessage(ctx context.Context, fromUserID int64, toUserIDs []int64, text string) (int64, error)
	CreateUser(ctx context.Context, email, firstName, lastName, password string) (*model.User, error)
	DeleteUser(ctx context.Context, userID int64) error
	UpdateProfile(ctx context.Context, userID int64, displayName string) (*model.User, error)
}

// Controller owns one user session: the roster cache, the message
// store, and the sync engine that feeds them. A fresh engine is built
// on every login so the cursor always starts from zero.
type Controller struct {
	api      API
	roster   *roster.Cache
	store    *store.Store
	notifier sync.Notifier
	logger   *slog.Logger
	metrics  metrics.Recorder
	interval time.Duration
	now      func() time.Time

	mu           stdsync.Mutex
	state        State
	self         *model.User
	engine       *sync.Engine
	selectedChat int64
}

// Option configures the controller.
type Option func(*Controller)

// WithPollInterval overrides the sync engine's poll interval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Controller) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(c *Controller) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a logged-out controller.
func New(api API, notifier sync.Notifier, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		api:      api,
		roster:   roster.New(),
		store:    store.New(),
		notifier: notifier,
		logger:   logger.With("component", "session"),
		metrics:  metrics.NewNoop(),
		interval: sync.DefaultPollInterval,
		now:      time.Now,
		state:    StateLoggedOut,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Self returns the authenticated user, or nil when logged out.
func (c *Controller) Self() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.self == nil {
		return nil
	}
	u := *c.self
	return &u
}

// Roster returns the roster cache.
func (c *Controller) Roster() *roster.Cache { return c.roster }

// Store returns the message store.
func (c *Controller) Store() *store.Store { return c.store }

// Login authenticates, performs the initial full load, and starts the
// sync engine. client.ErrInvalidCredentials passes through on a
// rejected login; any failure leaves the controller logged out.
func (c *Controller) Login(ctx context.Context, email, password string) (*model.User, error) {
	c.mu.Lock()
	if c.state != StateLoggedOut {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("login from state %s", state)
	}
	c.state = StateAuthenticating
	c.mu.Unlock()

	user, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.mu.Lock()
		c.state = StateLoggedOut
		c.mu.Unlock()
		if errors.Is(err, client.ErrInvalidCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	engine := sync.NewEngine(c.api, c.roster, c.store, c.notifier, c.logger, c.metrics, user.ID)
	engine.SetPollInterval(c.interval)

	// A failed bootstrap is not fatal: the first successful tick
	// delivers the same full load from cursor zero.
	if err := engine.Bootstrap(ctx); err != nil {
		c.logger.Warn("initial sync failed, polling will recover", "error", err)
	}

	c.mu.Lock()
	c.self = user
	c.engine = engine
	c.state = StateLoggedIn
	c.mu.Unlock()

	go func() {
		if err := engine.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("sync engine exited", "error", err)
		}
	}()

	c.logger.Info("logged in", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Logout tells the server best-effort, stops the sync engine, and
// clears all session state. When it returns nil no further merge can
// touch the roster or the store. If the engine does not stop within
// ctx the session stays logged in with its caches intact, and Logout
// can be retried.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateLoggedIn {
		c.mu.Unlock()
		return nil
	}
	self := c.self
	engine := c.engine
	c.mu.Unlock()

	if err := c.api.Logout(ctx, self.ID); err != nil {
		c.logger.Warn("server logout failed", "user_id", self.ID, "error", err)
	}

	// Clearing the caches before the engine has stopped would let a
	// straggling tick merge into them, so a failed stop aborts here.
	if err := engine.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop sync engine: %w", err)
	}

	c.mu.Lock()
	c.self = nil
	c.engine = nil
	c.selectedChat = 0
	c.state = StateLoggedOut
	c.mu.Unlock()

	c.roster.Clear()
	c.store.Clear()

	c.logger.Info("logged out", "user_id", self.ID)
	return nil
}

// SelectChat opens the conversation with the given user. Zero closes
// the open chat.
func (c *Controller) SelectChat(userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLoggedIn {
		return errors.New("not logged in")
	}
	if userID == 0 {
		c.selectedChat = 0
		return nil
	}
	if userID == c.self.ID {
		return &client.ValidationError{Field: "userId", Reason: "cannot open a chat with yourself"}
	}
	if _, ok := c.roster.Get(userID); !ok {
		return fmt.Errorf("user %d not in roster", userID)
	}
	c.selectedChat = userID
	return nil
}

// SelectedChat returns the open conversation partner, or zero.
func (c *Controller) SelectedChat() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedChat
}

// Conversation returns the messages of the open chat in insertion
// order.
func (c *Controller) Conversation() []model.Message {
	c.mu.Lock()
	self := c.self
	chat := c.selectedChat
	c.mu.Unlock()

	if self == nil || chat == 0 {
		return nil
	}
	return c.store.Between(self.ID, chat)
}

// SendMessage sends text to the open chat. The message is appended to
// the local store with its server-assigned ID so it shows up before
// the next poll.
func (c *Controller) SendMessage(ctx context.Context, text string) (int64, error) {
	c.mu.Lock()
	self := c.self
	chat := c.selectedChat
	state := c.state
	c.mu.Unlock()

	if state != StateLoggedIn {
		return 0, errors.New("not logged in")
	}
	if chat == 0 {
		return 0, &client.ValidationError{Field: "toUserIds", Reason: "no chat selected"}
	}
	return c.send(ctx, self.ID, []int64{chat}, text)
}

// Broadcast sends text to every other user on the roster.
func (c *Controller) Broadcast(ctx context.Context, text string) (int64, error) {
	c.mu.Lock()
	self := c.self
	state := c.state
	c.mu.Unlock()

	if state != StateLoggedIn {
		return 0, errors.New("not logged in")
	}

	others := c.roster.Others(self.ID)
	if len(others) == 0 {
		return 0, &client.ValidationError{Field: "toUserIds", Reason: "nobody to broadcast to"}
	}
	recipients := make([]int64, 0, len(others))
	for _, u := range others {
		recipients = append(recipients, u.ID)
	}
	return c.send(ctx, self.ID, recipients, text)
}

func (c *Controller) send(ctx context.Context, from int64, to []int64, text string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, &client.ValidationError{Field: "text", Reason: "must not be empty"}
	}

	id, err := c.api.SendMessage(ctx, from, to, text)
	if err != nil {
		return 0, err
	}

	c.store.Append([]model.Message{{
		ID:         id,
		FromUserID: from,
		ToUserIDs:  to,
		Text:       text,
		Timestamp:  c.now().UnixMilli(),
	}})
	return id, nil
}

// CreateUser registers a new member. Owner only.
func (c *Controller) CreateUser(ctx context.Context, localPart, firstName, lastName, password string) (*model.User, error) {
	if err := c.requireOwner(); err != nil {
		return nil, err
	}
	return c.api.CreateUser(ctx, localPart, firstName, lastName, password)
}

// DeleteUser removes a member. Owner only; the server refuses to
// delete the owner itself.
func (c *Controller) DeleteUser(ctx context.Context, userID int64) error {
	if err := c.requireOwner(); err != nil {
		return err
	}

	if err := c.api.DeleteUser(ctx, userID); err != nil {
		return err
	}

	c.mu.Lock()
	if c.selectedChat == userID {
		c.selectedChat = 0
	}
	c.mu.Unlock()
	return nil
}

// UpdateProfile changes the authenticated user's display name.
func (c *Controller) UpdateProfile(ctx context.Context, displayName string) (*model.User, error) {
	c.mu.Lock()
	self := c.self
	state := c.state
	c.mu.Unlock()

	if state != StateLoggedIn {
		return nil, errors.New("not logged in")
	}

	updated, err := c.api.UpdateProfile(ctx, self.ID, displayName)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.self = updated
	c.mu.Unlock()
	return updated, nil
}

func (c *Controller) requireOwner() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLoggedIn {
		return errors.New("not logged in")
	}
	if !c.self.IsOwner() {
		return errors.New("owner role required")
	}
	return nil
}
