package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mymail/mymail/internal/cache"
	"github.com/mymail/mymail/internal/metrics"
	"github.com/mymail/mymail/internal/repository"
)

// APIConfig carries the tunables the action handlers need.
type APIConfig struct {
	// EmailDomain is appended to bare local parts on account creation.
	EmailDomain string

	// RosterCacheTTL bounds staleness of the Redis roster snapshot.
	RosterCacheTTL time.Duration

	// Login rate limiting
	RateLimitLoginEnabled bool
	RateLimitLoginRPM     int
	RateLimitLoginBurst   int
}

// APIHandler serves the single-endpoint action API: every operation is
// selected by the ?action= query parameter, GET for reads and POST for
// mutations.
type APIHandler struct {
	logger  *slog.Logger
	repo    *repository.Repository
	cache   *cache.Cache
	metrics metrics.Recorder
	cfg     APIConfig
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(logger *slog.Logger, repo *repository.Repository, cacheClient *cache.Cache, recorder metrics.Recorder, cfg APIConfig) *APIHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &APIHandler{
		logger:  logger.With("component", "handler.api"),
		repo:    repo,
		cache:   cacheClient,
		metrics: recorder,
		cfg:     cfg,
	}
}

// Get dispatches GET actions: users, messages, updates.
func (h *APIHandler) Get(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "users":
		h.Users(w, r)
	case "messages":
		h.Messages(w, r)
	case "updates":
		h.Updates(w, r)
	case "":
		New().Hello(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Post dispatches POST actions: login, logout, create_user,
// delete_user, send_message, update_profile.
func (h *APIHandler) Post(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "login":
		h.Login(w, r)
	case "logout":
		h.Logout(w, r)
	case "create_user":
		h.CreateUser(w, r)
	case "delete_user":
		h.DeleteUser(w, r)
	case "send_message":
		h.SendMessage(w, r)
	case "update_profile":
		h.UpdateProfile(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// invalidateRoster drops the cached roster after a user mutation.
// Cache failures only cost freshness, so they are logged and ignored.
func (h *APIHandler) invalidateRoster(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateRoster(r.Context()); err != nil {
		h.logger.Warn("failed to invalidate roster cache", "error", err)
	}
}
