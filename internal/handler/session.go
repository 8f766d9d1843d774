package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/mymail/mymail/internal/auth"
	"github.com/mymail/mymail/internal/model"
	"github.com/mymail/mymail/internal/repository"
)

// Login handles POST ?action=login. On success the user record is
// returned with the online flag already set and last_seen stamped with
// the client-supplied timestamp. Credential mismatch and unknown email
// are indistinguishable on the wire (single 401 body).
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing required field")
		return
	}

	if !h.allowLogin(r, req.Email) {
		h.metrics.IncLogin("rate_limited")
		writeError(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}

	user, err := h.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.metrics.IncLogin("rejected")
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("failed to load user for login", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			h.logger.Warn("password verification failed", "user_id", user.ID, "error", err)
		}
		h.metrics.IncLogin("rejected")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	updated, err := h.repo.MarkLoggedIn(r.Context(), user.ID, req.Timestamp)
	if err != nil {
		h.logger.Error("failed to mark user logged in", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.invalidateRoster(r)
	h.metrics.IncLogin("success")
	h.logger.Info("user logged in", "user_id", updated.ID)

	writeJSON(w, http.StatusOK, updated)
}

// Logout handles POST ?action=logout: clears the online flag and
// stamps last_seen.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.repo.MarkLoggedOut(r.Context(), req.UserID, req.Timestamp); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to mark user logged out", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.invalidateRoster(r)
	h.logger.Info("user logged out", "user_id", req.UserID)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// allowLogin applies the email+IP token bucket. Rate limiting is a
// best-effort guard: if Redis is unavailable the attempt is allowed.
func (h *APIHandler) allowLogin(r *http.Request, email string) bool {
	if !h.cfg.RateLimitLoginEnabled || h.cache == nil {
		return true
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	result, err := h.cache.CheckLoginRateLimit(r.Context(), email, ip, h.cfg.RateLimitLoginRPM, h.cfg.RateLimitLoginBurst)
	if err != nil {
		h.logger.Warn("login rate limit check failed", "error", err)
		return true
	}

	return result.Allowed
}
