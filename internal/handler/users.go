package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mymail/mymail/internal/auth"
	"github.com/mymail/mymail/internal/cache"
	"github.com/mymail/mymail/internal/model"
	"github.com/mymail/mymail/internal/repository"
)

// Users handles GET ?action=users: the full active roster.
// Reads go through the Redis snapshot when available; Postgres is the
// source of truth and any cache failure falls through to it.
func (h *APIHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.loadRoster(r)
	if err != nil {
		h.logger.Error("failed to load roster", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// loadRoster returns the active roster, preferring the cache snapshot.
func (h *APIHandler) loadRoster(r *http.Request) ([]model.User, error) {
	ctx := r.Context()

	if h.cache != nil {
		if users, err := h.cache.GetRoster(ctx); err == nil {
			h.metrics.IncRosterCacheHit()
			return users, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("roster cache read failed", "error", err)
		}
		h.metrics.IncRosterCacheMiss()
	}

	users, err := h.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.SetRoster(ctx, users, h.cfg.RosterCacheTTL); err != nil {
			h.logger.Warn("roster cache write failed", "error", err)
		}
	}

	return users, nil
}

// CreateUser handles POST ?action=create_user. The email field carries
// only the local part; the organizational domain is appended here.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	local := strings.TrimSpace(req.Email)
	if local == "" || req.FirstName == "" || req.LastName == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing required field")
		return
	}
	if strings.Contains(local, "@") {
		writeError(w, http.StatusBadRequest, "Email must be a bare local part")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &model.User{
		Email:         local + "@" + h.cfg.EmailDomain,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Role:          model.RoleMember,
		IsOnline:      false,
		NeverLoggedIn: true,
		PasswordHash:  hash,
	}

	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			writeError(w, http.StatusConflict, "Email already exists")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.invalidateRoster(r)
	h.logger.Info("user created", "user_id", user.ID, "email", user.Email)

	writeJSON(w, http.StatusOK, user)
}

// DeleteUser handles POST ?action=delete_user. The owner account is
// never deletable; members are soft-deleted so message history keeps
// valid sender references.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var req model.DeleteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.repo.GetUserByID(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to load user", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if user.IsOwner() {
		writeError(w, http.StatusBadRequest, "Owner cannot be deleted")
		return
	}

	if err := h.repo.SoftDeleteUser(r.Context(), req.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to delete user", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.invalidateRoster(r)
	h.logger.Info("user deleted", "user_id", req.UserID)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdateProfile handles POST ?action=update_profile.
func (h *APIHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.repo.UpdateDisplayName(r.Context(), req.UserID, strings.TrimSpace(req.DisplayName))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to update profile", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.invalidateRoster(r)

	writeJSON(w, http.StatusOK, user)
}
