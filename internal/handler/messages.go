package handler

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/mymail/mymail/internal/model"
)

// Messages handles GET ?action=messages&userId=ID&since=N: every
// message visible to the user with identifier greater than since,
// ordered by identifier. since=0 yields the full history.
func (h *APIHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryInt64(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid userId")
		return
	}
	since, ok := queryInt64Default(r, "since", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid since")
		return
	}

	messages, err := h.repo.ListMessages(r.Context(), userID, since)
	if err != nil {
		h.logger.Error("failed to list messages", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// Updates handles GET ?action=updates&userId=ID&lastMessageId=N: the
// delta endpoint polled by the sync engine. It returns a full roster
// snapshot plus messages newer than the client's high-water mark.
func (h *APIHandler) Updates(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryInt64(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid userId")
		return
	}
	lastMessageID, ok := queryInt64Default(r, "lastMessageId", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid lastMessageId")
		return
	}

	users, err := h.loadRoster(r)
	if err != nil {
		h.logger.Error("failed to load roster for updates", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	newMessages, err := h.repo.ListMessages(r.Context(), userID, lastMessageID)
	if err != nil {
		h.logger.Error("failed to list delta messages", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, model.Updates{
		Users:       users,
		NewMessages: newMessages,
	})
}

// SendMessage handles POST ?action=send_message. The sender is
// stripped from the recipient set; an empty text or recipient set is
// rejected before touching storage.
func (h *APIHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Message text is required")
		return
	}

	recipients := dedupeRecipients(req.ToUserIDs, req.FromUserID)
	if len(recipients) == 0 {
		writeError(w, http.StatusBadRequest, "At least one recipient is required")
		return
	}

	msg := &model.Message{
		FromUserID: req.FromUserID,
		ToUserIDs:  recipients,
		Text:       req.Text,
		Timestamp:  req.Timestamp,
	}

	id, err := h.repo.CreateMessage(r.Context(), msg)
	if err != nil {
		h.logger.Error("failed to store message", "from_user_id", req.FromUserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.metrics.IncMessageSent()
	h.metrics.ObserveMessageFanout(len(recipients))
	h.logger.Info("message stored",
		"message_id", id,
		"from_user_id", req.FromUserID,
		"recipients", len(recipients),
	)

	writeJSON(w, http.StatusOK, model.SendMessageResponse{ID: id, Success: true})
}

// dedupeRecipients removes duplicate IDs and the sender, preserving order.
func dedupeRecipients(ids []int64, sender int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == sender || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// queryInt64 parses a required int64 query parameter.
func queryInt64(r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// queryInt64Default parses an optional int64 query parameter.
func queryInt64Default(r *http.Request, name string, def int64) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
