package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mymail/mymail/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLogin(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.URL.Query().Get("action"); got != "login" {
			t.Errorf("action = %q, want login", got)
		}

		var req model.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Email != "anna@mymail.local" || req.Password != "secret" {
			t.Errorf("credentials = %q / %q", req.Email, req.Password)
		}
		if req.Timestamp != at.UnixMilli() {
			t.Errorf("timestamp = %d, want %d", req.Timestamp, at.UnixMilli())
		}

		json.NewEncoder(w).Encode(model.User{ID: 7, Email: req.Email, IsOnline: true})
	}))
	defer srv.Close()

	c := New(srv.URL, WithClock(fixedClock(at)))

	user, err := c.Login(context.Background(), "anna@mymail.local", "secret")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if user.ID != 7 || !user.IsOnline {
		t.Fatalf("Login() = %+v", user)
	}
}

func TestLoginRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL)

	_, err := c.Login(context.Background(), "anna@mymail.local", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginValidation(t *testing.T) {
	t.Parallel()

	// No server: validation must reject before any network call.
	c := New("http://127.0.0.1:0")

	if _, err := c.Login(context.Background(), "", "secret"); !IsValidation(err) {
		t.Fatalf("empty email: error = %v, want validation", err)
	}
	if _, err := c.Login(context.Background(), "anna@mymail.local", ""); !IsValidation(err) {
		t.Fatalf("empty password: error = %v, want validation", err)
	}
}

func TestUpdates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("action") != "updates" || q.Get("userId") != "7" || q.Get("lastMessageId") != "42" {
			t.Errorf("query = %v", q)
		}

		json.NewEncoder(w).Encode(model.Updates{
			Users: []model.User{{ID: 7}, {ID: 8}},
			NewMessages: []model.Message{
				{ID: 43, FromUserID: 8, ToUserIDs: []int64{7}, Text: "ping"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)

	updates, err := c.Updates(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("Updates() error: %v", err)
	}
	if len(updates.Users) != 2 || len(updates.NewMessages) != 1 {
		t.Fatalf("Updates() = %+v", updates)
	}
	if updates.NewMessages[0].ID != 43 {
		t.Fatalf("message ID = %d, want 43", updates.NewMessages[0].ID)
	}
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.FromUserID != 7 || len(req.ToUserIDs) != 2 || req.Text != "all hands" {
			t.Errorf("request = %+v", req)
		}

		json.NewEncoder(w).Encode(model.SendMessageResponse{ID: 99, Success: true})
	}))
	defer srv.Close()

	c := New(srv.URL)

	id, err := c.SendMessage(context.Background(), 7, []int64{8, 9}, "all hands")
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if id != 99 {
		t.Fatalf("id = %d, want 99", id)
	}
}

func TestSendMessageValidation(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:0")

	if _, err := c.SendMessage(context.Background(), 7, []int64{8}, ""); !IsValidation(err) {
		t.Fatalf("empty text: error = %v, want validation", err)
	}
	if _, err := c.SendMessage(context.Background(), 7, nil, "hi"); !IsValidation(err) {
		t.Fatalf("no recipients: error = %v, want validation", err)
	}
}

func TestServerErrorIsNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)

	_, err := c.Users(context.Background())
	if !IsNetwork(err) {
		t.Fatalf("Users() error = %v, want NetworkError", err)
	}
}

func TestUnreachableServerIsNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Take the listener down before the call.

	c := New(srv.URL)

	_, err := c.Users(context.Background())
	if !IsNetwork(err) {
		t.Fatalf("Users() error = %v, want NetworkError", err)
	}
}
