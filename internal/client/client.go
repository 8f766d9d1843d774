// Package client provides the HTTP client for the directory API: the
// single ?action= endpoint serving roster, message, and session
// operations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mymail/mymail/internal/model"
)

// DefaultTimeout bounds each API call. Generous enough to never trip
// on a healthy connection; without it a hung fetch would stall the
// sync loop indefinitely.
const DefaultTimeout = 10 * time.Second

// Client talks to the directory API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithClock overrides the timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Login authenticates the given credentials. A 401 maps to
// ErrInvalidCredentials; any other failure is a NetworkError.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" {
		return nil, &ValidationError{Field: "email", Reason: "is required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Reason: "is required"}
	}

	body := model.LoginRequest{
		Email:     email,
		Password:  password,
		Timestamp: c.now().UnixMilli(),
	}

	var user model.User
	if err := c.do(ctx, http.MethodPost, "login", nil, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout clears the online flag server-side and stamps last-seen.
func (c *Client) Logout(ctx context.Context, userID int64) error {
	body := model.LogoutRequest{
		UserID:    userID,
		Timestamp: c.now().UnixMilli(),
	}
	return c.do(ctx, http.MethodPost, "logout", nil, body, nil)
}

// Users fetches the full roster.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, http.MethodGet, "users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Messages fetches all messages visible to userID with identifier
// greater than since. since=0 returns the full history.
func (c *Client) Messages(ctx context.Context, userID, since int64) ([]model.Message, error) {
	query := url.Values{
		"userId": {strconv.FormatInt(userID, 10)},
		"since":  {strconv.FormatInt(since, 10)},
	}

	var messages []model.Message
	if err := c.do(ctx, http.MethodGet, "messages", query, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Updates fetches the delta payload: roster snapshot plus messages
// with identifier greater than lastMessageID.
func (c *Client) Updates(ctx context.Context, userID, lastMessageID int64) (*model.Updates, error) {
	query := url.Values{
		"userId":        {strconv.FormatInt(userID, 10)},
		"lastMessageId": {strconv.FormatInt(lastMessageID, 10)},
	}

	var updates model.Updates
	if err := c.do(ctx, http.MethodGet, "updates", query, nil, &updates); err != nil {
		return nil, err
	}
	return &updates, nil
}

// SendMessage stores a message addressed to one or more recipients and
// returns its server-assigned identifier. The creation timestamp is
// client-supplied.
func (c *Client) SendMessage(ctx context.Context, fromUserID int64, toUserIDs []int64, text string) (int64, error) {
	if text == "" {
		return 0, &ValidationError{Field: "text", Reason: "is required"}
	}
	if len(toUserIDs) == 0 {
		return 0, &ValidationError{Field: "toUserIds", Reason: "must not be empty"}
	}

	body := model.SendMessageRequest{
		FromUserID: fromUserID,
		ToUserIDs:  toUserIDs,
		Text:       text,
		Timestamp:  c.now().UnixMilli(),
	}

	var resp model.SendMessageResponse
	if err := c.do(ctx, http.MethodPost, "send_message", nil, body, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// CreateUser registers a new employee account. Email is the bare local
// part; the server appends the organizational domain.
func (c *Client) CreateUser(ctx context.Context, email, firstName, lastName, password string) (*model.User, error) {
	if email == "" {
		return nil, &ValidationError{Field: "email", Reason: "is required"}
	}
	if firstName == "" {
		return nil, &ValidationError{Field: "firstName", Reason: "is required"}
	}
	if lastName == "" {
		return nil, &ValidationError{Field: "lastName", Reason: "is required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Reason: "is required"}
	}

	body := model.CreateUserRequest{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Password:  password,
	}

	var user model.User
	if err := c.do(ctx, http.MethodPost, "create_user", nil, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes an employee account. The server refuses to delete
// the owner.
func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodPost, "delete_user", nil, model.DeleteUserRequest{UserID: userID}, nil)
}

// UpdateProfile sets the display name and returns the updated record.
func (c *Client) UpdateProfile(ctx context.Context, userID int64, displayName string) (*model.User, error) {
	body := model.UpdateProfileRequest{
		UserID:      userID,
		DisplayName: displayName,
	}

	var user model.User
	if err := c.do(ctx, http.MethodPost, "update_profile", nil, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// do performs one API call: marshal body, issue the request, map the
// status code, and decode the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, action string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("action", action)
	endpoint := c.baseURL + "/?" + query.Encode()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: action, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return &NetworkError{Op: action, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: action, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}
