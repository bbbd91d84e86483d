// pkg/client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/models"
	"taskdeck/internal/session"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Client talks to the taskdeck HTTP API. It implements session.Store, so a
// local session can reconcile directly against a remote server.
type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

var _ session.Store = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokens primes the client with a previously issued token pair.
func WithTokens(access, refresh string) Option {
	return func(c *Client) {
		c.accessToken = access
		c.refreshToken = refresh
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Account is the user record as the API returns it.
type Account struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type authResult struct {
	User         Account `json:"user"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
}

type tokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Register creates an account and leaves the client authenticated as it.
func (c *Client) Register(ctx context.Context, email, username, password string) (Account, error) {
	body := map[string]string{"email": email, "username": username, "password": password}
	var out authResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", body, &out); err != nil {
		return Account{}, err
	}
	c.setTokens(out.AccessToken, out.RefreshToken)
	return out.User, nil
}

// Login authenticates with an email or username.
func (c *Client) Login(ctx context.Context, login, password string) (Account, error) {
	body := map[string]string{"login": login, "password": password}
	var out authResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &out); err != nil {
		return Account{}, err
	}
	c.setTokens(out.AccessToken, out.RefreshToken)
	return out.User, nil
}

// Refresh rotates the stored token pair.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.RLock()
	refresh := c.refreshToken
	c.mu.RUnlock()

	body := map[string]string{"refresh_token": refresh}
	var out tokenResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", body, &out); err != nil {
		return err
	}
	c.setTokens(out.AccessToken, out.RefreshToken)
	return nil
}

// Logout revokes the stored refresh token and forgets both tokens.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.RLock()
	refresh := c.refreshToken
	c.mu.RUnlock()

	body := map[string]string{"refresh_token": refresh}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", body, nil); err != nil {
		return err
	}
	c.setTokens("", "")
	return nil
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (Account, error) {
	var out Account
	err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &out)
	return out, err
}

func (c *Client) setTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken = access
	c.refreshToken = refresh
	c.mu.Unlock()
}

// FetchTasks returns all tasks of the authenticated user.
func (c *Client) FetchTasks(ctx context.Context) ([]models.Task, error) {
	var out []models.Task
	err := c.do(ctx, http.MethodGet, "/api/v1/tasks", nil, &out)
	return out, err
}

// TitleExists reports whether a task with exactly this title exists.
func (c *Client) TitleExists(ctx context.Context, title string) (bool, error) {
	var out []models.Task
	path := "/api/v1/tasks?title=" + url.QueryEscape(title)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return len(out) > 0, nil
}

// InsertTask persists a draft and returns the server's record.
func (c *Client) InsertTask(ctx context.Context, draft session.TaskDraft) (models.Task, error) {
	var out models.Task
	err := c.do(ctx, http.MethodPost, "/api/v1/tasks", draft, &out)
	return out, err
}

// UpdateTask applies a partial update and returns the updated record.
func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, patch session.TaskPatch) (models.Task, error) {
	var out models.Task
	err := c.do(ctx, http.MethodPatch, "/api/v1/tasks/"+id.String(), patch, &out)
	return out, err
}

// DeleteTask removes one task.
func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/tasks/"+id.String(), nil, nil)
}

type bulkUpdateRequest struct {
	IDs   []uuid.UUID       `json:"ids"`
	Patch session.TaskPatch `json:"patch"`
}

type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// UpdateTasks applies one patch to every id, atomically.
func (c *Client) UpdateTasks(ctx context.Context, ids []uuid.UUID, patch session.TaskPatch) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/tasks", bulkUpdateRequest{IDs: ids, Patch: patch}, nil)
}

// DeleteTasks removes every id, atomically.
func (c *Client) DeleteTasks(ctx context.Context, ids []uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/tasks", bulkDeleteRequest{IDs: ids}, nil)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// do sends one request and decodes the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		sentinel := statusError(resp.StatusCode)
		if env.Error != nil {
			return fmt.Errorf("%w: %s", sentinel, env.Error.Message)
		}
		return sentinel
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

func statusError(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return fmt.Errorf("server returned status %d", code)
	}
}
