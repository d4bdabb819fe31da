// Package reqres talks to the remote user directory (a reqres-style REST API).
package reqres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/noah-isme/userdesk/internal/observability"
	"github.com/noah-isme/userdesk/internal/shared"
)

// ErrRemote marks every failed call against the remote directory.
var ErrRemote = errors.New("remote directory request failed")

// DefaultBaseURL points at the public demo directory.
const DefaultBaseURL = "https://reqres.in/api"

// Client wraps interactions with the remote directory API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *observability.Metrics
}

// Option customises a Client.
type Option func(*Client)

// WithAPIKey sends the key in the x-api-key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics instruments every call.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient constructs a new client.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListUsers fetches page n of the directory.
func (c *Client) ListUsers(ctx context.Context, page int) (Page, error) {
	tracker := c.metrics.TrackRemote("list_users")
	query := url.Values{"page": []string{strconv.Itoa(page)}}
	var out Page
	err := c.do(ctx, http.MethodGet, "/users?"+query.Encode(), nil, &out)
	if err != nil {
		return Page{}, tracker.End(remoteError("list_users", err).With("page", page).Wrap(err))
	}
	return out, tracker.End(nil)
}

// UpdateUser sends a partial update and returns the echoed fields.
func (c *Client) UpdateUser(ctx context.Context, id int64, patch UserPatch) (UserPatch, error) {
	tracker := c.metrics.TrackRemote("update_user")
	var echoed UserPatch
	if err := c.do(ctx, http.MethodPut, userPath(id), patch, &echoed); err != nil {
		return UserPatch{}, tracker.End(remoteError("update_user", err).With("user_id", id).Wrap(err))
	}
	return echoed, tracker.End(nil)
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	tracker := c.metrics.TrackRemote("delete_user")
	if err := c.do(ctx, http.MethodDelete, userPath(id), nil, nil); err != nil {
		return tracker.End(remoteError("delete_user", err).With("user_id", id).Wrap(err))
	}
	return tracker.End(nil)
}

// Login exchanges credentials for a token. Any non-2xx answer, or a 2xx answer
// without a token, is shared.ErrInvalidCredentials. Transport failures wrap ErrRemote.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	tracker := c.metrics.TrackRemote("login")
	var out loginResponse
	err := c.do(ctx, http.MethodPost, "/login", loginRequest{Email: email, Password: password}, &out)
	var status *statusError
	switch {
	case errors.As(err, &status):
		return "", tracker.End(oops.In("reqres").With("op", "login", "status", status.code).Wrap(shared.ErrInvalidCredentials))
	case err != nil:
		return "", tracker.End(remoteError("login", err).Wrap(err))
	case out.Token == "":
		return "", tracker.End(oops.In("reqres").With("op", "login").Wrap(shared.ErrInvalidCredentials))
	}
	return out.Token, tracker.End(nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &statusError{code: resp.StatusCode}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrRemote, err)
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("remote directory returned status %d", e.code)
}

func (e *statusError) Unwrap() error {
	return ErrRemote
}

func remoteError(op string, err error) oops.OopsErrorBuilder {
	builder := oops.In("reqres").With("op", op)
	var status *statusError
	if errors.As(err, &status) {
		builder = builder.With("status", status.code)
	}
	return builder
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}
