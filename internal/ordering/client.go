package ordering

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultClientTimeout = 15 * time.Second

var errMissingBaseURL = errors.New("ordering: base url is required")

// APIError is a non-2xx response from the bookmarks API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bookmarks api http %d", e.StatusCode)
	}
	return fmt.Sprintf("bookmarks api http %d: %s", e.StatusCode, e.Message)
}

// ClientConfig configures the HTTP client for the bookmarks API.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	// Token is sent as a bearer credential when set. Otherwise the session
	// cookie obtained by Login is used.
	Token  string
	Logger *zap.Logger
}

// Client talks to the bookmarks JSON API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	logger  *zap.Logger
}

// NewClient builds a Client. Without an HTTPClient a cookie-aware client is created.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errMissingBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("ordering: invalid base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Timeout: defaultClientTimeout, Jar: jar}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: base, http: httpClient, token: strings.TrimSpace(cfg.Token), logger: logger}, nil
}

// Login authenticates and keeps the session cookie in the client's jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/login", body, nil)
}

// List fetches the caller's bookmarks in stored order.
func (c *Client) List(ctx context.Context) ([]Item, error) {
	var response struct {
		Bookmarks []Item `json:"bookmarks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/bookmarks", nil, &response); err != nil {
		return nil, err
	}
	return response.Bookmarks, nil
}

// Create saves a bookmark and returns the enriched record.
func (c *Client) Create(ctx context.Context, pageURL string, tags []string) (Item, error) {
	if tags == nil {
		tags = []string{}
	}
	var response struct {
		Bookmark Item `json:"bookmark"`
	}
	body := map[string]any{"url": pageURL, "tags": tags}
	if err := c.do(ctx, http.MethodPost, "/api/bookmarks", body, &response); err != nil {
		return Item{}, err
	}
	return response.Bookmark, nil
}

// Delete removes a bookmark.
func (c *Client) Delete(ctx context.Context, bookmarkID string) error {
	return c.do(ctx, http.MethodDelete, "/api/bookmarks/"+url.PathEscape(bookmarkID), nil, nil)
}

// Reorder commits ids as the durable order and reports how many records changed.
func (c *Client) Reorder(ctx context.Context, ids []string) (int, error) {
	if ids == nil {
		ids = []string{}
	}
	var response struct {
		Applied int `json:"applied"`
	}
	body := map[string]any{"bookmarkIds": ids}
	if err := c.do(ctx, http.MethodPost, "/api/bookmarks/reorder", body, &response); err != nil {
		return 0, err
	}
	return response.Applied, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, target any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if res.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&payload)
		return &APIError{StatusCode: res.StatusCode, Message: payload.Error}
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(target)
}
