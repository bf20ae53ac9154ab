// Package auctionhouse is the Go SDK for the auction marketplace API.
//
// It covers the REST API (auth, auctions, bids) and the realtime event stream.
//
// Example:
//
//	client := auctionhouse.NewClient("", auctionhouse.WithBaseURL("https://api.example.com"))
//	auth, _ := client.Auth().Login(ctx, "me@example.com", "secret")
//	client.SetToken(auth.Token)
//
//	page, _ := client.Auctions().List(ctx, &auctionhouse.ListOptions{Status: "active"})
//
//	rt := auctionhouse.NewRealtimeClient(&auctionhouse.RealtimeConfig{
//		Credentials: auctionhouse.StaticToken(auth.Token),
//	})
//	store := auctionhouse.NewEventStore()
//	rt.Connect(client.RealtimeURL(), store)
//	defer rt.Disconnect()
package auctionhouse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://localhost:3000"
	DefaultTimeout = 30 * time.Second
)

// ============================================================================
// Client
// ============================================================================

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger

	mu    sync.RWMutex
	token string

	auth     *AuthClient
	auctions *AuctionsClient
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// NewClient creates a new API client.
// token is optional; pass "" before logging in.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.auth = &AuthClient{client: c}
	c.auctions = &AuctionsClient{client: c}
	return c
}

// SetToken sets or replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL returns the REST base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Auth returns the authentication sub-client.
func (c *Client) Auth() *AuthClient { return c.auth }

// Auctions returns the auctions sub-client.
func (c *Client) Auctions() *AuctionsClient { return c.auctions }

// RealtimeURL returns the event stream base URL: the REST base with its scheme
// switched to ws or wss.
func (c *Client) RealtimeURL() string {
	switch {
	case strings.HasPrefix(c.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.baseURL, "https://")
	case strings.HasPrefix(c.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.baseURL, "http://")
	default:
		return c.baseURL
	}
}

// ============================================================================
// Internal request helper
// ============================================================================

type request struct {
	method string
	path   string
	body   interface{}
	query  map[string]string
	// anonymous requests never carry the bearer token (login, register)
	anonymous bool
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		params := url.Values{}
		for k, v := range r.query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request")
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" && !r.anonymous {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", r.method, r.path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	c.log.Debug("api request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "unmarshal response")
	}
	return &result, nil
}

// decodeWrapped decodes either {"<key>": T} or a bare T.
func decodeWrapped[T any](data []byte, key string) (*T, error) {
	var wrapped map[string]json.RawMessage
	if json.Unmarshal(data, &wrapped) == nil {
		if inner, ok := wrapped[key]; ok && len(inner) > 0 && string(inner) != "null" {
			return decodeJSON[T](inner)
		}
	}
	return decodeJSON[T](data)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
