package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/pkg/log"
)

// APIError is a non-2xx XRPC answer.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("xrpc http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("xrpc http %d %s: %s", e.Status, e.Code, e.Message)
}

// Is maps throttling to core.ErrRateLimited and server faults to core.ErrTransient.
func (e *APIError) Is(target error) bool {
	switch target {
	case core.ErrRateLimited:
		return e.Status == http.StatusTooManyRequests || e.Code == "RateLimitExceeded"
	case core.ErrTransient:
		return e.Status >= 500
	}
	return false
}

func (e *APIError) expiredToken() bool {
	return e.Code == "ExpiredToken" || e.Code == "InvalidToken"
}

type session struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	DID        string `json:"did"`
	Handle     string `json:"handle"`

	createdAt time.Time
}

// Client talks XRPC to a PDS with an app-password session.
type Client struct {
	http   *http.Client
	host   string
	handle string
	secret string
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	session *session
}

func NewClient(cfg *config.BlueskyConfig, timeout time.Duration) *Client {
	return &Client{
		http:   &http.Client{Timeout: timeout},
		host:   strings.TrimRight(cfg.Host, "/"),
		handle: cfg.Handle,
		secret: cfg.AppPassword,
		ttl:    cfg.SessionTTL,
		now:    time.Now,
	}
}

// Handle is the account the client logs in as.
func (c *Client) Handle() string {
	return c.handle
}

// DID returns the logged-in account DID, logging in if needed.
func (c *Client) DID(ctx context.Context) (string, error) {
	s, err := c.ensureSession(ctx)
	if err != nil {
		return "", err
	}
	return s.DID, nil
}

func (c *Client) ensureSession(ctx context.Context) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && (c.ttl <= 0 || c.now().Sub(c.session.createdAt) < c.ttl) {
		return c.session, nil
	}

	if c.session != nil {
		s, err := c.refreshSession(ctx, c.session.RefreshJwt)
		if err == nil {
			c.session = s
			return s, nil
		}
		log.FromCtx(ctx).Warn().Err(err).Msg("session refresh failed, logging in again")
	}

	s, err := c.createSession(ctx)
	if err != nil {
		return nil, err
	}
	c.session = s
	return s, nil
}

func (c *Client) dropSession() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

func (c *Client) createSession(ctx context.Context) (*session, error) {
	body := map[string]string{
		"identifier": c.handle,
		"password":   c.secret,
	}

	var s session
	if err := c.do(ctx, http.MethodPost, "com.atproto.server.createSession", nil, body, "", &s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.createdAt = c.now()

	log.FromCtx(ctx).Info().Str("handle", s.Handle).Str("did", s.DID).Msg("bluesky session created")
	return &s, nil
}

func (c *Client) refreshSession(ctx context.Context, refreshJwt string) (*session, error) {
	var s session
	if err := c.do(ctx, http.MethodPost, "com.atproto.server.refreshSession", nil, nil, refreshJwt, &s); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	s.createdAt = c.now()

	log.FromCtx(ctx).Debug().Str("did", s.DID).Msg("bluesky session refreshed")
	return &s, nil
}

func (c *Client) get(ctx context.Context, nsid string, params url.Values, out any) error {
	return c.authed(ctx, http.MethodGet, nsid, params, nil, out)
}

func (c *Client) post(ctx context.Context, nsid string, body any, out any) error {
	return c.authed(ctx, http.MethodPost, nsid, nil, body, out)
}

// authed runs an authenticated call, logging in again once if the token was rejected.
func (c *Client) authed(ctx context.Context, method, nsid string, params url.Values, body any, out any) error {
	for attempt := 0; ; attempt++ {
		s, err := c.ensureSession(ctx)
		if err != nil {
			return err
		}

		err = c.do(ctx, method, nsid, params, body, s.AccessJwt, out)
		var apiErr *APIError
		if attempt == 0 && errors.As(err, &apiErr) && apiErr.expiredToken() {
			c.dropSession()
			continue
		}
		return err
	}
}

func (c *Client) do(ctx context.Context, method, nsid string, params url.Values, body any, token string, out any) error {
	endpoint := c.host + "/xrpc/" + nsid
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", core.GreyUserAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %w", nsid, core.ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", nsid, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || (apiErr.Code == "" && apiErr.Message == "") {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return fmt.Errorf("%s: %w", nsid, apiErr)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode: %w", nsid, err)
	}
	return nil
}
