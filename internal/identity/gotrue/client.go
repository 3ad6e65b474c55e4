// Package gotrue talks to a GoTrue (Supabase Auth) server and exposes it as an
// identity platform: sessions are persisted in the local key/value store and
// every change is announced on a hub.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"nightout/internal/auth/models"
	"nightout/internal/identity/hub"
	"nightout/internal/identity/wire"
	"nightout/internal/platform/privacy"
	"nightout/internal/platform/tracer"
	"nightout/internal/sentinel"
	"nightout/internal/storage/kv"
	"nightout/pkg/platform/circuit"
)

// DefaultStorageKey is where the browser SDK keeps the session.
const DefaultStorageKey = "auth-token"

const (
	defaultTimeout = 10 * time.Second
	refreshMargin  = 10 * time.Second
	clientInfo     = "nightout-go"
)

// Config points the client at a GoTrue server.
type Config struct {
	URL        string
	APIKey     string
	JWTSecret  string
	Timeout    time.Duration
	StorageKey string
}

// Client is safe for concurrent use. Token-changing calls are serialized.
type Client struct {
	baseURL    string
	apiKey     string
	storageKey string
	claims     *claimsParser

	http    *http.Client
	store   kv.Store
	hub     *hub.Hub
	logger  *slog.Logger
	tracer  tracer.Tracer
	breaker *circuit.Breaker
	now     func() time.Time

	mu sync.Mutex
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithHTTPClient replaces the default client built from Config.Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithBreaker replaces the default breaker that tracks server availability.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithHub shares an existing hub, e.g. one also fed by an event relay.
func WithHub(h *hub.Hub) Option {
	return func(c *Client) {
		c.hub = h
	}
}

// New validates cfg and builds a Client persisting its session in store.
func New(cfg Config, store kv.Store, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("gotrue url not configured")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid gotrue url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	storageKey := cfg.StorageKey
	if storageKey == "" {
		storageKey = DefaultStorageKey
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		storageKey: storageKey,
		claims:     newClaimsParser(cfg.JWTSecret),
		http:       &http.Client{Timeout: timeout},
		store:      store,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hub == nil {
		c.hub = hub.New()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = tracer.NewNoop()
	}
	if c.breaker == nil {
		c.breaker = circuit.New("gotrue")
	}
	return c, nil
}

// Health reports ErrUnavailable while repeated calls to the server are failing.
func (c *Client) Health(context.Context) error {
	if c.breaker.IsOpen() {
		return fmt.Errorf("gotrue circuit open: %w", sentinel.ErrUnavailable)
	}
	return nil
}

// Hub exposes the notification hub so relays can publish into it.
func (c *Client) Hub() *hub.Hub {
	return c.hub
}

func (c *Client) Subscribe(fn func(models.Notification)) (func(), error) {
	return c.hub.Subscribe(fn)
}

// SignInWithPassword exchanges credentials for a session and emits SIGNED_IN.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (session *models.Session, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanPlatformSignIn)
	defer func() { span.End(err) }()

	c.mu.Lock()
	session, err = c.grant(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "password sign-in rejected",
			"email", privacy.MaskEmail(email),
			"error", err,
		)
		return nil, err
	}
	c.hub.Publish(models.Notification{Event: models.EventSignedIn, Session: session})
	c.mu.Unlock()
	return session, nil
}

// RefreshSession trades refreshToken for a new session and emits TOKEN_REFRESHED.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx, refreshToken)
}

func (c *Client) refreshLocked(ctx context.Context, refreshToken string) (session *models.Session, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanPlatformRefresh)
	defer func() { span.End(err) }()

	session, err = c.grant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	c.hub.Publish(models.Notification{Event: models.EventTokenRefreshed, Session: session})
	return session, nil
}

// GetCurrentSession returns the stored session, refreshing it when the access
// token is about to expire. A stored token that fails verification or a refresh
// token the server rejects is discarded and reported as signed out.
func (c *Client) GetCurrentSession(ctx context.Context) (session *models.Session, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanPlatformSession)
	defer func() { span.End(err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.loadSession(ctx)
	if err != nil || stored == nil {
		return nil, err
	}

	claims, err := c.claims.parse(stored.AccessToken)
	if err != nil {
		c.logger.WarnContext(ctx, "discarding stored session", "error", err)
		return nil, c.forget(ctx)
	}
	expiresAt := stored.ExpiresAt
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if expiresAt.IsZero() || c.now().Add(refreshMargin).Before(expiresAt) {
		return stored, nil
	}
	if stored.RefreshToken == "" {
		return nil, c.forget(ctx)
	}

	refreshed, err := c.refreshLocked(ctx, stored.RefreshToken)
	if errors.Is(err, sentinel.ErrUnauthorized) {
		c.logger.InfoContext(ctx, "refresh token rejected, signing out locally", "user_id", claims.Subject)
		return nil, c.forget(ctx)
	}
	if err != nil {
		return nil, err
	}
	return refreshed, nil
}

// SignOut revokes the session server-side, forgets it locally and emits SIGNED_OUT.
// A token the server no longer recognises counts as signed out.
func (c *Client) SignOut(ctx context.Context) (err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanPlatformSignOut)
	defer func() { span.End(err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.loadSession(ctx)
	if err != nil {
		return err
	}
	if stored != nil {
		err := c.do(ctx, http.MethodPost, "/logout", stored.AccessToken, nil, nil)
		if err != nil && !errors.Is(err, sentinel.ErrUnauthorized) && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
	}
	if err := c.forget(ctx); err != nil {
		return err
	}
	c.hub.Publish(models.Notification{Event: models.EventSignedOut})
	return nil
}

func (c *Client) grant(ctx context.Context, grantType string, body map[string]string) (*models.Session, error) {
	var resp wire.Session
	path := "/token?grant_type=" + url.QueryEscape(grantType)
	if err := c.do(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("token response without session: %w", sentinel.ErrUnavailable)
	}
	session := wire.ToSession(&resp, c.now())
	if err := c.saveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// apiError covers both error shapes GoTrue returns.
type apiError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
}

func (e apiError) String() string {
	for _, s := range []string{e.Description, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) (err error) {
	defer func() { c.observe(ctx, err) }()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Info", clientInfo)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(sentinel.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		return statusError(method, path, resp.StatusCode, apiErr.String())
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

// observe feeds the outcome of a call into the breaker. Calls abandoned by
// the caller say nothing about the server and are ignored.
func (c *Client) observe(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	var change circuit.StateChange
	if errors.Is(err, sentinel.ErrUnavailable) {
		change = c.breaker.RecordFailure()
	} else {
		change = c.breaker.RecordSuccess()
	}
	switch {
	case change.Opened:
		c.logger.Warn("identity platform unavailable, circuit opened", "breaker", c.breaker.Name(), "error", err)
	case change.Closed:
		c.logger.Info("identity platform recovered, circuit closed", "breaker", c.breaker.Name())
	}
}

func statusError(method, path string, status int, msg string) error {
	var kind error
	switch {
	case status == http.StatusNotFound:
		kind = sentinel.ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusUnauthorized,
		status == http.StatusForbidden, status == http.StatusUnprocessableEntity:
		kind = sentinel.ErrUnauthorized
	case status == http.StatusTooManyRequests, status >= 500:
		kind = sentinel.ErrUnavailable
	default:
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, status, msg)
	}
	return fmt.Errorf("%s %s: status %d: %s: %w", method, path, status, msg, kind)
}
