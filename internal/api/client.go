// Package api is the single choke point for talking to the phone-shop
// backend. It owns the session token, bounds every call with a deadline,
// normalizes the backend's assorted error shapes into one taxonomy and
// retries transient failures with a linear backoff.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

type Config struct {
	// BaseURL of the backend API, e.g. http://localhost:8080/api.
	BaseURL string
	// UploadURL is the local multipart upload endpoint; it bypasses the
	// generic JSON pipeline entirely.
	UploadURL string
	// Store persists the session token. Defaults to an in-memory store.
	Store TokenStore
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	// Timeout bounds a single attempt. Default 10s.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt. Default 3.
	MaxRetries int
	// RetryDelay is the base backoff unit; retry n sleeps n * RetryDelay.
	RetryDelay time.Duration
}

type Client struct {
	baseURL    string
	uploadURL  string
	hc         *http.Client
	store      TokenStore
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration

	// token is read-mostly session state, overwritten wholesale on
	// login/logout/401. Loaded lazily from the store on first read.
	mu     sync.RWMutex
	token  string
	loaded bool
}

func New(cfg Config) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		uploadURL:  cfg.UploadURL,
		hc:         cfg.HTTPClient,
		store:      cfg.Store,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
	if c.hc == nil {
		c.hc = &http.Client{}
	}
	if c.store == nil {
		c.store = &MemTokenStore{}
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	} else if c.maxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}
	return c
}

// ---------- session token ----------

// Token returns the current session token, loading it from the store on
// first use.
func (c *Client) Token() string {
	c.mu.RLock()
	if c.loaded {
		tok := c.token
		c.mu.RUnlock()
		return tok
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		if tok, err := c.store.Load(); err == nil {
			c.token = tok
		}
		c.loaded = true
	}
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.loaded = true
	c.mu.Unlock()
	_ = c.store.Save(token)
}

func (c *Client) ClearToken() {
	c.mu.Lock()
	c.token = ""
	c.loaded = true
	c.mu.Unlock()
	_ = c.store.Clear()
}

// Authenticated reports whether a session token is present.
func (c *Client) Authenticated() bool { return c.Token() != "" }

// ---------- generic request pipeline ----------

// request runs one backend call through the full pipeline: marshal, attempt
// with deadline, classify, retry transient failures, unwrap the {data: ...}
// envelope and decode into out (which may be nil for fire-and-forget calls).
func (c *Client) request(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = b
	}

	var raw json.RawMessage
	var err error
	for attempt := 0; ; attempt++ {
		raw, err = c.do(ctx, method, path, payload, headers)
		if err == nil {
			break
		}
		var ae *Error
		if !errors.As(err, &ae) || !ae.Retryable {
			return err
		}
		if attempt >= c.maxRetries {
			return err
		}
		// Linear backoff: 1x, 2x, 3x the base delay.
		timer := time.NewTimer(c.retryDelay * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}

	if out == nil {
		return nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return protocolErr()
	}
	return nil
}

// do performs a single attempt and classifies its outcome.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, headers map[string]string) (json.RawMessage, error) {
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(rctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, networkErr(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		// Caller cancellation is not part of the taxonomy; hand it back raw.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, timeoutErr()
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return nil, connectivityErr(c.baseURL)
		}
		return nil, networkErr(err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, timeoutErr()
		}
		return nil, networkErr(err.Error())
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Session reset happens here regardless of what the caller does
		// with the error.
		c.ClearToken()
		return nil, authErr()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := extractMessage(resp.StatusCode, data, http.StatusText(resp.StatusCode))
		return nil, httpErr(resp.StatusCode, msg, c.baseURL)
	}

	return unwrap(data)
}

// unwrap validates the body as JSON and strips the optional {data: ...}
// success envelope. The envelope must stay invisible to callers.
func unwrap(data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, protocolErr()
	}
	if trimmed[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, protocolErr()
		}
		if inner, ok := env["data"]; ok {
			return inner, nil
		}
	}
	return trimmed, nil
}

// ---------- auth ----------

// Login authenticates and persists the returned token before handing the
// result back.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var out AuthResponse
	creds := map[string]string{"username": username, "password": password}
	if err := c.request(ctx, http.MethodPost, "/auth/login", creds, nil, &out); err != nil {
		return nil, err
	}
	if out.Token != "" {
		c.SetToken(out.Token)
	}
	return &out, nil
}

// Logout drops the session. No network call is involved.
func (c *Client) Logout() {
	c.ClearToken()
}

// ---------- phones ----------

func (c *Client) GetPhones(ctx context.Context) ([]Phone, error) {
	var out []Phone
	err := c.request(ctx, http.MethodGet, "/phones", nil, nil, &out)
	return out, err
}

func (c *Client) GetPhone(ctx context.Context, id int64) (*Phone, error) {
	var out Phone
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/phones/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetFeaturedPhones(ctx context.Context) ([]Phone, error) {
	var out []Phone
	err := c.request(ctx, http.MethodGet, "/phones/featured", nil, nil, &out)
	return out, err
}

func (c *Client) SearchPhones(ctx context.Context, keyword string) ([]Phone, error) {
	var out []Phone
	err := c.request(ctx, http.MethodGet, "/phones/search?keyword="+url.QueryEscape(keyword), nil, nil, &out)
	return out, err
}

// CreatePhone validates the backend-required fields before anything goes on
// the wire, then fills in the flag defaults.
func (c *Client) CreatePhone(ctx context.Context, p Phone) (*Phone, error) {
	if len(p.Images) == 0 {
		return nil, validationErr("At least one image is required")
	}
	if p.Condition == "" {
		return nil, validationErr("Condition is required")
	}
	if p.IsFeatured == nil {
		p.IsFeatured = Bool(false)
	}
	if p.IsAvailable == nil {
		p.IsAvailable = Bool(true)
	}
	var out Phone
	if err := c.request(ctx, http.MethodPost, "/phones", p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePhone(ctx context.Context, id int64, p Phone) (*Phone, error) {
	var out Phone
	if err := c.request(ctx, http.MethodPut, fmt.Sprintf("/phones/%d", id), p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePhone(ctx context.Context, id int64) error {
	return c.request(ctx, http.MethodDelete, fmt.Sprintf("/phones/%d", id), nil, nil, nil)
}

// ---------- inquiries ----------

func (c *Client) GetInquiries(ctx context.Context) ([]Inquiry, error) {
	var out []Inquiry
	err := c.request(ctx, http.MethodGet, "/inquiries", nil, nil, &out)
	return out, err
}

func (c *Client) CreateInquiry(ctx context.Context, in Inquiry) (*Inquiry, error) {
	var out Inquiry
	if err := c.request(ctx, http.MethodPost, "/inquiries", in, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateInquiryStatus sends status and optional admin notes as query
// parameters; that is how the backend's endpoint is shaped.
func (c *Client) UpdateInquiryStatus(ctx context.Context, id int64, status, adminNotes string) (*Inquiry, error) {
	params := url.Values{"status": {status}}
	if adminNotes != "" {
		params.Set("adminNotes", adminNotes)
	}
	var out Inquiry
	path := fmt.Sprintf("/inquiries/%d/status?%s", id, params.Encode())
	if err := c.request(ctx, http.MethodPut, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteInquiry(ctx context.Context, id int64) error {
	return c.request(ctx, http.MethodDelete, fmt.Sprintf("/inquiries/%d", id), nil, nil, nil)
}

// ---------- analytics & audit logs ----------

// TrackEvent records a view or contact click. Fire and forget: the response
// body is discarded.
func (c *Client) TrackEvent(ctx context.Context, phoneID int64, eventType string) error {
	path := fmt.Sprintf("/analytics/track?phoneId=%d&eventType=%s", phoneID, url.QueryEscape(eventType))
	return c.request(ctx, http.MethodPost, path, nil, nil, nil)
}

func (c *Client) GetDashboardAnalytics(ctx context.Context) (*Analytics, error) {
	var out Analytics
	if err := c.request(ctx, http.MethodGet, "/analytics/dashboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTopProducts(ctx context.Context) ([]TopProduct, error) {
	var out []TopProduct
	err := c.request(ctx, http.MethodGet, "/analytics/top-products", nil, nil, &out)
	return out, err
}

// GetRecentLogs returns audit entries from the trailing time window.
func (c *Client) GetRecentLogs(ctx context.Context, hours int) ([]AuditLog, error) {
	if hours <= 0 {
		hours = 24
	}
	var out []AuditLog
	err := c.request(ctx, http.MethodGet, fmt.Sprintf("/audit-logs/recent?hours=%d", hours), nil, nil, &out)
	return out, err
}

func (c *Client) GetEntityLogs(ctx context.Context, entityType string, id int64) ([]AuditLog, error) {
	var out []AuditLog
	path := fmt.Sprintf("/audit-logs/entity/%s/%d", url.PathEscape(entityType), id)
	err := c.request(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}
