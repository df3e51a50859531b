// Package lgl is a client for the Little Green Light CRM API. It matches or
// creates constituents for store customers and records order payments as
// gifts.
//
// CRM failures are never returned as Go errors. Every call yields a result
// value carrying the raw response body (or an error description) so that the
// caller can persist it for audit.
package lgl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ignite/lgl-sync/internal/pkg/httpretry"
	"github.com/ignite/lgl-sync/internal/pkg/logger"
)

// maxBodyBytes caps how much of a response body is kept.
const maxBodyBytes = 1 << 20

// Config configures a Client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	GiftTypeID int
	CampaignID int
	// Transport overrides the base round tripper, mainly for tests.
	Transport http.RoundTripper
	// RetryOptions are passed to the retrying client.
	RetryOptions []httpretry.Option
}

// Client talks to the LGL REST API.
type Client struct {
	baseURL    string
	http       httpretry.HTTPDoer
	giftTypeID int
	campaignID int
	log        *logger.Logger
}

// NewClient creates a client authenticating with a static bearer token.
func NewClient(cfg Config) *Client {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	authed := &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"}),
			Base:   base,
		},
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       httpretry.NewRetryClient(authed, cfg.MaxRetries, cfg.RetryOptions...),
		giftTypeID: cfg.GiftTypeID,
		campaignID: cfg.CampaignID,
		log:        logger.With("component", "lgl_client"),
	}
}

// apiError is a failed call: a transport error or a non-2xx status.
type apiError struct {
	status int
	body   []byte
	err    error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("lgl api returned status %d", e.status)
}

// raw returns the payload to keep for audit: the response body when there is
// one, otherwise a small JSON object describing the failure.
func (e *apiError) raw() []byte {
	if len(e.body) > 0 {
		return e.body
	}
	return errorJSON(e.Error())
}

func errorJSON(msg string) []byte {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return b
}

// call performs one API request and returns the response body.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, &apiError{err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &apiError{err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key, ok := ctx.Value(idempotencyKey{}).(string); ok {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apiError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &apiError{status: resp.StatusCode, err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("lgl api error", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &apiError{status: resp.StatusCode, body: respBody}
	}
	return respBody, nil
}

type idempotencyKey struct{}

func withIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}
