// Package a11yclient is a client for the accessibility scanning service.
package a11yclient

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
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ggoodman/a11y-warehouse/jsonmap"
)

// DefaultTimeout bounds one round trip to the scanning service.
const DefaultTimeout = 10 * time.Minute

// maxResponseBytes caps how much of a service response is read.
const maxResponseBytes = 64 << 20

var (
	// ErrRequest indicates the request could not be sent or timed out.
	ErrRequest = errors.New("a11yclient: error sending request")
	// ErrResponse indicates the service response could not be parsed.
	ErrResponse = errors.New("a11yclient: error parsing response")
)

// ScanRequest asks for a single page scan. It is encoded in the scanning
// service's wire format.
type ScanRequest struct {
	URL          string `json:"url"`
	PageInsights bool   `json:"pageInsights"`
}

// CrawlRequest asks for a site crawl.
type CrawlRequest struct {
	URL          string `json:"url"`
	Subdomains   bool   `json:"subdomains"`
	TLD          bool   `json:"tld"`
	PageInsights bool   `json:"pageInsights"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout takes precedence over
// WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout bounds each round trip to the scanning service.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger. If not provided, slog.Default is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client talks to the scanning service.
type Client struct {
	base    *url.URL
	token   string
	hc      *http.Client
	timeout time.Duration
	log     *slog.Logger
}

// New returns a client for the service rooted at baseURL. token is sent
// verbatim in the Authorization header.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("a11yclient: invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("a11yclient: base URL must use HTTP or HTTPS scheme, got %q", u.Scheme)
	}

	c := &Client{base: u, token: token, timeout: DefaultTimeout, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.hc == nil {
		c.hc = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// Scan requests a single page scan and returns the raw response document.
func (c *Client) Scan(ctx context.Context, req ScanRequest) (any, error) {
	return c.post(ctx, "scan", req)
}

// Crawl requests a crawl and returns the raw response document.
func (c *Client) Crawl(ctx context.Context, req CrawlRequest) (any, error) {
	return c.post(ctx, "crawl", req)
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode body: %v", ErrRequest, err)
	}

	target := c.base.JoinPath(endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "a11y.request.fail", slog.String("endpoint", endpoint), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrResponse, err)
	}
	doc, err := jsonmap.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: status %d: %v", ErrResponse, resp.StatusCode, err)
	}

	c.log.DebugContext(ctx, "a11y.request.ok",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("dur", time.Since(start)),
	)
	return doc, nil
}

// TokenExpiry reports the exp claim of the service token when it is a JWT.
// The signature is not verified; the service is the authority on validity.
func (c *Client) TokenExpiry() (time.Time, bool) {
	tok := strings.TrimSpace(c.token)
	if len(tok) > 7 && strings.EqualFold(tok[:7], "bearer ") {
		tok = strings.TrimSpace(tok[7:])
	}
	if tok == "" {
		return time.Time{}, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(tok, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
