package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bilisub/internal/logging"
	"bilisub/internal/services"
)

const (
	defaultTimeout     = 15 * time.Second
	maxBodyBytes       = 8 << 20
	errorExcerptBytes  = 4096
	stageFetch         = "fetch"
	operationGetJSON   = "get json"
	operationDoRequest = "request"
)

// Getter performs the GET requests every upstream stage needs.
type Getter interface {
	GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error
	GetBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// Config describes the upstream HTTP client.
type Config struct {
	UserAgent  string
	Referer    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client sends identified GET requests and classifies failures as upstream errors.
type Client struct {
	userAgent string
	referer   string
	http      *http.Client
	logger    *slog.Logger
}

// New creates a Client from the supplied configuration.
func New(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		userAgent: strings.TrimSpace(cfg.UserAgent),
		referer:   strings.TrimSpace(cfg.Referer),
		http:      client,
		logger:    logging.NewComponentLogger(cfg.Logger, "fetch"),
	}
}

// GetJSON fetches rawURL with params appended and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	target, err := withQuery(rawURL, params)
	if err != nil {
		return services.Wrap(services.ErrUpstream, stageFetch, operationGetJSON, "invalid url", err)
	}
	body, err := c.get(ctx, target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrUpstream, stageFetch, operationGetJSON, "decode response from "+redact(target), err)
	}
	return nil
}

// GetBytes fetches rawURL and returns the raw response body.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL)
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, stageFetch, operationDoRequest, "build request", err)
	}
	c.ApplyHeaders(req)

	c.logger.Debug("upstream request", logging.String("url", redact(target)))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, stageFetch, operationDoRequest, "request "+redact(target), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, errorExcerptBytes))
		message := fmt.Sprintf("%s returned %s", redact(target), resp.Status)
		if trimmed := strings.TrimSpace(string(excerpt)); trimmed != "" {
			message += ": " + trimmed
		}
		return nil, services.Wrap(services.ErrUpstream, stageFetch, operationDoRequest, message, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, stageFetch, operationDoRequest, "read body", err)
	}
	if len(body) > maxBodyBytes {
		return nil, services.Wrap(services.ErrUpstream, stageFetch, operationDoRequest, "response body too large", nil)
	}
	return body, nil
}

// ApplyHeaders stamps the identifying headers on req.
func (c *Client) ApplyHeaders(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
}

func withQuery(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// redact strips query strings, which may carry signed tokens, from logged URLs.
func redact(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

var _ Getter = (*Client)(nil)
