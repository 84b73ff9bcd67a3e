package resolve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"bilisub/internal/logging"
	"bilisub/internal/services"
)

const (
	// DefaultMaxRedirects bounds how many hops a short link may take.
	DefaultMaxRedirects = 5

	stageResolve = "resolve"
)

var canonicalPattern = regexp.MustCompile(`^BV[0-9A-Za-z]+$`)

// ShortLinkHosts lists the platform's link shorteners; they always need a
// network round trip.
var ShortLinkHosts = []string{"b23.tv", "acg.tv", "bili2233.cn", "bili2233.com"}

// Config describes the resolver.
type Config struct {
	// HTTPClient supplies the transport and timeout; its redirect policy is replaced.
	HTTPClient   *http.Client
	UserAgent    string
	MaxRedirects int
	Logger       *slog.Logger
}

// Resolver turns user-supplied references into canonical video codes.
type Resolver struct {
	client       *http.Client
	userAgent    string
	maxRedirects int
	logger       *slog.Logger
}

// New constructs a Resolver. A negative MaxRedirects falls back to the default;
// zero means redirects are never followed.
func New(cfg Config) *Resolver {
	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	client := &http.Client{
		Transport: base.Transport,
		Timeout:   base.Timeout,
		Jar:       base.Jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	maxRedirects := cfg.MaxRedirects
	if maxRedirects < 0 {
		maxRedirects = DefaultMaxRedirects
	}
	return &Resolver{
		client:       client,
		userAgent:    strings.TrimSpace(cfg.UserAgent),
		maxRedirects: maxRedirects,
		logger:       logging.NewComponentLogger(cfg.Logger, "resolver"),
	}
}

// IsCanonical reports whether value is already a canonical video code.
func IsCanonical(value string) bool {
	return canonicalPattern.MatchString(value)
}

// Resolve returns the canonical code for reference. Canonical codes and URLs
// that already carry the code are answered without network access; anything
// else is fetched hop by hop until a code appears in the final URL.
func (r *Resolver) Resolve(ctx context.Context, reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", services.Wrap(services.ErrResolution, stageResolve, "parse", "empty reference", nil)
	}
	if IsCanonical(reference) {
		return reference, nil
	}

	target, err := normalizeURL(reference)
	if err != nil {
		return "", err
	}
	if code, ok := ExtractCode(target); ok {
		return code, nil
	}

	logger := logging.WithContext(ctx, r.logger)
	final, hops, err := r.follow(ctx, target)
	if err != nil {
		return "", err
	}
	code, ok := ExtractCode(final)
	if !ok {
		return "", services.Wrap(services.ErrResolution, stageResolve, "extract",
			fmt.Sprintf("no video code in %s", final.Redacted()), nil)
	}
	logger.Info("reference resolved",
		logging.String("reference", reference),
		logging.String(logging.FieldVideo, code),
		logging.Int("hops", hops),
		logging.Bool("short_link", IsShortLink(target)),
		logging.String(logging.FieldEventType, "reference_resolved"),
	)
	return code, nil
}

// follow issues one GET per hop and returns the last URL reached. It stops
// at the first redirect whose target already carries a video code.
func (r *Resolver) follow(ctx context.Context, start *url.URL) (*url.URL, int, error) {
	current := start
	for hops := 0; ; hops++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current.String(), nil)
		if err != nil {
			return nil, hops, services.Wrap(services.ErrResolution, stageResolve, "follow", "build request", err)
		}
		if r.userAgent != "" {
			req.Header.Set("User-Agent", r.userAgent)
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, hops, services.Wrap(services.ErrUpstream, stageResolve, "follow",
				"request "+current.Redacted(), err)
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		if !isRedirect(resp.StatusCode) {
			return current, hops, nil
		}
		location := resp.Header.Get("Location")
		if location == "" {
			return current, hops, nil
		}
		next, err := current.Parse(location)
		if err != nil {
			return nil, hops, services.Wrap(services.ErrResolution, stageResolve, "follow",
				fmt.Sprintf("invalid redirect location %q", location), err)
		}
		if hops+1 > r.maxRedirects {
			return nil, hops, services.Wrap(services.ErrResolution, stageResolve, "follow",
				fmt.Sprintf("more than %d redirects", r.maxRedirects), nil)
		}
		r.logger.Debug("redirect", logging.String("from", current.Redacted()), logging.String("to", next.Redacted()))
		if _, ok := ExtractCode(next); ok {
			return next, hops + 1, nil
		}
		current = next
	}
}

// ExtractCode finds a canonical code in a path segment or the bvid query parameter.
func ExtractCode(u *url.URL) (string, bool) {
	if u == nil {
		return "", false
	}
	for _, segment := range strings.Split(u.Path, "/") {
		if IsCanonical(segment) {
			return segment, true
		}
	}
	if bvid := u.Query().Get("bvid"); IsCanonical(bvid) {
		return bvid, true
	}
	return "", false
}

// IsShortLink reports whether u points at one of the platform's link shorteners.
func IsShortLink(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, short := range ShortLinkHosts {
		if host == short || strings.HasSuffix(host, "."+short) {
			return true
		}
	}
	return false
}

func normalizeURL(reference string) (*url.URL, error) {
	candidate := reference
	if !strings.Contains(candidate, "://") {
		if !looksLikeHost(candidate) {
			return nil, services.Wrap(services.ErrResolution, stageResolve, "parse",
				fmt.Sprintf("%q is not a video code or link", reference), nil)
		}
		candidate = "https://" + strings.TrimPrefix(candidate, "//")
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return nil, services.Wrap(services.ErrResolution, stageResolve, "parse",
			fmt.Sprintf("%q is not a valid link", reference), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, services.Wrap(services.ErrResolution, stageResolve, "parse",
			fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return nil, services.Wrap(services.ErrResolution, stageResolve, "parse",
			fmt.Sprintf("%q has no host", reference), nil)
	}
	return parsed, nil
}

// looksLikeHost accepts "host.tld" or "host.tld/path" without a scheme.
func looksLikeHost(value string) bool {
	value = strings.TrimPrefix(value, "//")
	if value == "" || strings.ContainsAny(value, " \t\n") {
		return false
	}
	host, _, _ := strings.Cut(value, "/")
	host, _, _ = strings.Cut(host, "?")
	name, _, _ := strings.Cut(host, ":")
	if !strings.Contains(name, ".") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	for _, r := range name {
		if !(r == '.' || r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}
