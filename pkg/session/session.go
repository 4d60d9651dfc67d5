// Package session provides the authenticated GitHub web session used for
// all scrape requests.
//
// A Session holds the identity (username plus the cookie set parsed from a
// raw browser cookie string) and exposes two primitives: FetchPage for
// cookie-scoped GET requests and SubmitForm for form-encoded POSTs. No login
// flow is implemented; a valid session cookie is supplied externally, and
// credential resolution (flags, environment, config file) happens in the
// caller, not here.
//
// Responses are returned as body text regardless of HTTP status: GitHub
// serves error pages as HTML, and status inspection is the caller's
// responsibility. Only transport-level failures surface as errors.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/starscrape/starscrape/pkg/errors"
)

// DefaultHost is the GitHub web host scraped by default.
const DefaultHost = "https://github.com"

// browserHeaders mimic a desktop browser; the starred-repositories listing
// renders differently for non-browser user agents.
var browserHeaders = map[string]string{
	"User-Agent":       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.6668.71 Safari/537.36",
	"Accept":           "text/html, application/json",
	"Accept-Language":  "en-US,en;q=0.9",
	"X-Requested-With": "XMLHttpRequest",
	"Origin":           "https://github.com",
}

// Options configures a Session.
type Options struct {
	// Username is the GitHub account whose stars are scraped. Required.
	Username string
	// Cookie is the raw browser cookie string ("name=value; name2=value2").
	// Required.
	Cookie string
	// BaseURL overrides the GitHub host, used by tests. Defaults to
	// DefaultHost.
	BaseURL string
	// Debug enables per-request tracing on the logger.
	Debug bool
	// Logger receives debug traces. Defaults to log.Default().
	Logger *log.Logger
}

// Session is an authenticated GitHub web context. It is immutable after
// construction and is held for the duration of all fetches in a run.
type Session struct {
	username string
	cookies  map[string]string
	http     *resty.Client
	logger   *log.Logger
	runID    string
	debug    bool
}

// New constructs a Session from the given options. It fails with an
// INVALID_CONFIG error when username or cookie is missing.
func New(opts Options) (*Session, error) {
	if opts.Username == "" || opts.Cookie == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "github username and cookie are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	cookies, skipped := parseCookie(opts.Cookie)
	if opts.Debug {
		for _, seg := range skipped {
			logger.Debug("skipping malformed cookie segment", "segment", seg)
		}
	}
	if len(cookies) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "cookie string contains no name=value pairs")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultHost
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeaders(browserHeaders)
	client.SetTimeout(30 * time.Second)
	for name, value := range cookies {
		client.SetCookie(&http.Cookie{Name: name, Value: value})
	}

	s := &Session{
		username: opts.Username,
		cookies:  cookies,
		http:     client,
		logger:   logger,
		runID:    uuid.NewString()[:8],
		debug:    opts.Debug,
	}

	if opts.Debug {
		client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
			logger.Debug("request",
				"run", s.runID,
				"method", res.Request.Method,
				"path", res.Request.URL,
				"status", res.StatusCode(),
				"duration", res.Time().Round(time.Millisecond),
			)
			return nil
		})
	}

	return s, nil
}

// Username returns the account name this session scrapes.
func (s *Session) Username() string { return s.username }

// RunID returns the short identifier stamped on this session's debug traces.
func (s *Session) RunID() string { return s.runID }

// FetchPage issues a cookie-scoped GET for the given host-relative path and
// returns the response body as text regardless of HTTP status. An error is
// returned only for transport failures.
func (s *Session) FetchPage(ctx context.Context, path string) (string, error) {
	res, err := s.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", path)
	}
	return res.String(), nil
}

// SubmitForm issues a cookie-scoped form-encoded POST and returns the
// response body as text regardless of HTTP status. GitHub answers these
// endpoints with either HTML or JSON; the caller decides how to read it.
func (s *Session) SubmitForm(ctx context.Context, path string, form map[string]string) (string, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(form).
		Post(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "submit %s", path)
	}
	return res.String(), nil
}

// ParseCookie parses a raw browser cookie string into a name-to-value map.
// Segments are separated by ";" and split on the first "=", so values may
// themselves contain "=". Segments without "=" are skipped.
func ParseCookie(raw string) map[string]string {
	cookies, _ := parseCookie(raw)
	return cookies
}

func parseCookie(raw string) (map[string]string, []string) {
	cookies := make(map[string]string)
	var skipped []string
	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		name, value, found := strings.Cut(segment, "=")
		if !found {
			skipped = append(skipped, segment)
			continue
		}
		cookies[name] = value
	}
	return cookies, skipped
}
