package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// FetchError reports a page that could not be retrieved. Status is zero when
// no HTTP response was received.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

var (
	errUnexpectedStatus = errors.New("unexpected status")
	errContentType      = errors.New("unsupported content type")
	errScheme           = errors.New("unsupported URL scheme")
	errRobots           = errors.New("disallowed by robots.txt")
)

// RobotsPolicy decides whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, u *url.URL) (bool, error)
}

// Client retrieves menu pages. It performs exactly one attempt per call;
// callers own any retry policy.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds each request. Zero means no client-side limit
	// beyond the caller's context.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int
	// Robots, when set, is consulted before every request.
	Robots RobotsPolicy

	initOnce sync.Once
	rc       *resty.Client
	limiter  chan struct{}
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		if c.HTTPClient != nil {
			// Copy so the redirect policy does not leak into the caller's client.
			base := *c.HTTPClient
			c.rc = resty.NewWithClient(&base)
		} else {
			c.rc = resty.New()
		}
		if c.PerRequestTimeout > 0 {
			c.rc.SetTimeout(c.PerRequestTimeout)
		}
		if c.UserAgent != "" {
			c.rc.SetHeader("User-Agent", c.UserAgent)
		}
		hops := c.RedirectMaxHops
		if hops <= 0 {
			hops = 5
		}
		c.rc.SetRedirectPolicy(
			resty.FlexibleRedirectPolicy(hops),
			resty.RedirectPolicyFunc(func(req *http.Request, _ []*http.Request) error {
				if !isHTTPScheme(req.URL) {
					return errors.New("redirect to unsupported scheme")
				}
				return nil
			}),
		)
		c.rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			log.Debug().
				Str("url", resp.Request.URL).
				Int("status", resp.StatusCode()).
				Dur("took", resp.Time()).
				Int("bytes", len(resp.Body())).
				Msg("fetched")
			return nil
		})
		if c.MaxConcurrent > 0 {
			c.limiter = make(chan struct{}, c.MaxConcurrent)
		}
	})
}

// Get issues a single GET and returns the body and its Content-Type. Any
// failure is returned as a *FetchError.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	c.init()
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: fmt.Errorf("parse url: %w", err)}
	}
	if !isHTTPScheme(u) {
		return nil, "", &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %q", errScheme, u.Scheme)}
	}

	if c.Robots != nil {
		allowed, err := c.Robots.Allowed(ctx, u)
		if err != nil {
			return nil, "", &FetchError{URL: rawURL, Err: fmt.Errorf("robots: %w", err)}
		}
		if !allowed {
			return nil, "", &FetchError{URL: rawURL, Err: errRobots}
		}
	}

	if err := c.acquire(ctx); err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}
	defer c.release()

	resp, err := c.rc.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}
	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return nil, "", &FetchError{URL: rawURL, Status: status, Err: errUnexpectedStatus}
	}
	contentType := resp.Header().Get("Content-Type")
	if !isAllowedHTMLContentType(contentType) {
		return nil, "", &FetchError{URL: rawURL, Status: status, Err: fmt.Errorf("%w: %s", errContentType, contentType)}
	}
	return resp.Body(), contentType, nil
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	select {
	case c.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.limiter == nil {
		return
	}
	<-c.limiter
}
