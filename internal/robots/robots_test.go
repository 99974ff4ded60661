package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func robotsServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestChecker_FetchesOncePerOrigin(t *testing.T) {
	srv, hits := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /admin\n")
	c := &Checker{HTTPClient: srv.Client(), UserAgent: "vubresto-test", TTL: time.Hour}
	ctx := context.Background()

	ok, err := c.Allowed(ctx, mustURL(t, srv.URL+"/resto/etterbeek"))
	if err != nil || !ok {
		t.Fatalf("resto page: ok=%v err=%v", ok, err)
	}
	ok, err = c.Allowed(ctx, mustURL(t, srv.URL+"/admin/menus"))
	if err != nil || ok {
		t.Fatalf("admin page: ok=%v err=%v", ok, err)
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Fatalf("expected 1 robots fetch, got %d", n)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := c.Allowed(ctx, mustURL(t, srv.URL+"/resto/jette")); err != nil {
		t.Fatalf("after expiry: %v", err)
	}
	if n := atomic.LoadInt32(hits); n != 2 {
		t.Fatalf("expected refetch after TTL, got %d fetches", n)
	}
}

func TestChecker_SendsUserAgentAndCapsBody(t *testing.T) {
	var gotUA atomic.Value
	padding := strings.Repeat("# "+strings.Repeat("x", 78)+"\n", (maxRobotsBytes/80)+100)
	body := "User-agent: *\nDisallow: /private\n" + padding + "Disallow: /resto\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := &Checker{HTTPClient: srv.Client(), UserAgent: "vubresto-test/1.0"}
	ok, err := c.Allowed(context.Background(), mustURL(t, srv.URL+"/private/x"))
	if err != nil || ok {
		t.Fatalf("private: ok=%v err=%v, want disallowed", ok, err)
	}
	if ua, _ := gotUA.Load().(string); ua != "vubresto-test/1.0" {
		t.Fatalf("user agent = %q", ua)
	}
	ok, err = c.Allowed(context.Background(), mustURL(t, srv.URL+"/resto/etterbeek"))
	if err != nil || !ok {
		t.Fatalf("rule past the size cap applied: ok=%v err=%v", ok, err)
	}
}

func TestChecker_MissingRobotsAllows(t *testing.T) {
	srv, _ := robotsServer(t, http.StatusNotFound, "")
	c := &Checker{HTTPClient: srv.Client()}
	ok, err := c.Allowed(context.Background(), mustURL(t, srv.URL+"/anything"))
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v, want allowed", ok, err)
	}
}

func TestChecker_ServerErrorDisallows(t *testing.T) {
	srv, hits := robotsServer(t, http.StatusServiceUnavailable, "")
	c := &Checker{HTTPClient: srv.Client(), TTL: time.Minute}
	for i := 0; i < 2; i++ {
		ok, err := c.Allowed(context.Background(), mustURL(t, srv.URL+"/resto"))
		if err != nil || ok {
			t.Fatalf("ok=%v err=%v, want disallowed", ok, err)
		}
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Fatalf("disallow should be remembered, got %d fetches", n)
	}
}

func TestChecker_CancelledIsNotRemembered(t *testing.T) {
	srv, hits := robotsServer(t, http.StatusOK, "")
	c := &Checker{HTTPClient: srv.Client()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Allowed(ctx, mustURL(t, srv.URL+"/resto")); err == nil {
		t.Fatalf("expected context error")
	}
	ok, err := c.Allowed(context.Background(), mustURL(t, srv.URL+"/resto"))
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v after cancelled attempt", ok, err)
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Fatalf("expected a single completed fetch, got %d", n)
	}
}

func TestRules_AgentPrecedence(t *testing.T) {
	rules := Parse(`User-agent: vubresto
Disallow: /resto

User-agent: *
Allow: /
`)
	if rules.Allowed("vubresto/1.0 (+https://example.org)", "/resto/jette") {
		t.Fatalf("named group should disallow /resto for vubresto")
	}
	if !rules.Allowed("otherbot", "/resto/jette") {
		t.Fatalf("wildcard group should allow otherbot")
	}
}

func TestRules_LongestMatchWins(t *testing.T) {
	rules := Parse(`User-agent: *
Disallow: /resto
Allow: /resto/etterbeek
`)
	if !rules.Allowed("bot", "/resto/etterbeek?week=40") {
		t.Fatalf("longer allow should win")
	}
	if rules.Allowed("bot", "/resto/jette") {
		t.Fatalf("shorter disallow should apply")
	}
}

func TestRules_WildcardsAnchorsAndComments(t *testing.T) {
	rules := Parse(`# comment
User-agent: *   # all bots
Disallow: /*.pdf$
Disallow: /*?print=
Disallow:
`)
	cases := []struct {
		path string
		want bool
	}{
		{"/menu/week.pdf", false},
		{"/menu/week.pdf?x=1", true},
		{"/resto/jette?print=1", false},
		{"/resto/jette", true},
	}
	for _, tc := range cases {
		if got := rules.Allowed("bot", tc.path); got != tc.want {
			t.Fatalf("Allowed(%q)=%v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestRules_EmptyAllowsEverything(t *testing.T) {
	if !AllowAll.Allowed("bot", "/") || !Parse("").Allowed("bot", "/x") {
		t.Fatalf("empty rules must allow")
	}
	if DisallowAll.Allowed("bot", "/x") {
		t.Fatalf("DisallowAll must disallow")
	}
}
