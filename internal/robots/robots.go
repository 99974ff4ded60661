// Package robots decides whether a page may be fetched under the site's
// robots.txt (RFC 9309 subset: user-agent groups, allow/disallow, '*' and '$').
package robots

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// maxRobotsBytes caps how much of a robots.txt is read.
const maxRobotsBytes = 512 << 10

// Rules is a parsed robots.txt.
type Rules struct {
	Groups []Group
}

// Group is one user-agent section.
type Group struct {
	Agents   []string
	Allow    []Pattern
	Disallow []Pattern
}

// Pattern is a path rule with its compiled matcher.
type Pattern struct {
	Raw string
	re  *regexp.Regexp
}

func newPattern(raw string) Pattern {
	anchored := strings.HasSuffix(raw, "$")
	body := strings.TrimSuffix(raw, "$")
	var b strings.Builder
	b.WriteString("^")
	for i, part := range strings.Split(body, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	if anchored {
		b.WriteString("$")
	}
	return Pattern{Raw: raw, re: regexp.MustCompile(b.String())}
}

// specificity ranks matching rules: longer literal paths win.
func (p Pattern) specificity() int {
	return len(strings.ReplaceAll(strings.TrimSuffix(p.Raw, "$"), "*", ""))
}

// AllowAll is the ruleset used when a site has no robots.txt.
var AllowAll = Rules{}

// DisallowAll is the ruleset used while a site's robots.txt is unreachable.
var DisallowAll = Rules{Groups: []Group{{Agents: []string{"*"}, Disallow: []Pattern{newPattern("/")}}}}

// Parse reads robots.txt text. Unknown directives are ignored.
func Parse(text string) Rules {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxRobotsBytes)
	var groups []Group
	var cur Group
	inRules := false
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent", "useragent":
			// A user-agent line after rules starts a new group.
			if inRules {
				groups = append(groups, cur)
				cur = Group{}
				inRules = false
			}
			cur.Agents = append(cur.Agents, strings.ToLower(val))
		case "allow":
			inRules = true
			if val != "" {
				cur.Allow = append(cur.Allow, newPattern(val))
			}
		case "disallow":
			inRules = true
			if val != "" {
				cur.Disallow = append(cur.Disallow, newPattern(val))
			}
		}
	}
	if len(cur.Agents) > 0 {
		groups = append(groups, cur)
	}
	return Rules{Groups: groups}
}

// group picks the section for userAgent: the longest agent token contained
// in it, else '*'.
func (r Rules) group(userAgent string) (Group, bool) {
	ua := strings.ToLower(userAgent)
	best, bestScore := -1, -1
	for i, g := range r.Groups {
		for _, a := range g.Agents {
			score := -1
			switch {
			case a == "*":
				score = 0
			case a != "" && strings.Contains(ua, a):
				score = len(a)
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
	}
	if best < 0 {
		return Group{}, false
	}
	return r.Groups[best], true
}

// Allowed reports whether path (with optional query) may be fetched. The most
// specific matching rule wins and Allow wins ties. No match means allowed.
func (r Rules) Allowed(userAgent, path string) bool {
	g, ok := r.group(userAgent)
	if !ok {
		return true
	}
	if path == "" {
		path = "/"
	}
	bestScore, allowed := -1, true
	for _, p := range g.Disallow {
		if s := p.specificity(); s > bestScore && p.re.MatchString(path) {
			bestScore, allowed = s, false
		}
	}
	for _, p := range g.Allow {
		if s := p.specificity(); s >= bestScore && p.re.MatchString(path) {
			bestScore, allowed = s, true
		}
	}
	return allowed
}

type entry struct {
	rules   Rules
	expires time.Time
}

// Checker fetches robots.txt once per origin and keeps it in memory for TTL.
type Checker struct {
	HTTPClient *http.Client
	UserAgent  string
	// TTL bounds how long a fetched robots.txt is trusted. Zero means 30m.
	TTL time.Duration

	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time

	initOnce sync.Once
	rc       *resty.Client
}

// Allowed reports whether target may be fetched with the checker's user
// agent. A missing robots.txt (4xx) allows everything; a server error or an
// unreachable host disallows everything until the entry expires.
func (c *Checker) Allowed(ctx context.Context, target *url.URL) (bool, error) {
	if target == nil || target.Host == "" {
		return false, fmt.Errorf("robots: target without host")
	}
	rules, err := c.rulesFor(ctx, target)
	if err != nil {
		return false, err
	}
	return rules.Allowed(c.UserAgent, target.RequestURI()), nil
}

func (c *Checker) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *Checker) rulesFor(ctx context.Context, target *url.URL) (Rules, error) {
	origin := strings.ToLower(target.Scheme) + "://" + strings.ToLower(target.Host)
	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[string]entry)
	}
	if e, ok := c.entries[origin]; ok && c.clock().Before(e.expires) {
		c.mu.Unlock()
		return e.rules, nil
	}
	c.mu.Unlock()

	rules := c.fetch(ctx, origin+"/robots.txt")
	// A cancelled caller says nothing about the site; do not remember it.
	if err := ctx.Err(); err != nil {
		return Rules{}, err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c.mu.Lock()
	c.entries[origin] = entry{rules: rules, expires: c.clock().Add(ttl)}
	c.mu.Unlock()
	return rules, nil
}

func (c *Checker) client() *resty.Client {
	c.initOnce.Do(func() {
		if c.HTTPClient != nil {
			c.rc = resty.NewWithClient(c.HTTPClient)
		} else {
			c.rc = resty.New().SetTimeout(10 * time.Second)
		}
		if c.UserAgent != "" {
			c.rc.SetHeader("User-Agent", c.UserAgent)
		}
	})
	return c.rc
}

func (c *Checker) fetch(ctx context.Context, robotsURL string) Rules {
	resp, err := c.client().R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(robotsURL)
	if resp != nil && resp.RawBody() != nil {
		defer resp.RawBody().Close()
	}
	if err != nil {
		log.Warn().Err(err).Str("url", robotsURL).Msg("robots unreachable; disallowing")
		return DisallowAll
	}
	status := resp.StatusCode()
	switch {
	case status >= http.StatusInternalServerError:
		log.Warn().Int("status", status).Str("url", robotsURL).Msg("robots server error; disallowing")
		return DisallowAll
	case status < 200 || status > 299:
		return AllowAll
	}
	body, err := io.ReadAll(io.LimitReader(resp.RawBody(), maxRobotsBytes))
	if err != nil {
		log.Warn().Err(err).Str("url", robotsURL).Msg("robots read; disallowing")
		return DisallowAll
	}
	return Parse(string(body))
}
