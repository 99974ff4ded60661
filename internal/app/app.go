package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/vubresto/internal/dates"
	"github.com/hyperifyio/vubresto/internal/extract"
	"github.com/hyperifyio/vubresto/internal/fetch"
	"github.com/hyperifyio/vubresto/internal/menu"
	"github.com/hyperifyio/vubresto/internal/robots"
	"github.com/hyperifyio/vubresto/internal/store"
)

// pageFetcher abstracts the HTTP collaborator so runs can be tested without
// the network.
type pageFetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

type App struct {
	cfg     Config
	fetcher pageFetcher
	store   *store.Store
	// extractors are indexed like cfg.Sources.
	extractors []extract.TableExtractor

	mu   sync.RWMutex
	last *Report
}

// New validates cfg and wires the fetch, extract and store stages.
func New(cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = extract.DefaultCategoryColors()
	}
	palette, err := extract.NewPalette(categories, cfg.DefaultColor)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	httpClient := newHTTPClient(cfg.Timeout)
	client := &fetch.Client{
		HTTPClient:        httpClient,
		UserAgent:         cfg.UserAgent,
		PerRequestTimeout: cfg.Timeout,
		RedirectMaxHops:   cfg.MaxRedirects,
		MaxConcurrent:     cfg.MaxConcurrent,
	}
	if cfg.RespectRobots {
		client.Robots = &robots.Checker{HTTPClient: httpClient, UserAgent: cfg.UserAgent}
	}
	a := &App{
		cfg:     cfg,
		fetcher: client,
		store:   &store.Store{Dir: cfg.OutputDir, StrictPerms: cfg.StrictPerms},
	}
	for _, src := range cfg.Sources {
		locale, err := dates.LookupLocale(src.Locale)
		if err != nil {
			return nil, fmt.Errorf("config: source %q: %w", src.Name, err)
		}
		a.extractors = append(a.extractors, extract.TableExtractor{
			Locale:       locale,
			Palette:      palette,
			Selectors:    cfg.Selectors,
			VeggieMarker: cfg.VeggieMarker,
			Log:          sourceLogger(src),
		})
	}
	log.Debug().
		Int("sources", len(cfg.Sources)).
		Int("workers", cfg.Workers).
		Str("out", cfg.OutputDir).
		Int("categories", len(palette.Categories())).
		Msg("app initialized")
	return a, nil
}

func sourceLogger(src Source) zerolog.Logger {
	return log.With().Str("restaurant", src.Name).Str("locale", src.Locale).Logger()
}

// Run fetches, extracts and persists every configured source once. Sources
// are processed concurrently, bounded by Workers, and never affect one
// another. The returned error is non-nil only when ctx ended the run.
func (a *App) Run(ctx context.Context) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	rep := Report{
		StartedAt: time.Now().UTC(),
		Version:   BuildVersion,
		Sources:   make([]SourceResult, len(a.cfg.Sources)),
	}

	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)
	for i := range a.cfg.Sources {
		i := i
		g.Go(func() error {
			rep.Sources[i] = a.processSource(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	rep.FinishedAt = time.Now().UTC()

	a.mu.Lock()
	a.last = &rep
	a.mu.Unlock()

	if a.cfg.ReportPath != "" {
		if err := writeReport(a.cfg.ReportPath, rep); err != nil {
			log.Warn().Err(err).Str("path", a.cfg.ReportPath).Msg("run report not written")
		}
	}
	return rep, ctx.Err()
}

// processSource runs fetch, extract and persist for one source. Fetch and
// parse failures degrade to an empty document; a cancelled context leaves
// the previous document in place.
func (a *App) processSource(ctx context.Context, i int) (res SourceResult) {
	src := a.cfg.Sources[i]
	id := src.Identity()
	logger := sourceLogger(src)
	start := time.Now()
	res = SourceResult{
		Name:   src.Name,
		Locale: src.Locale,
		URL:    src.URL,
		File:   a.store.Path(id),
		Status: StatusOK,
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("source panicked")
			res.Status = StatusFailed
			res.Error = fmt.Sprintf("panic: %v", r)
		}
		res.TookMillis = time.Since(start).Milliseconds()
	}()

	days, stats, err := a.scrape(ctx, i)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn().Err(err).Msg("run cancelled; keeping previous document")
			res.Status = StatusFailed
			res.Error = err.Error()
			return res
		}
		logger.Error().Err(err).Str("url", src.URL).Msg("source failed; persisting empty document")
		res.Status = StatusDegraded
		res.Error = err.Error()
		days = nil
	}

	doc := menu.RestaurantMenu{Identity: id, Days: days}
	if err := a.store.Save(ctx, doc); err != nil {
		logger.Error().Err(err).Msg("persist failed")
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	res.Days = stats.Days
	res.Items = stats.Items
	res.FallbackDays = stats.FallbackDays
	res.DroppedDays = stats.DroppedDays
	res.DroppedRows = stats.DroppedRows
	res.UnknownCategories = stats.UnknownCategories
	return res
}

func (a *App) scrape(ctx context.Context, i int) ([]menu.DayMenu, extract.Stats, error) {
	src := a.cfg.Sources[i]
	body, contentType, err := a.fetcher.Get(ctx, src.URL)
	if err != nil {
		return nil, extract.Stats{}, err
	}
	doc, err := extract.Parse(body, contentType)
	if err != nil {
		return nil, extract.Stats{}, err
	}
	days, stats := a.extractors[i].ExtractWithStats(doc)
	return days, stats, nil
}

// Identities lists the configured restaurants in configuration order.
func (a *App) Identities() []menu.Identity {
	out := make([]menu.Identity, 0, len(a.cfg.Sources))
	for _, s := range a.cfg.Sources {
		out = append(out, s.Identity())
	}
	return out
}

// LoadRaw returns the persisted document for id.
func (a *App) LoadRaw(ctx context.Context, id menu.Identity) ([]byte, error) {
	return a.store.LoadRaw(ctx, id)
}

// LastReport returns the report of the most recent completed run.
func (a *App) LastReport() (Report, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return Report{}, false
	}
	return *a.last, true
}

