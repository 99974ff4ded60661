// Package server exposes the persisted menu documents over a read-only
// HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"

	"github.com/hyperifyio/vubresto/internal/menu"
)

// Catalog is the read side of the scraper: the configured restaurants and
// their last persisted documents.
type Catalog interface {
	Identities() []menu.Identity
	LoadRaw(ctx context.Context, id menu.Identity) ([]byte, error)
}

// Options configures the router.
type Options struct {
	Catalog Catalog
	Version string
	// LastRun reports when the most recent scrape finished, if any.
	LastRun func() (time.Time, bool)
}

type restaurantInfo struct {
	Name   string `json:"name"`
	Locale string `json:"locale"`
	File   string `json:"file"`
	Path   string `json:"path"`
}

// New wires the Gin engine with the health and menu routes.
func New(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log.With().Str("component", "http").Logger()))

	h := &handlers{opts: opts}
	r.GET("/healthz", h.health)
	r.GET("/restaurants", h.list)
	r.GET("/restaurants/:name", h.document)
	return r
}

type handlers struct {
	opts Options
}

func (h *handlers) health(c *gin.Context) {
	body := gin.H{"status": "ok", "version": h.opts.Version}
	if h.opts.LastRun != nil {
		if at, ok := h.opts.LastRun(); ok {
			body["last_run"] = at.UTC().Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) list(c *gin.Context) {
	ids := h.opts.Catalog.Identities()
	out := make([]restaurantInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, restaurantInfo{
			Name:   id.Name,
			Locale: id.Locale,
			File:   id.FileName(),
			Path:   "/restaurants/" + strings.TrimSuffix(id.FileName(), ".json"),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) document(c *gin.Context) {
	id, ok := h.lookup(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown restaurant"})
		return
	}
	b, err := h.opts.Catalog.LoadRaw(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "menu not scraped yet"})
			return
		}
		log.Error().Err(err).Str("restaurant", id.Name).Msg("load document")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "document unavailable"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

// lookup matches either the file slug ("etterbeek", "etterbeek.json") or
// the restaurant name, ignoring case.
func (h *handlers) lookup(name string) (menu.Identity, bool) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSuffix(strings.TrimSpace(name), ".json"))
	for _, id := range h.opts.Catalog.Identities() {
		if strings.TrimSuffix(id.FileName(), ".json") == want || fold.String(id.Name) == want {
			return id, true
		}
	}
	return menu.Identity{}, false
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request completed")
	}
}

// ListenAndServe serves handler on addr until ctx ends, then shuts down
// gracefully within grace.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
