package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/vubresto/internal/store"
)

// Source outcome labels used in the run report.
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusDegraded = "degraded"
)

// SourceResult records what one source produced during a run.
type SourceResult struct {
	Name   string `json:"name"`
	Locale string `json:"locale"`
	URL    string `json:"url"`
	File   string `json:"file"`
	// Status is ok, degraded (fetch or parse failed, [] persisted) or failed
	// (nothing persisted).
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	Days              int `json:"days"`
	Items             int `json:"items"`
	FallbackDays      int `json:"fallback_days"`
	DroppedDays       int `json:"dropped_days"`
	DroppedRows       int `json:"dropped_rows"`
	UnknownCategories int `json:"unknown_categories"`

	TookMillis int64 `json:"took_ms"`
}

// Report summarizes a run across all sources, in configuration order.
type Report struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Version    string         `json:"version"`
	Sources    []SourceResult `json:"sources"`
}

// Count returns how many sources ended with the given status.
func (r Report) Count(status string) int {
	n := 0
	for _, s := range r.Sources {
		if s.Status == status {
			n++
		}
	}
	return n
}

// Log writes one line per source and a closing summary.
func (r Report) Log() {
	for _, s := range r.Sources {
		ev := log.Info()
		if s.Status != StatusOK {
			ev = log.Warn().Str("error", s.Error)
		}
		ev.Str("restaurant", s.Name).
			Str("locale", s.Locale).
			Str("status", s.Status).
			Int("days", s.Days).
			Int("items", s.Items).
			Int("fallback_days", s.FallbackDays).
			Int("dropped_days", s.DroppedDays).
			Int("dropped_rows", s.DroppedRows).
			Int64("took_ms", s.TookMillis).
			Msg("source done")
	}
	log.Info().
		Int("sources", len(r.Sources)).
		Int("ok", r.Count(StatusOK)).
		Int("degraded", r.Count(StatusDegraded)).
		Int("failed", r.Count(StatusFailed)).
		Dur("took", r.FinishedAt.Sub(r.StartedAt)).
		Msg("run finished")
}

// marshalReportJSON encodes a machine-readable run report.
func marshalReportJSON(r Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// writeReport atomically replaces the report at path, creating parent
// directories.
func writeReport(path string, r Report) error {
	b, err := marshalReportJSON(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report dir: %w", err)
		}
	}
	if err := store.WriteFileAtomic(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
