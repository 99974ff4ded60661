package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadConfigFile_YAML(t *testing.T) {
	p := writeFile(t, "vubresto.yaml", `
sources:
  - name: Etterbeek
    url: https://my.vub.ac.be/resto/etterbeek
    locale: nl
  - name: Etterbeek EN
    url: https://my.vub.ac.be/en/resto/etterbeek
    locale: en
output:
  dir: /var/lib/vubresto
  report: /var/lib/vubresto/report.json
http:
  timeout: 45s
  maxRedirects: 2
workers: 3
schedule: "30 6 * * 1-5"
categories:
  Soep: "#FDB85B"
defaultColor: "#ffffff"
selectors:
  day: ".day"
`)
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc)

	wantSources := []Source{
		{Name: "Etterbeek", URL: "https://my.vub.ac.be/resto/etterbeek", Locale: "nl"},
		{Name: "Etterbeek EN", URL: "https://my.vub.ac.be/en/resto/etterbeek", Locale: "en"},
	}
	if diff := cmp.Diff(wantSources, cfg.Sources); diff != "" {
		t.Fatalf("sources (-want +got):\n%s", diff)
	}
	if cfg.OutputDir != "/var/lib/vubresto" || cfg.ReportPath != "/var/lib/vubresto/report.json" {
		t.Fatalf("output: %q %q", cfg.OutputDir, cfg.ReportPath)
	}
	if cfg.Timeout != 45*time.Second || cfg.MaxRedirects != 2 || cfg.Workers != 3 {
		t.Fatalf("limits: timeout=%s redirects=%d workers=%d", cfg.Timeout, cfg.MaxRedirects, cfg.Workers)
	}
	if cfg.Schedule != "30 6 * * 1-5" || cfg.DefaultColor != "#ffffff" {
		t.Fatalf("schedule=%q defaultColor=%q", cfg.Schedule, cfg.DefaultColor)
	}
	if cfg.Selectors.Day != ".day" || cfg.Selectors.Rows != "table tr" {
		t.Fatalf("selectors merged wrong: %+v", cfg.Selectors)
	}
	// Values absent from the file keep their defaults.
	if cfg.UserAgent != DefaultUserAgent() || cfg.VeggieMarker != "veggiedag" {
		t.Fatalf("defaults lost: ua=%q marker=%q", cfg.UserAgent, cfg.VeggieMarker)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	p := writeFile(t, "vubresto.json", `{"workers": 8, "http": {"timeout": "1m"}, "serve": ":9000"}`)
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc)
	if cfg.Workers != 8 || cfg.Timeout != time.Minute || cfg.ServeAddr != ":9000" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("default sources replaced: %+v", cfg.Sources)
	}
}

func TestLoadConfigFile_BadDuration(t *testing.T) {
	p := writeFile(t, "bad.yaml", "http:\n  timeout: forever\n")
	if _, err := LoadConfigFile(p); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no sources", func(c *Config) { c.Sources = nil }, "at least one source"},
		{"empty name", func(c *Config) { c.Sources[0].Name = " " }, "name is required"},
		{"relative url", func(c *Config) { c.Sources[0].URL = "/resto" }, "absolute http(s) URL"},
		{"ftp url", func(c *Config) { c.Sources[0].URL = "ftp://my.vub.ac.be/x" }, "absolute http(s) URL"},
		{"unknown locale", func(c *Config) { c.Sources[0].Locale = "fr" }, "locale"},
		{"duplicate file", func(c *Config) { c.Sources[1].Name = "ETTERBEEK" }, "both write etterbeek.json"},
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative", func(c *Config) { c.MaxConcurrent = -1 }, "negative"},
		{"bad color", func(c *Config) { c.Categories = map[string]string{"Soep": "orange"} }, "#rrggbb"},
		{"bad default color", func(c *Config) { c.DefaultColor = "#fff" }, "#rrggbb"},
		{"bad schedule", func(c *Config) { c.Schedule = "every day" }, "schedule"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"no output", func(c *Config) { c.OutputDir = "" }, "output dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := ValidateConfig(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%v, want containing %q", err, tc.want)
			}
		})
	}
}
