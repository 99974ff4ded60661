package app

import (
	"time"

	"github.com/hyperifyio/vubresto/internal/extract"
	"github.com/hyperifyio/vubresto/internal/menu"
)

// Source is one restaurant page to scrape.
type Source struct {
	Name   string `yaml:"name" json:"name"`
	URL    string `yaml:"url" json:"url"`
	Locale string `yaml:"locale" json:"locale"`
}

// Identity returns the persisted identity of the source.
func (s Source) Identity() menu.Identity {
	return menu.Identity{Name: s.Name, Locale: s.Locale}
}

// Config holds runtime configuration for the application.
type Config struct {
	// Output
	OutputDir   string
	StrictPerms bool
	// ReportPath, when set, receives a JSON summary of every run.
	ReportPath string

	Sources []Source

	// Fetching
	Workers       int
	Timeout       time.Duration
	UserAgent     string
	MaxConcurrent int
	MaxRedirects  int
	RespectRobots bool

	// Extraction
	Categories   map[string]string
	DefaultColor string
	VeggieMarker string
	Selectors    extract.Selectors

	// Modes
	Schedule  string
	Timezone  string
	ServeAddr string

	// Logging
	LogLevel string
	LogFile  string
	Verbose  bool
}

const (
	defaultWorkers      = 4
	defaultTimeout      = 20 * time.Second
	defaultMaxRedirects = 5
)

// DefaultSources are the two campus restaurants of the catering service.
func DefaultSources() []Source {
	return []Source{
		{Name: "Etterbeek", URL: "https://my.vub.ac.be/resto/etterbeek", Locale: "nl"},
		{Name: "Jette", URL: "https://my.vub.ac.be/resto/jette", Locale: "nl"},
	}
}

// DefaultUserAgent identifies the scraper to the catering site.
func DefaultUserAgent() string {
	return "vubresto/" + BuildVersion + " (+https://github.com/hyperifyio/vubresto)"
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		OutputDir:    ".",
		Sources:      DefaultSources(),
		Workers:      defaultWorkers,
		Timeout:      defaultTimeout,
		UserAgent:    DefaultUserAgent(),
		MaxRedirects: defaultMaxRedirects,
		DefaultColor: extract.DefaultColor,
		VeggieMarker: extract.DefaultVeggieMarker,
		Selectors:    extract.DefaultSelectors,
		LogLevel:     "info",
	}
}
