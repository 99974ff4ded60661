package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/vubresto/internal/dates"
	"github.com/hyperifyio/vubresto/internal/extract"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Sources []Source `yaml:"sources" json:"sources"`

	Output struct {
		Dir         string `yaml:"dir" json:"dir"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms"`
		Report      string `yaml:"report" json:"report"`
	} `yaml:"output" json:"output"`

	HTTP struct {
		Timeout       Duration `yaml:"timeout" json:"timeout"`
		UserAgent     string   `yaml:"userAgent" json:"userAgent"`
		MaxConcurrent int      `yaml:"maxConcurrent" json:"maxConcurrent"`
		MaxRedirects  int      `yaml:"maxRedirects" json:"maxRedirects"`
		Robots        bool     `yaml:"robots" json:"robots"`
	} `yaml:"http" json:"http"`

	Workers  int    `yaml:"workers" json:"workers"`
	Schedule string `yaml:"schedule" json:"schedule"`
	Timezone string `yaml:"timezone" json:"timezone"`
	Serve    string `yaml:"serve" json:"serve"`

	Categories   map[string]string `yaml:"categories" json:"categories"`
	DefaultColor string            `yaml:"defaultColor" json:"defaultColor"`
	VeggieMarker string            `yaml:"veggieMarker" json:"veggieMarker"`

	Selectors struct {
		Day   string `yaml:"day" json:"day"`
		Date  string `yaml:"date" json:"date"`
		Rows  string `yaml:"rows" json:"rows"`
		Image string `yaml:"image" json:"image"`
	} `yaml:"selectors" json:"selectors"`

	Log struct {
		Level string `yaml:"level" json:"level"`
		File  string `yaml:"file" json:"file"`
	} `yaml:"log" json:"log"`
}

// Duration accepts Go duration strings ("20s", "1m30s") in YAML and JSON.
type Duration time.Duration

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.parse(n.Value)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.parse(s)
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg. It runs before
// environment and flag overrides, so those keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if len(fc.Sources) > 0 {
		cfg.Sources = append([]Source{}, fc.Sources...)
	}
	if fc.Output.Dir != "" {
		cfg.OutputDir = fc.Output.Dir
	}
	if fc.Output.StrictPerms {
		cfg.StrictPerms = true
	}
	if fc.Output.Report != "" {
		cfg.ReportPath = fc.Output.Report
	}
	if fc.HTTP.Timeout > 0 {
		cfg.Timeout = time.Duration(fc.HTTP.Timeout)
	}
	if fc.HTTP.UserAgent != "" {
		cfg.UserAgent = fc.HTTP.UserAgent
	}
	if fc.HTTP.MaxConcurrent > 0 {
		cfg.MaxConcurrent = fc.HTTP.MaxConcurrent
	}
	if fc.HTTP.MaxRedirects > 0 {
		cfg.MaxRedirects = fc.HTTP.MaxRedirects
	}
	if fc.HTTP.Robots {
		cfg.RespectRobots = true
	}
	if fc.Workers > 0 {
		cfg.Workers = fc.Workers
	}
	if fc.Schedule != "" {
		cfg.Schedule = fc.Schedule
	}
	if fc.Timezone != "" {
		cfg.Timezone = fc.Timezone
	}
	if fc.Serve != "" {
		cfg.ServeAddr = fc.Serve
	}
	if len(fc.Categories) > 0 {
		cfg.Categories = make(map[string]string, len(fc.Categories))
		for k, v := range fc.Categories {
			cfg.Categories[k] = v
		}
	}
	if fc.DefaultColor != "" {
		cfg.DefaultColor = fc.DefaultColor
	}
	if fc.VeggieMarker != "" {
		cfg.VeggieMarker = fc.VeggieMarker
	}
	if fc.Selectors.Day != "" {
		cfg.Selectors.Day = fc.Selectors.Day
	}
	if fc.Selectors.Date != "" {
		cfg.Selectors.Date = fc.Selectors.Date
	}
	if fc.Selectors.Rows != "" {
		cfg.Selectors.Rows = fc.Selectors.Rows
	}
	if fc.Selectors.Image != "" {
		cfg.Selectors.Image = fc.Selectors.Image
	}
	if fc.Log.Level != "" {
		cfg.LogLevel = fc.Log.Level
	}
	if fc.Log.File != "" {
		cfg.LogFile = fc.Log.File
	}
}

// ValidateConfig checks the settings a run cannot do without.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return errors.New("config: output dir is required")
	}
	if len(cfg.Sources) == 0 {
		return errors.New("config: at least one source is required")
	}
	files := make(map[string]string, len(cfg.Sources))
	for i, s := range cfg.Sources {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("config: sources[%d]: name is required", i)
		}
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: source %q: url %q must be an absolute http(s) URL", s.Name, s.URL)
		}
		if _, err := dates.LookupLocale(s.Locale); err != nil {
			return fmt.Errorf("config: source %q: %w", s.Name, err)
		}
		file := s.Identity().FileName()
		if other, ok := files[file]; ok {
			return fmt.Errorf("config: sources %q and %q both write %s", other, s.Name, file)
		}
		files[file] = s.Name
	}
	if cfg.Workers < 1 {
		return errors.New("config: workers must be at least 1")
	}
	if cfg.Timeout < 0 || cfg.MaxConcurrent < 0 || cfg.MaxRedirects < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if _, err := extract.NewPalette(cfg.Categories, cfg.DefaultColor); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return fmt.Errorf("config: schedule %q: %w", cfg.Schedule, err)
		}
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("config: timezone: %w", err)
		}
	}
	return nil
}
