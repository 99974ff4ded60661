package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides forcefully overrides cfg fields with VUBRESTO_*
// environment variables when they are set. Env takes precedence over the
// config file; flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := strings.TrimSpace(os.Getenv("VUBRESTO_OUT_DIR")); v != "" {
		cfg.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv("VUBRESTO_REPORT")); v != "" {
		cfg.ReportPath = v
	}
	if v := strings.TrimSpace(os.Getenv("VUBRESTO_USER_AGENT")); v != "" {
		cfg.UserAgent = v
	}
	if v := strings.TrimSpace(os.Getenv("VUBRESTO_SCHEDULE")); v != "" {
		cfg.Schedule = v
	}
	if v := strings.TrimSpace(os.Getenv("VUBRESTO_TZ")); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(os.Getenv("VUBRESTO_SERVE")); v != "" {
		cfg.ServeAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("VUBRESTO_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	setInt := func(dst *int, envKey string) {
		if s := strings.TrimSpace(os.Getenv(envKey)); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				*dst = n
			}
		}
	}
	setInt(&cfg.Workers, "VUBRESTO_WORKERS")
	setInt(&cfg.MaxConcurrent, "VUBRESTO_MAX_CONCURRENT")

	if s := strings.TrimSpace(os.Getenv("VUBRESTO_TIMEOUT")); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.StrictPerms, "VUBRESTO_STRICT_PERMS")
	setBool(&cfg.Verbose, "VUBRESTO_VERBOSE")
	setBool(&cfg.RespectRobots, "VUBRESTO_ROBOTS")
}
