package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/vubresto/internal/app"
	"github.com/hyperifyio/vubresto/internal/schedule"
	"github.com/hyperifyio/vubresto/internal/server"
)

const shutdownGrace = 10 * time.Second

// errVersion signals that -version was requested.
var errVersion = errors.New("version requested")

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := loadConfig(flag.CommandLine, os.Args[1:])
	if errors.Is(err, errVersion) {
		fmt.Printf("vubresto %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}
	logFile, err := setupLogging(cfg)
	if err != nil {
		log.Error().Err(err).Msg("logging setup failed")
		os.Exit(2)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Exit code policy: failing sources are reported but never fail the
	// process; only startup and serving errors do.
	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("run failed")
		logFile.Close()
		os.Exit(1)
	}
}

// loadConfig composes defaults, config file, environment and explicitly set
// flags, in increasing order of precedence.
func loadConfig(fs *flag.FlagSet, args []string) (app.Config, error) {
	def := app.DefaultConfig()
	var (
		configPath  string
		envFiles    string
		outDir      string
		reportPath  string
		workers     int
		timeout     time.Duration
		userAgent   string
		maxConc     int
		cronSpec    string
		timezone    string
		serveAddr   string
		strictPerms bool
		robots      bool
		logLevel    string
		logFile     string
		verbose     bool
		version     bool
	)
	fs.StringVar(&configPath, "config", "", "Path to YAML or JSON config file (or VUBRESTO_CONFIG)")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load before reading the environment")
	fs.StringVar(&outDir, "out", def.OutputDir, "Directory receiving one <restaurant>.json per source")
	fs.StringVar(&reportPath, "report", "", "Optional path for a JSON report of each run")
	fs.IntVar(&workers, "workers", def.Workers, "Maximum sources processed concurrently")
	fs.DurationVar(&timeout, "timeout", def.Timeout, "Per-request HTTP timeout")
	fs.StringVar(&userAgent, "ua", def.UserAgent, "User-Agent sent to the catering site")
	fs.IntVar(&maxConc, "http.maxConcurrent", 0, "Cap on in-flight HTTP requests (0 = unlimited)")
	fs.BoolVar(&robots, "robots", false, "Honor each site's robots.txt before fetching")
	fs.StringVar(&cronSpec, "schedule", "", "Cron spec for repeated runs, e.g. '30 6 * * 1-5' (empty = run once)")
	fs.StringVar(&timezone, "tz", "", "IANA time zone for -schedule (default local)")
	fs.StringVar(&serveAddr, "serve", "", "Listen address for the read-only HTTP API, e.g. ':8080' (empty = disabled)")
	fs.BoolVar(&strictPerms, "strictPerms", false, "Write output dir 0700 and documents 0600")
	fs.StringVar(&logLevel, "log.level", def.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&logFile, "log.file", "", "Also append JSON log lines to this file")
	fs.BoolVar(&verbose, "v", false, "Verbose logging (same as -log.level=debug)")
	fs.BoolVar(&version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, err
	}
	if version {
		return app.Config{}, errVersion
	}

	if err := app.LoadEnvFiles(splitList(envFiles)...); err != nil {
		return app.Config{}, fmt.Errorf("load env: %w", err)
	}
	if configPath == "" {
		configPath = os.Getenv("VUBRESTO_CONFIG")
	}

	cfg := def
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config %s: %w", configPath, err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.OutputDir = outDir
		case "report":
			cfg.ReportPath = reportPath
		case "workers":
			cfg.Workers = workers
		case "timeout":
			cfg.Timeout = timeout
		case "ua":
			cfg.UserAgent = userAgent
		case "http.maxConcurrent":
			cfg.MaxConcurrent = maxConc
		case "robots":
			cfg.RespectRobots = robots
		case "schedule":
			cfg.Schedule = cronSpec
		case "tz":
			cfg.Timezone = timezone
		case "serve":
			cfg.ServeAddr = serveAddr
		case "strictPerms":
			cfg.StrictPerms = strictPerms
		case "log.level":
			cfg.LogLevel = logLevel
		case "log.file":
			cfg.LogFile = logFile
		case "v":
			cfg.Verbose = verbose
		}
	})

	if err := app.ValidateConfig(cfg); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogging applies the level and, when LogFile is set, tees JSON lines
// to that file next to the console output.
func setupLogging(cfg app.Config) (io.Closer, error) {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(cfg.LogLevel); s != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", s, err)
		}
		level = l
	}
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if cfg.LogFile == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nopCloser{}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, f)).With().Timestamp().Logger()
	return f, nil
}

// run scrapes once, or keeps scraping on a schedule and/or serving the
// documents until ctx ends.
func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	scrape := func(ctx context.Context) {
		rep, err := a.Run(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("run interrupted")
			return
		}
		rep.Log()
	}

	if cfg.Schedule == "" && cfg.ServeAddr == "" {
		rep, err := a.Run(ctx)
		if err != nil {
			return err
		}
		rep.Log()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Schedule != "" {
		loc := time.Local
		if cfg.Timezone != "" {
			if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
				return fmt.Errorf("timezone: %w", err)
			}
		}
		sched, err := schedule.New(cfg.Schedule, loc, scrape)
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Run(gctx, true, shutdownGrace) })
	} else {
		g.Go(func() error {
			scrape(gctx)
			return nil
		})
	}

	if cfg.ServeAddr != "" {
		handler := server.New(server.Options{
			Catalog: a,
			Version: app.BuildVersion,
			LastRun: func() (time.Time, bool) {
				rep, ok := a.LastReport()
				return rep.FinishedAt, ok
			},
		})
		g.Go(func() error { return server.ListenAndServe(gctx, cfg.ServeAddr, handler, shutdownGrace) })
	}
	return g.Wait()
}
