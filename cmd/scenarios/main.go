package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newplayman/exchange-bdd-scenarios/internal/config"
	"github.com/newplayman/exchange-bdd-scenarios/internal/metrics"
	"github.com/newplayman/exchange-bdd-scenarios/internal/scenario"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	configFile  = flag.String("config", "", "YAML config file (optional)")
	envFile     = flag.String("env", ".env", "dotenv file with credentials (optional)")
	logLevel    = flag.String("log", "", "log level (debug, info, warn, error); overrides the config")
	format      = flag.String("format", "", "godog formatter (pretty, progress, cucumber, junit, events)")
	tags        = flag.String("tags", "", "godog tag expression, e.g. @public")
	pair        = flag.String("pair", "", "trading pair for the configured pair scenarios")
	watch       = flag.Bool("watch", false, "rerun the suite whenever the config file changes")
	metricsPort = flag.Int("metrics-port", -1, "serve /metrics on this port; overrides the config")
)

func main() {
	flag.Parse()
	setupLogger(*logLevel)

	if *watch {
		os.Exit(watchAndRun())
	}

	cfg, err := config.LoadConfig(*configFile, *envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	applyFlags(cfg)
	startMetrics(cfg)
	os.Exit(run(cfg))
}

// watchAndRun runs the suite once, then again for every valid config revision
// until interrupted. It returns the status of the last run.
func watchAndRun() int {
	changes := make(chan *config.Config, 1)
	cfg, err := config.Watch(*configFile, *envFile, func(next *config.Config) {
		// Only the newest pending revision matters.
		select {
		case <-changes:
		default:
		}
		changes <- next
	})
	if err != nil {
		log.Fatal().Err(err).Msg("watch config")
	}
	applyFlags(cfg)
	startMetrics(cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	status := run(cfg)
	for {
		log.Info().Str("config", *configFile).Msg("waiting for config changes")
		select {
		case next := <-changes:
			applyFlags(next)
			status = run(next)
		case <-sigCh:
			log.Info().Msg("interrupted")
			return status
		}
	}
}

func run(cfg *config.Config) int {
	log.Info().
		Str("base_url", cfg.Kraken.BaseURL).
		Str("pair", cfg.Scenarios.Pair).
		Bool("credentials", cfg.HasCredentials()).
		Msg("running scenarios")

	return scenario.Run(scenario.NewSteps(cfg), scenario.RunOptions{
		Format:      cfg.Scenarios.Format,
		Tags:        cfg.Scenarios.Tags,
		Concurrency: cfg.Scenarios.Concurrency,
		Output:      os.Stdout,
	})
}

// applyFlags lets explicit command line flags win over the loaded config.
func applyFlags(cfg *config.Config) {
	if *format != "" {
		cfg.Scenarios.Format = *format
	}
	if *tags != "" {
		cfg.Scenarios.Tags = *tags
	}
	if *pair != "" {
		cfg.Scenarios.Pair = *pair
	}
	if *metricsPort >= 0 {
		cfg.Global.MetricsPort = *metricsPort
	}
	if *logLevel == "" {
		setupLogger(cfg.Global.LogLevel)
	}
}

func startMetrics(cfg *config.Config) {
	if cfg.Global.MetricsPort <= 0 {
		return
	}
	if _, err := metrics.StartMetricsServer(cfg.Global.MetricsPort); err != nil {
		log.Error().Err(err).Msg("start metrics server")
	}
}

func setupLogger(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
