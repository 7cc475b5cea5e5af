// Package scenario holds the Gherkin features and step definitions that drive
// the Kraken REST API, plus the runner used by both go test and the CLI.
package scenario

import (
	"embed"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/newplayman/exchange-bdd-scenarios/internal/config"
	gateway "github.com/newplayman/exchange-bdd-scenarios/internal/exchange"
	"github.com/newplayman/exchange-bdd-scenarios/internal/metrics"
	"github.com/rs/zerolog/log"
)

//go:embed features/*.feature
var Features embed.FS

// RunOptions controls one suite run.
type RunOptions struct {
	Format      string
	Tags        string
	Concurrency int
	Output      io.Writer
	// TestingT reports each scenario as a subtest when set.
	TestingT *testing.T
}

// SettingsFromConfig extracts the suite input from a loaded config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		APIKey:    cfg.Kraken.APIKey,
		APISecret: cfg.Kraken.APISecret,
		OTP:       cfg.Kraken.OTP,
		Pair:      cfg.Scenarios.Pair,
	}
}

// NewSteps wires a Kraken client for cfg.
func NewSteps(cfg *config.Config) *Steps {
	httpCli := gateway.NewDefaultHTTPClient()
	httpCli.Timeout = cfg.Timeout()
	return &Steps{
		API:      gateway.NewKrakenRESTClient(cfg.Kraken.BaseURL, httpCli),
		Settings: SettingsFromConfig(cfg),
		Nonces:   &gateway.NonceGenerator{},
	}
}

// Run executes the embedded features and returns godog's exit status
// (0 passed, 1 failed, 2 usage error).
func Run(steps *Steps, opts RunOptions) int {
	tags := opts.Tags
	if !steps.Settings.HasCredentials() {
		log.Warn().Msg("no API credentials, skipping @private scenarios")
		tags = joinTags(tags, "~@private")
	}
	if opts.Format == "" {
		opts.Format = "pretty"
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	start := time.Now()
	status := godog.TestSuite{
		Name:                "kraken",
		ScenarioInitializer: steps.InitializeScenario,
		Options: &godog.Options{
			Format:      opts.Format,
			Paths:       []string{"features"},
			FS:          Features,
			Tags:        tags,
			Concurrency: opts.Concurrency,
			Strict:      true,
			Output:      opts.Output,
			TestingT:    opts.TestingT,
		},
	}.Run()
	metrics.ObserveSuite(time.Since(start))

	log.Info().Int("status", status).Dur("elapsed", time.Since(start)).Msg("suite finished")
	return status
}

// joinTags ANDs two godog tag expressions.
func joinTags(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " && " + b
	}
}
