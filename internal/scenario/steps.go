package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
	gateway "github.com/newplayman/exchange-bdd-scenarios/internal/exchange"
	"github.com/newplayman/exchange-bdd-scenarios/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

type worldKey struct{}

func worldFrom(ctx context.Context) *ExchangeWorld {
	return ctx.Value(worldKey{}).(*ExchangeWorld)
}

// Steps binds step definitions to a fresh ExchangeWorld per scenario.
type Steps struct {
	API      gateway.Exchange
	Settings Settings
	Nonces   *gateway.NonceGenerator
}

// InitializeScenario is the godog scenario initializer.
func (s *Steps) InitializeScenario(sc *godog.ScenarioContext) {
	if s.Nonces == nil {
		s.Nonces = &gateway.NonceGenerator{}
	}

	sc.Before(func(ctx context.Context, scn *godog.Scenario) (context.Context, error) {
		log.Debug().Str("scenario", scn.Name).Msg("scenario started")
		return context.WithValue(ctx, worldKey{}, NewExchangeWorld(s.API, s.Settings, s.Nonces)), nil
	})
	sc.After(func(ctx context.Context, scn *godog.Scenario, err error) (context.Context, error) {
		status := "passed"
		if err != nil {
			status = "failed"
			log.Warn().Err(err).Str("scenario", scn.Name).Msg("scenario failed")
		}
		metrics.RecordScenario(status)
		return ctx, nil
	})

	sc.Step(`^I request the server time$`, requestServerTime)
	sc.Step(`^I get a proper server time$`, properServerTime)

	sc.Step(`^I request the XBT/USD trading pair$`, func(ctx context.Context) error {
		return requestTradingPair(ctx, "XBTUSD")
	})
	sc.Step(`^I request the configured trading pair$`, func(ctx context.Context) error {
		return requestTradingPair(ctx, s.Settings.Pair)
	})
	sc.Step(`^I request the "([^"]*)" trading pair$`, requestTradingPair)
	sc.Step(`^I try to request the "([^"]*)" trading pair$`, tryRequestTradingPair)
	sc.Step(`^I get proper trading pair info$`, properTradingPair)

	sc.Step(`^I request the XBT/USD ticker$`, func(ctx context.Context) error {
		return requestTicker(ctx, "XBTUSD")
	})
	sc.Step(`^I request the "([^"]*)" ticker$`, requestTicker)
	sc.Step(`^I get a proper ticker$`, properTicker)

	sc.Step(`^I have a 2FA account$`, haveTwoFactorAccount)
	sc.Step(`^I request the open orders$`, requestOpenOrders)
	sc.Step(`^I replay the open orders request$`, replayOpenOrders)
	sc.Step(`^I get my list of open orders$`, listOfOpenOrders)

	sc.Step(`^the exchange rejects the request with "([^"]*)"$`, exchangeRejects)
}

func requestServerTime(ctx context.Context) error {
	return worldFrom(ctx).GetServerTime(ctx)
}

func properServerTime(ctx context.Context) error {
	w := worldFrom(ctx)
	parsed, err := w.Time.Time()
	if err != nil {
		return fmt.Errorf("rfc1123 %q does not parse: %w", w.Time.RFC1123, err)
	}
	return assertEqual(w.Time.Unixtime, parsed.Unix(), "rfc1123 and unixtime disagree")
}

func requestTradingPair(ctx context.Context, pair string) error {
	return worldFrom(ctx).GetAssetPairs(ctx, pair)
}

func tryRequestTradingPair(ctx context.Context, pair string) error {
	w := worldFrom(ctx)
	w.lastErr = w.GetAssetPairs(ctx, pair)
	return nil
}

func properTradingPair(ctx context.Context) error {
	w := worldFrom(ctx)
	// The pair may be requested by altname (XBTUSD) or canonical key (XXBTZUSD).
	matched := w.pair == w.TradingPair.Altname || w.pair == w.TradingPair.Key
	if err := assertTrue(matched, fmt.Sprintf("requested %q, got altname %q key %q",
		w.pair, w.TradingPair.Altname, w.TradingPair.Key)); err != nil {
		return err
	}
	return assertTrue(w.TradingPair.LotDecimals > 0, "lot_decimals missing")
}

func requestTicker(ctx context.Context, pair string) error {
	return worldFrom(ctx).GetTicker(ctx, pair)
}

func properTicker(ctx context.Context) error {
	tk := worldFrom(ctx).Ticker
	if err := assertTrue(len(tk.Ask) == 3 && len(tk.Bid) == 3, "ask/bid must have three fields"); err != nil {
		return err
	}
	if err := assertTrue(len(tk.Volume) == 2 && len(tk.Trades) == 2, "volume/trades must cover today and 24h"); err != nil {
		return err
	}
	if err := assertTrue(tk.LastPrice().IsPositive(), "last trade price must be positive"); err != nil {
		return err
	}
	return assertTrue(!tk.Spread().IsNegative(), "ask below bid")
}

func haveTwoFactorAccount(ctx context.Context) error {
	return worldFrom(ctx).Authenticate()
}

func requestOpenOrders(ctx context.Context) error {
	return worldFrom(ctx).GetOpenOrders(ctx)
}

// replayOpenOrders resends the previous request without a new nonce.
func replayOpenOrders(ctx context.Context) error {
	w := worldFrom(ctx)
	w.lastErr = w.GetOpenOrders(ctx)
	return nil
}

func listOfOpenOrders(ctx context.Context) error {
	w := worldFrom(ctx)
	if err := assertTrue(w.OpenOrders.Open != nil, "open orders missing"); err != nil {
		return err
	}
	return assertEqual(0, len(w.OpenOrders.Open), "expected no open orders")
}

func exchangeRejects(ctx context.Context, msg string) error {
	w := worldFrom(ctx)
	var apiErr *gateway.APIError
	if !errors.As(w.lastErr, &apiErr) {
		return fmt.Errorf("expected exchange error %q, got %v", msg, w.lastErr)
	}
	return assertTrue(strings.Contains(strings.Join(apiErr.Errors, ";"), msg),
		fmt.Sprintf("exchange errors %v do not contain %q", apiErr.Errors, msg))
}

// asserter collects a testify failure as an error so steps can return it.
type asserter struct {
	err error
}

func (a *asserter) Errorf(format string, args ...interface{}) {
	a.err = fmt.Errorf(format, args...)
}

func assertEqual(expected, actual interface{}, msg string) error {
	var t asserter
	assert.Equal(&t, expected, actual, msg)
	return t.err
}

func assertTrue(value bool, msg string) error {
	var t asserter
	assert.True(&t, value, msg)
	return t.err
}
