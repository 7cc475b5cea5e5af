package scenario

import (
	"context"
	"errors"
	"fmt"

	gateway "github.com/newplayman/exchange-bdd-scenarios/internal/exchange"
)

// Settings is the explicit per-run input of the suite.
type Settings struct {
	APIKey    string
	APISecret string // base64
	OTP       string
	Pair      string
}

// HasCredentials reports whether private scenarios can run.
func (s Settings) HasCredentials() bool {
	return s.APIKey != "" && s.APISecret != ""
}

var errNoCredentials = errors.New("no API credentials configured")

// ExchangeWorld is the state of one scenario. Each scenario gets a fresh one.
type ExchangeWorld struct {
	api      gateway.Exchange
	settings Settings
	nonces   *gateway.NonceGenerator

	Credentials gateway.Credentials
	Time        gateway.ServerTime
	TradingPair gateway.AssetPair
	Ticker      gateway.TickerInfo
	OpenOrders  gateway.OpenOrdersResult

	// requested pair of the last pair/ticker call
	pair string
	// error of the last "try" step
	lastErr error
}

// NewExchangeWorld returns a zeroed world. nonces is shared across worlds of a
// run so nonces stay increasing for the same key.
func NewExchangeWorld(api gateway.Exchange, settings Settings, nonces *gateway.NonceGenerator) *ExchangeWorld {
	if nonces == nil {
		nonces = &gateway.NonceGenerator{}
	}
	return &ExchangeWorld{
		api:      api,
		settings: settings,
		nonces:   nonces,
	}
}

// GetServerTime requests /0/public/Time.
func (w *ExchangeWorld) GetServerTime(ctx context.Context) error {
	st, err := w.api.ServerTime(ctx)
	if err != nil {
		return fmt.Errorf("server time: %w", err)
	}
	w.Time = st
	return nil
}

// GetAssetPairs requests trading pair info for pair.
func (w *ExchangeWorld) GetAssetPairs(ctx context.Context, pair string) error {
	w.pair = pair
	info, err := w.api.AssetPairs(ctx, pair)
	if err != nil {
		return fmt.Errorf("asset pairs %s: %w", pair, err)
	}
	w.TradingPair = info
	return nil
}

// GetTicker requests the ticker for pair.
func (w *ExchangeWorld) GetTicker(ctx context.Context, pair string) error {
	w.pair = pair
	tk, err := w.api.Ticker(ctx, pair)
	if err != nil {
		return fmt.Errorf("ticker %s: %w", pair, err)
	}
	w.Ticker = tk
	return nil
}

// Authenticate draws a fresh nonce and signs the OpenOrders body.
func (w *ExchangeWorld) Authenticate() error {
	if !w.settings.HasCredentials() {
		return errNoCredentials
	}
	creds, err := gateway.PrepareCredentials(
		gateway.PathOpenOrders,
		w.settings.APIKey,
		w.settings.APISecret,
		w.settings.OTP,
		w.nonces.Next(),
	)
	if err != nil {
		return fmt.Errorf("sign open orders: %w", err)
	}
	w.Credentials = creds
	return nil
}

// GetOpenOrders requests the open orders with the current credentials.
func (w *ExchangeWorld) GetOpenOrders(ctx context.Context) error {
	if w.Credentials.APISignature == "" {
		return errors.New("open orders requested before authenticating")
	}
	res, err := w.api.OpenOrders(ctx, w.Credentials)
	if err != nil {
		return fmt.Errorf("open orders: %w", err)
	}
	w.OpenOrders = res
	return nil
}
