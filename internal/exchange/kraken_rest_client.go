package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newplayman/exchange-bdd-scenarios/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	KrakenRestEndpoint = "https://api.kraken.com"

	PathServerTime = "/0/public/Time"
	PathAssetPairs = "/0/public/AssetPairs"
	PathTicker     = "/0/public/Ticker"
	PathOpenOrders = "/0/private/OpenOrders"
)

// KrakenRESTClient issues single, unretried calls against the Kraken REST API.
// HTTPClient can be pointed at an httptest server.
type KrakenRESTClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

var _ Exchange = (*KrakenRESTClient)(nil)

// NewKrakenRESTClient builds a client against baseURL, falling back to the
// public endpoint and a default http.Client.
func NewKrakenRESTClient(baseURL string, httpCli *http.Client) *KrakenRESTClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = KrakenRestEndpoint
	}
	if httpCli == nil {
		httpCli = NewDefaultHTTPClient()
	}
	return &KrakenRESTClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpCli,
	}
}

// NewDefaultHTTPClient returns an http.Client with a timeout.
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// ServerTime calls /0/public/Time.
func (c *KrakenRESTClient) ServerTime(ctx context.Context) (ServerTime, error) {
	var out envelope[ServerTime]
	if err := c.get(ctx, PathServerTime, nil, &out); err != nil {
		return ServerTime{}, err
	}
	return out.Result, nil
}

// AssetPairs calls /0/public/AssetPairs for a single pair.
func (c *KrakenRESTClient) AssetPairs(ctx context.Context, pair string) (AssetPair, error) {
	var out envelope[map[string]AssetPair]
	if err := c.get(ctx, PathAssetPairs, url.Values{"pair": {pair}}, &out); err != nil {
		return AssetPair{}, err
	}
	key, info, err := pickPair(out.Result, pair, func(p AssetPair) string { return p.Altname })
	if err != nil {
		return AssetPair{}, err
	}
	info.Key = key
	return info, nil
}

// Ticker calls /0/public/Ticker for a single pair.
func (c *KrakenRESTClient) Ticker(ctx context.Context, pair string) (TickerInfo, error) {
	var out envelope[map[string]TickerInfo]
	if err := c.get(ctx, PathTicker, url.Values{"pair": {pair}}, &out); err != nil {
		return TickerInfo{}, err
	}
	_, tk, err := pickPair(out.Result, pair, nil)
	return tk, err
}

// OpenOrders calls /0/private/OpenOrders with pre-signed credentials.
func (c *KrakenRESTClient) OpenOrders(ctx context.Context, creds Credentials) (OpenOrdersResult, error) {
	headers := map[string]string{
		"API-Key":      creds.APIKey,
		"API-Sign":     creds.APISignature,
		"Content-Type": "application/x-www-form-urlencoded",
	}
	var out envelope[OpenOrdersResult]
	if err := c.do(ctx, http.MethodPost, PathOpenOrders, nil, headers, creds.Body(), &out); err != nil {
		return OpenOrdersResult{}, err
	}
	if out.Result.Open == nil {
		out.Result.Open = map[string]OpenOrder{}
	}
	return out.Result, nil
}

// pickPair selects the entry for pair from a result keyed by Kraken's canonical
// name and returns it with its key. altname may be nil when the entry does not
// carry one.
func pickPair[T any](result map[string]T, pair string, altname func(T) string) (string, T, error) {
	var zero T
	if v, ok := result[pair]; ok {
		return pair, v, nil
	}
	if altname != nil {
		for k, v := range result {
			if altname(v) == pair {
				return k, v, nil
			}
		}
	}
	if len(result) == 1 {
		for k, v := range result {
			return k, v, nil
		}
	}
	return "", zero, fmt.Errorf("%s: %w", pair, ErrPairNotFound)
}

func (c *KrakenRESTClient) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, "", out)
}

// do sends one request and decodes the envelope into out. A non-empty error
// array is returned as *APIError.
func (c *KrakenRESTClient) do(ctx context.Context, method, path string, query url.Values, headers map[string]string, body string, out any) (err error) {
	if c == nil || c.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	start := time.Now()
	defer func() {
		metrics.ObserveAPILatency(path, time.Since(start))
		if err != nil {
			metrics.RecordError(path, TypeOf(err).String())
		}
	}()

	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("kraken request")

	if resp.StatusCode >= 300 {
		return &HTTPError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	// Decode the error array first so a failing call with a malformed result
	// still reports the exchange error.
	var head struct {
		Error []string `json:"error"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if len(head.Error) > 0 {
		return &APIError{Endpoint: path, Errors: head.Error}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
