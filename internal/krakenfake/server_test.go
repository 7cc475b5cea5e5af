package krakenfake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	gateway "github.com/newplayman/exchange-bdd-scenarios/internal/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fakeKey    = "key"
	fakeSecret = "bm9uY2U="
	fakeOTP    = "123456"
)

func newFake(t *testing.T, opts Options) (*Server, *gateway.KrakenRESTClient) {
	t.Helper()
	srv := NewServer(opts)
	t.Cleanup(srv.Close)
	return srv, gateway.NewKrakenRESTClient(srv.URL, srv.Client())
}

func defaultFake(t *testing.T) (*Server, *gateway.KrakenRESTClient) {
	return newFake(t, Options{APIKey: fakeKey, APISecret: fakeSecret, OTP: fakeOTP})
}

func creds(t *testing.T, key, secret, otp, nonce string) gateway.Credentials {
	t.Helper()
	c, err := gateway.PrepareCredentials(gateway.PathOpenOrders, key, secret, otp, nonce)
	require.NoError(t, err)
	return c
}

func requireKrakenError(t *testing.T, err error, msg string) {
	t.Helper()
	var apiErr *gateway.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, []string{msg}, apiErr.Errors)
}

func TestServerTime(t *testing.T) {
	now := time.Date(2021, 3, 21, 14, 23, 14, 500, time.UTC)
	_, cli := newFake(t, Options{Now: func() time.Time { return now }})

	st, err := cli.ServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1616336594), st.Unixtime)
	assert.Equal(t, "Sun, 21 Mar 21 14:23:14 +0000", st.RFC1123)

	parsed, err := st.Time()
	require.NoError(t, err)
	assert.Equal(t, st.Unixtime, parsed.Unix())
}

func TestPublicMarketData(t *testing.T) {
	_, cli := defaultFake(t)
	ctx := context.Background()

	for _, name := range []string{"XBTUSD", "XXBTZUSD"} {
		pair, err := cli.AssetPairs(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, "XBTUSD", pair.Altname)
		assert.Greater(t, pair.LotDecimals, 0)

		tk, err := cli.Ticker(ctx, name)
		require.NoError(t, err, name)
		assert.Len(t, tk.Ask, 3)
		assert.Len(t, tk.Bid, 3)
		assert.True(t, tk.LastPrice().IsPositive())
		assert.False(t, tk.Spread().IsNegative())
	}
}

func TestUnknownPair(t *testing.T) {
	_, cli := defaultFake(t)

	_, err := cli.AssetPairs(context.Background(), "NOPEUSD")
	requireKrakenError(t, err, "EQuery:Unknown asset pair")
	assert.Equal(t, gateway.ErrorTypeUnknownPair, gateway.TypeOf(err))

	_, err = cli.Ticker(context.Background(), "NOPEUSD")
	requireKrakenError(t, err, "EQuery:Unknown asset pair")
}

func TestOpenOrdersAuthenticated(t *testing.T) {
	srv, cli := defaultFake(t)

	res, err := cli.OpenOrders(context.Background(), creds(t, fakeKey, fakeSecret, fakeOTP, "1"))
	require.NoError(t, err)
	assert.NotNil(t, res.Open)
	assert.Empty(t, res.Open)
	assert.Equal(t, 1, srv.PrivateCalls())
}

func TestOpenOrdersReturnsConfiguredOrders(t *testing.T) {
	_, cli := newFake(t, Options{
		APIKey:    fakeKey,
		APISecret: fakeSecret,
		OpenOrders: map[string]json.RawMessage{
			"OQCLML-BW3P3-BUCMWZ": json.RawMessage(`{"status":"open","vol":"1.25","vol_exec":"0.37","descr":{"pair":"XBTUSD","type":"buy","ordertype":"limit","price":"30010.0"}}`),
		},
	})

	res, err := cli.OpenOrders(context.Background(), creds(t, fakeKey, fakeSecret, "", "1"))
	require.NoError(t, err)
	require.Contains(t, res.Open, "OQCLML-BW3P3-BUCMWZ")
	order := res.Open["OQCLML-BW3P3-BUCMWZ"]
	assert.Equal(t, "open", order.Status)
	assert.Equal(t, "XBTUSD", order.Descr.Pair)
}

func TestOpenOrdersRejections(t *testing.T) {
	cases := []struct {
		name  string
		creds gateway.Credentials
		want  string
	}{
		{"wrong key", creds(t, "other", fakeSecret, fakeOTP, "1"), "EAPI:Invalid key"},
		{"wrong secret", creds(t, fakeKey, "bm9uY2Y=", fakeOTP, "1"), "EAPI:Invalid signature"},
		{"wrong otp", creds(t, fakeKey, fakeSecret, "654321", "1"), "EGeneral:Permission denied"},
		{"missing otp", creds(t, fakeKey, fakeSecret, "", "1"), "EGeneral:Permission denied"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, cli := defaultFake(t)
			_, err := cli.OpenOrders(context.Background(), tc.creds)
			requireKrakenError(t, err, tc.want)
			assert.Equal(t, 0, srv.PrivateCalls())
		})
	}
}

func TestOpenOrdersTamperedSignature(t *testing.T) {
	_, cli := defaultFake(t)

	c := creds(t, fakeKey, fakeSecret, fakeOTP, "1")
	c.Nonce = "2"
	_, err := cli.OpenOrders(context.Background(), c)
	requireKrakenError(t, err, "EAPI:Invalid signature")
	assert.Equal(t, gateway.ErrorTypeAuth, gateway.TypeOf(err))
}

func TestOpenOrdersNonceReplay(t *testing.T) {
	srv, cli := defaultFake(t)
	ctx := context.Background()

	c := creds(t, fakeKey, fakeSecret, fakeOTP, "5")
	_, err := cli.OpenOrders(ctx, c)
	require.NoError(t, err)

	_, err = cli.OpenOrders(ctx, c)
	requireKrakenError(t, err, "EAPI:Invalid nonce")
	assert.Equal(t, gateway.ErrorTypeNonce, gateway.TypeOf(err))

	_, err = cli.OpenOrders(ctx, creds(t, fakeKey, fakeSecret, fakeOTP, "4"))
	requireKrakenError(t, err, "EAPI:Invalid nonce")

	_, err = cli.OpenOrders(ctx, creds(t, fakeKey, fakeSecret, fakeOTP, "6"))
	require.NoError(t, err)
	assert.Equal(t, 2, srv.PrivateCalls())
}

func TestOpenOrdersRequiresPost(t *testing.T) {
	srv, _ := defaultFake(t)

	resp, err := srv.Client().Get(srv.URL + gateway.PathOpenOrders)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestOpenOrdersNonNumericNonce(t *testing.T) {
	srv, _ := defaultFake(t)

	form := url.Values{"nonce": {"abc"}}
	req, err := http.NewRequest(http.MethodPost, srv.URL+gateway.PathOpenOrders, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("API-Key", fakeKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env struct {
		Error []string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, []string{"EAPI:Invalid nonce"}, env.Error)
}
