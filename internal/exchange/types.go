package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Exchange is the subset of the Kraken REST API the scenarios drive.
type Exchange interface {
	ServerTime(ctx context.Context) (ServerTime, error)
	AssetPairs(ctx context.Context, pair string) (AssetPair, error)
	Ticker(ctx context.Context, pair string) (TickerInfo, error)
	OpenOrders(ctx context.Context, creds Credentials) (OpenOrdersResult, error)
}

// envelope wraps every Kraken response.
type envelope[T any] struct {
	Error  []string `json:"error"`
	Result T        `json:"result"`
}

// RFC1123Layout matches the rfc1123 field of /0/public/Time, e.g.
// "Sun, 21 Mar 21 14:23:14 +0000".
const RFC1123Layout = "Mon, 2 Jan 06 15:04:05 -0700"

// ServerTime /0/public/Time
type ServerTime struct {
	Unixtime int64  `json:"unixtime"`
	RFC1123  string `json:"rfc1123"`
}

// ParseRFC1123 parses the formatted server time.
func ParseRFC1123(s string) (time.Time, error) {
	return time.Parse(RFC1123Layout, s)
}

// Time returns the formatted field as a time.Time.
func (t ServerTime) Time() (time.Time, error) {
	return ParseRFC1123(t.RFC1123)
}

// AssetPair is one entry of /0/public/AssetPairs.
type AssetPair struct {
	// Key is the canonical name the result was keyed by, e.g. XXBTZUSD.
	Key string `json:"-"`

	Altname           string              `json:"altname"`
	WSName            string              `json:"wsname"`
	AclassBase        string              `json:"aclass_base"`
	Base              string              `json:"base"`
	AclassQuote       string              `json:"aclass_quote"`
	Quote             string              `json:"quote"`
	Lot               string              `json:"lot"`
	CostDecimals      int                 `json:"cost_decimals"`
	PairDecimals      int                 `json:"pair_decimals"`
	LotDecimals       int                 `json:"lot_decimals"`
	LotMultiplier     int                 `json:"lot_multiplier"`
	LeverageBuy       []int               `json:"leverage_buy"`
	LeverageSell      []int               `json:"leverage_sell"`
	Fees              [][]decimal.Decimal `json:"fees"`
	FeesMaker         [][]decimal.Decimal `json:"fees_maker"`
	FeeVolumeCurrency string              `json:"fee_volume_currency"`
	MarginCall        int                 `json:"margin_call"`
	MarginStop        int                 `json:"margin_stop"`
	OrderMin          decimal.Decimal     `json:"ordermin"`
	CostMin           decimal.NullDecimal `json:"costmin"`
	TickSize          decimal.NullDecimal `json:"tick_size"`
	Status            string              `json:"status"`
}

// TickerInfo is one entry of /0/public/Ticker. Array fields follow Kraken's
// layout: a/b are [price, whole lot volume, lot volume], c is [price, lot volume],
// v/p/t/l/h are [today, last 24 hours].
type TickerInfo struct {
	Ask       []decimal.Decimal `json:"a"`
	Bid       []decimal.Decimal `json:"b"`
	LastTrade []decimal.Decimal `json:"c"`
	Volume    []decimal.Decimal `json:"v"`
	VWAP      []decimal.Decimal `json:"p"`
	Trades    []int64           `json:"t"`
	Low       []decimal.Decimal `json:"l"`
	High      []decimal.Decimal `json:"h"`
	Open      decimal.Decimal   `json:"o"`
}

// LastPrice returns the last trade price, zero when absent.
func (t TickerInfo) LastPrice() decimal.Decimal {
	if len(t.LastTrade) == 0 {
		return decimal.Zero
	}
	return t.LastTrade[0]
}

// Spread returns best ask minus best bid, zero when either side is missing.
func (t TickerInfo) Spread() decimal.Decimal {
	if len(t.Ask) == 0 || len(t.Bid) == 0 {
		return decimal.Zero
	}
	return t.Ask[0].Sub(t.Bid[0])
}

// OrderDescription describes an order in human terms.
type OrderDescription struct {
	Pair      string `json:"pair"`
	Type      string `json:"type"`
	OrderType string `json:"ordertype"`
	Price     string `json:"price"`
	Price2    string `json:"price2"`
	Leverage  string `json:"leverage"`
	Order     string `json:"order"`
	Close     string `json:"close"`
}

// OpenOrder is a single entry of /0/private/OpenOrders.
type OpenOrder struct {
	RefID      *string          `json:"refid"`
	UserRef    int64            `json:"userref"`
	Status     string           `json:"status"`
	OpenTime   float64          `json:"opentm"`
	StartTime  float64          `json:"starttm"`
	ExpireTime float64          `json:"expiretm"`
	Descr      OrderDescription `json:"descr"`
	Volume     decimal.Decimal  `json:"vol"`
	VolumeExec decimal.Decimal  `json:"vol_exec"`
	Cost       decimal.Decimal  `json:"cost"`
	Fee        decimal.Decimal  `json:"fee"`
	Price      decimal.Decimal  `json:"price"`
	StopPrice  decimal.Decimal  `json:"stopprice"`
	LimitPrice decimal.Decimal  `json:"limitprice"`
	Misc       string           `json:"misc"`
	OFlags     string           `json:"oflags"`
}

// OpenOrdersResult maps transaction ids to open orders.
type OpenOrdersResult struct {
	Open map[string]OpenOrder `json:"open"`
}
