package krakenfake

import "encoding/json"

// XBTUSD as served by /0/public/AssetPairs?pair=XBTUSD.
const assetPairXBTUSD = `{
  "altname": "XBTUSD",
  "wsname": "XBT/USD",
  "aclass_base": "currency",
  "base": "XXBT",
  "aclass_quote": "currency",
  "quote": "ZUSD",
  "lot": "unit",
  "cost_decimals": 5,
  "pair_decimals": 1,
  "lot_decimals": 8,
  "lot_multiplier": 1,
  "leverage_buy": [2, 3, 4, 5],
  "leverage_sell": [2, 3, 4, 5],
  "fees": [[0, 0.26], [50000, 0.24], [100000, 0.22]],
  "fees_maker": [[0, 0.16], [50000, 0.14], [100000, 0.12]],
  "fee_volume_currency": "ZUSD",
  "margin_call": 80,
  "margin_stop": 40,
  "ordermin": "0.0001",
  "costmin": "0.5",
  "tick_size": "0.1",
  "status": "online"
}`

// XBTUSD as served by /0/public/Ticker?pair=XBTUSD.
const tickerXBTUSD = `{
  "a": ["30300.10000", "1", "1.000"],
  "b": ["30300.00000", "1", "1.000"],
  "c": ["30303.20000", "0.00067643"],
  "v": ["4083.67001100", "4412.73601799"],
  "p": ["30706.77771", "30689.13205"],
  "t": [34619, 38907],
  "l": ["29868.30000", "29868.30000"],
  "h": ["31631.00000", "31631.00000"],
  "o": "30502.80000"
}`

// Pair is one tradable pair known to the fake exchange.
type Pair struct {
	Key       string
	Altname   string
	AssetPair json.RawMessage
	Ticker    json.RawMessage
}

// DefaultPairs returns the pairs served when none are configured.
func DefaultPairs() []Pair {
	return []Pair{{
		Key:       "XXBTZUSD",
		Altname:   "XBTUSD",
		AssetPair: json.RawMessage(assetPairXBTUSD),
		Ticker:    json.RawMessage(tickerXBTUSD),
	}}
}
