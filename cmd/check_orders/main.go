package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/newplayman/exchange-bdd-scenarios/internal/config"
	gateway "github.com/newplayman/exchange-bdd-scenarios/internal/exchange"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (optional)")
	envFile := flag.String("env", ".env", "dotenv file with credentials (optional)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.LoadConfig(*cfgPath, *envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if !cfg.HasCredentials() {
		log.Fatal().Msg("API key and secret are required")
	}

	httpCli := gateway.NewDefaultHTTPClient()
	httpCli.Timeout = cfg.Timeout()
	rest := gateway.NewKrakenRESTClient(cfg.Kraken.BaseURL, httpCli)

	creds, err := gateway.PrepareCredentials(
		gateway.PathOpenOrders,
		cfg.Kraken.APIKey,
		cfg.Kraken.APISecret,
		cfg.Kraken.OTP,
		(&gateway.NonceGenerator{}).Next(),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("sign request")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	log.Info().Str("base_url", cfg.Kraken.BaseURL).Msg("querying open orders...")
	res, err := rest.OpenOrders(ctx, creds)
	if err != nil {
		log.Fatal().Err(err).Str("type", gateway.TypeOf(err).String()).Msg("query failed")
	}
	log.Info().Int("count", len(res.Open)).Msg("open orders")

	ids := make([]string, 0, len(res.Open))
	for id := range res.Open {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		o := res.Open[id]
		fmt.Printf("Order: ID=%s Pair=%s Side=%s Type=%s Price=%s Vol=%s Exec=%s\n",
			id, o.Descr.Pair, o.Descr.Type, o.Descr.OrderType, o.Descr.Price, o.Volume, o.VolumeExec)
	}
}
