// Package krakenfake serves a small subset of the Kraken REST API from
// fixtures. Private calls are authenticated the way the exchange does it, so
// a wrong signature, key, OTP or a replayed nonce is rejected.
package krakenfake

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	gateway "github.com/newplayman/exchange-bdd-scenarios/internal/exchange"
)

// Options configures a fake exchange.
type Options struct {
	APIKey    string
	APISecret string // base64
	OTP       string
	Pairs     []Pair
	// OpenOrders is returned as the "open" map; empty when nil.
	OpenOrders map[string]json.RawMessage
	// Now drives /0/public/Time; time.Now when nil.
	Now func() time.Time
}

// Server is a running fake exchange.
type Server struct {
	*httptest.Server

	opts Options

	mu         sync.Mutex
	lastNonce  map[string]uint64
	privateHit int
}

// NewServer starts a fake exchange. Call Close when done.
func NewServer(opts Options) *Server {
	if len(opts.Pairs) == 0 {
		opts.Pairs = DefaultPairs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		opts:      opts,
		lastNonce: make(map[string]uint64),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(gateway.PathServerTime, s.handleTime)
	mux.HandleFunc(gateway.PathAssetPairs, s.handleAssetPairs)
	mux.HandleFunc(gateway.PathTicker, s.handleTicker)
	mux.HandleFunc(gateway.PathOpenOrders, s.handleOpenOrders)
	s.Server = httptest.NewServer(mux)
	return s
}

// PrivateCalls returns how many private requests passed authentication.
func (s *Server) PrivateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.privateHit
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	now := s.opts.Now().UTC().Truncate(time.Second)
	writeResult(w, gateway.ServerTime{
		Unixtime: now.Unix(),
		RFC1123:  now.Format(gateway.RFC1123Layout),
	})
}

func (s *Server) handleAssetPairs(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(r.URL.Query().Get("pair"))
	if !ok {
		writeError(w, "EQuery:Unknown asset pair")
		return
	}
	writeResult(w, map[string]json.RawMessage{p.Key: p.AssetPair})
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(r.URL.Query().Get("pair"))
	if !ok {
		writeError(w, "EQuery:Unknown asset pair")
		return
	}
	writeResult(w, map[string]json.RawMessage{p.Key: p.Ticker})
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("API-Key") != s.opts.APIKey {
		writeError(w, "EAPI:Invalid key")
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	body := string(raw)
	form, err := url.ParseQuery(body)
	if err != nil {
		writeError(w, "EGeneral:Invalid arguments")
		return
	}
	nonceStr := form.Get("nonce")
	nonce, err := strconv.ParseUint(nonceStr, 10, 64)
	if err != nil {
		writeError(w, "EAPI:Invalid nonce")
		return
	}
	want, err := gateway.Sign(r.URL.Path, body, s.opts.APISecret, nonceStr)
	if err != nil || r.Header.Get("API-Sign") != want {
		writeError(w, "EAPI:Invalid signature")
		return
	}

	s.mu.Lock()
	if nonce <= s.lastNonce[s.opts.APIKey] {
		s.mu.Unlock()
		writeError(w, "EAPI:Invalid nonce")
		return
	}
	s.lastNonce[s.opts.APIKey] = nonce
	s.mu.Unlock()

	if s.opts.OTP != "" && form.Get("otp") != s.opts.OTP {
		writeError(w, "EGeneral:Permission denied")
		return
	}

	s.mu.Lock()
	s.privateHit++
	s.mu.Unlock()

	open := s.opts.OpenOrders
	if open == nil {
		open = map[string]json.RawMessage{}
	}
	writeResult(w, map[string]any{"open": open})
}

func (s *Server) lookup(pair string) (Pair, bool) {
	for _, p := range s.opts.Pairs {
		if p.Key == pair || p.Altname == pair {
			return p, true
		}
	}
	return Pair{}, false
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"error":  []string{},
		"result": result,
	})
}

func writeError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"error": []string{msg},
	})
}
