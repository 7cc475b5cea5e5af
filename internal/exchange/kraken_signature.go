package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Overridable clock for tests, in microseconds.
var timeNowMicros = func() int64 { return time.Now().UnixMicro() }

// Sign builds the API-Sign header for a Kraken private endpoint:
// base64(HMAC-SHA512(base64dec(secret), path || SHA256(nonce || body))).
// body must already carry the same nonce.
func Sign(path, body, secret, nonce string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}

	sha := sha256.New()
	sha.Write([]byte(nonce))
	sha.Write([]byte(body))

	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(path))
	mac.Write(sha.Sum(nil))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// NonceGenerator hands out strictly increasing nonces derived from the wall clock.
type NonceGenerator struct {
	mu   sync.Mutex
	last int64
}

// Next returns the current time in microseconds, bumped past the previous value
// when the clock has not moved.
func (g *NonceGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := timeNowMicros()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	return strconv.FormatInt(n, 10)
}

// Credentials holds everything an authenticated call needs. It is recomputed
// for every private request since the nonce can only be used once.
type Credentials struct {
	Nonce        string
	OTP          string
	APIKey       string
	APISignature string
}

// Body returns the urlencoded form sent with the request. Accounts without 2FA
// get "nonce=<n>" alone rather than the usual "nonce=<n>&otp=<otp>" with an
// empty otp.
func (c Credentials) Body() string {
	form := url.Values{}
	form.Set("nonce", c.Nonce)
	if c.OTP != "" {
		form.Set("otp", c.OTP)
	}
	return form.Encode()
}

// PrepareCredentials signs the form body for path with the given nonce.
func PrepareCredentials(path, apiKey, secret, otp, nonce string) (Credentials, error) {
	creds := Credentials{
		Nonce:  nonce,
		OTP:    otp,
		APIKey: apiKey,
	}
	sig, err := Sign(path, creds.Body(), secret, nonce)
	if err != nil {
		return Credentials{}, err
	}
	creds.APISignature = sig
	return creds, nil
}
