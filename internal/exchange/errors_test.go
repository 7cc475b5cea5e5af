package gateway

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyMessage(t *testing.T) {
	cases := map[string]ErrorType{
		"EAPI:Invalid nonce":         ErrorTypeNonce,
		"EAPI:Invalid key":           ErrorTypeAuth,
		"EAPI:Invalid signature":     ErrorTypeAuth,
		"EGeneral:Permission denied": ErrorTypeAuth,
		"EAPI:Rate limit exceeded":   ErrorTypeRateLimit,
		"EService:Unavailable":       ErrorTypeServer,
		"EService:Busy":              ErrorTypeServer,
		"EQuery:Unknown asset pair":  ErrorTypeUnknownPair,
		"EGeneral:Invalid arguments": ErrorTypeClient,
		"EOrder:Insufficient funds":  ErrorTypeUnknown,
		"":                           ErrorTypeUnknown,
	}
	for msg, want := range cases {
		if got := ClassifyMessage(msg); got != want {
			t.Fatalf("%q: got %s want %s", msg, got, want)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := map[int]ErrorType{
		401: ErrorTypeAuth,
		403: ErrorTypeAuth,
		429: ErrorTypeRateLimit,
		500: ErrorTypeServer,
		520: ErrorTypeServer,
		404: ErrorTypeClient,
		302: ErrorTypeUnknown,
	}
	for code, want := range cases {
		if got := ClassifyStatus(code); got != want {
			t.Fatalf("%d: got %s want %s", code, got, want)
		}
	}
}

func TestTypeOfWrapped(t *testing.T) {
	err := fmt.Errorf("scenario: %w", &APIError{Endpoint: PathTicker, Errors: []string{"EQuery:Unknown asset pair"}})
	if TypeOf(err) != ErrorTypeUnknownPair {
		t.Fatalf("unexpected type %s", TypeOf(err))
	}
	if TypeOf(errors.New("dial tcp: refused")) != ErrorTypeUnknown {
		t.Fatalf("transport errors are unclassified")
	}
	if (&APIError{}).Type() != ErrorTypeUnknown {
		t.Fatalf("empty error array should be unknown")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Endpoint: PathOpenOrders, Errors: []string{"EAPI:Invalid key", "EGeneral:Permission denied"}}
	want := "/0/private/OpenOrders: kraken error: EAPI:Invalid key; EGeneral:Permission denied"
	if err.Error() != want {
		t.Fatalf("got %q", err.Error())
	}
}
