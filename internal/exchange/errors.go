package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType classifies REST failures.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAuth
	ErrorTypeNonce
	ErrorTypeRateLimit
	ErrorTypeServer
	ErrorTypeClient
	ErrorTypeUnknownPair
)

// String returns the label used in logs and metrics.
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeAuth:
		return "auth_error"
	case ErrorTypeNonce:
		return "invalid_nonce"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeServer:
		return "server_error"
	case ErrorTypeClient:
		return "client_error"
	case ErrorTypeUnknownPair:
		return "unknown_pair"
	default:
		return "unknown"
	}
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Type classifies the status code.
func (e *HTTPError) Type() ErrorType {
	return ClassifyStatus(e.StatusCode)
}

// APIError carries a non-empty error array from the response envelope.
type APIError struct {
	Endpoint string
	Errors   []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: kraken error: %s", e.Endpoint, strings.Join(e.Errors, "; "))
}

// Type classifies the first reported error.
func (e *APIError) Type() ErrorType {
	if len(e.Errors) == 0 {
		return ErrorTypeUnknown
	}
	return ClassifyMessage(e.Errors[0])
}

// ClassifyStatus maps an HTTP status code to an ErrorType.
func ClassifyStatus(statusCode int) ErrorType {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServer
	case statusCode >= 400:
		return ErrorTypeClient
	default:
		return ErrorTypeUnknown
	}
}

// ClassifyMessage maps a Kraken "<severity><category>:<message>" string to an ErrorType.
func ClassifyMessage(msg string) ErrorType {
	switch {
	case strings.HasPrefix(msg, "EAPI:Invalid nonce"):
		return ErrorTypeNonce
	case strings.HasPrefix(msg, "EAPI:Invalid key"),
		strings.HasPrefix(msg, "EAPI:Invalid signature"),
		strings.HasPrefix(msg, "EGeneral:Permission denied"):
		return ErrorTypeAuth
	case strings.HasPrefix(msg, "EAPI:Rate limit exceeded"),
		strings.HasPrefix(msg, "EOrder:Rate limit exceeded"):
		return ErrorTypeRateLimit
	case strings.HasPrefix(msg, "EService:"):
		return ErrorTypeServer
	case strings.HasPrefix(msg, "EQuery:Unknown asset pair"):
		return ErrorTypeUnknownPair
	case strings.HasPrefix(msg, "EGeneral:Invalid arguments"):
		return ErrorTypeClient
	default:
		return ErrorTypeUnknown
	}
}

// TypeOf classifies any error returned by the client. Transport and decode
// failures come back as ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type()
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Type()
	}
	return ErrorTypeUnknown
}

// ErrPairNotFound is returned when a result map has no entry for the requested pair.
var ErrPairNotFound = errors.New("pair not found in result")
