package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthentication  = errors.New("authentication failed")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInsert          = errors.New("record insertion failed")
	ErrMarketData      = errors.New("market data fetch failed")
	ErrMalformedCandle = errors.New("malformed candle")
)

// StatusError reports an unexpected HTTP status from a remote service.
// It unwraps to Kind, one of the sentinel errors above.
type StatusError struct {
	Kind       error
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", e.Kind, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}
