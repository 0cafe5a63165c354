// backend/src/services/interfaces.go
package services

import (
	"context"
	"errors"
	"time"
)

// Common service errors.
var (
	ErrParsingFailed  = errors.New("file parsing failed")
	ErrNoFiles        = errors.New("no files registered for ingestion")
	ErrUnknownAccount = errors.New("account is not registered")
)

// RateSource converts currencies at a historical date. Implemented by
// processors.RateClient; stubbed in tests.
type RateSource interface {
	Rate(ctx context.Context, date time.Time, from, to string) (float64, error)
}
