package search

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrInvalidQuery     = errors.New("query is empty")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidOption    = errors.New("invalid option")
	ErrUnknownBackend   = errors.New("unknown backend")
	ErrNoIdentityFields = errors.New("aggregator needs at least one identity field")
	ErrNoIdentityField  = errors.New("record has no identity field")
	ErrTimeout          = errors.New("search timed out")
	ErrNoResults        = errors.New("no results found")
)

// EngineError is a failure of a single backend call.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err was caused by a deadline or a network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
