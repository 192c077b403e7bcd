package core

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCode          = errors.New("missing authorization code")
	ErrExchangeFailed       = errors.New("token exchange failed")
	ErrMalformedToken       = errors.New("malformed identity token")
	ErrInvalidSession       = errors.New("invalid session")
	ErrPendingLoginNotFound = errors.New("pending login not found")
	ErrPendingStoreFull     = errors.New("pending login store is full")
)

// ExchangeError is returned when the provider's token endpoint answers with a
// non-success status
type ExchangeError struct {
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrExchangeFailed, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrExchangeFailed) match any ExchangeError
func (e *ExchangeError) Is(target error) bool {
	return target == ErrExchangeFailed
}
