package resolve

import (
	"errors"
	"fmt"
)

// ErrMalformedSpec marks a source spec without the scheme:payload separator.
var ErrMalformedSpec = errors.New("source spec must be of the form scheme:payload")

// UnsupportedSchemeError marks a scheme with no registered strategy.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("no resolution strategy registered for scheme %q", e.Scheme)
}
