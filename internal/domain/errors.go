package domain

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is reported when the sender is not on the allow-list.
var ErrUnauthorized = errors.New("sender not authorized")

// DeliveryError wraps a failed outbound send.
type DeliveryError struct {
	Transport string
	To        string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s to %s: %v", e.Transport, e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
