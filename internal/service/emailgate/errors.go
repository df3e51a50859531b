package emailgate

import "errors"

// Sentinel errors for the email gate.
var (
	ErrInvalidPause   = errors.New("pause duration must be between 1 minute and 7 days")
	ErrInvalidAddress = errors.New("invalid email address")
)
