package renewal

import "errors"

// Sentinel errors for the renewal service layer.
var (
	ErrNotFound           = errors.New("member renewal state not found")
	ErrMissingRenewalDate = errors.New("member has no renewal date")
	ErrUnknownInterval    = errors.New("not a reminder interval")
)
