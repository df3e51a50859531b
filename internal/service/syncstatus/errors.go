package syncstatus

import "errors"

// Sentinel errors for the sync status service layer.
var (
	ErrNotFound       = errors.New("sync record not found")
	ErrInvalidOrderID = errors.New("order id is required")
	ErrInvalidStatus  = errors.New("unknown sync status")
)
