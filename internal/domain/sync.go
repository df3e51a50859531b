package domain

import (
	"errors"
	"time"
)

// SyncStatus describes how completely an order reached the CRM.
type SyncStatus string

const (
	SyncUnsynced SyncStatus = "unsynced"
	SyncPartial  SyncStatus = "partial"
	SyncSynced   SyncStatus = "synced"
)

// Valid reports whether s is one of the known statuses.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncUnsynced, SyncPartial, SyncSynced:
		return true
	}
	return false
}

// MatchMethod records how a constituent was found (or created) in the CRM.
type MatchMethod string

const (
	MatchEmail  MatchMethod = "email"
	MatchName   MatchMethod = "name"
	MatchManual MatchMethod = "manual"
	MatchNone   MatchMethod = "none"
)

// ConstituentResult is the outcome of matching or creating a constituent.
// On failure Raw carries whatever diagnostic payload the CRM (or transport)
// produced, verbatim.
type ConstituentResult struct {
	Success       bool        `json:"success"`
	ConstituentID string      `json:"constituent_id,omitempty"`
	MatchMethod   MatchMethod `json:"match_method"`
	MatchedEmail  string      `json:"matched_email,omitempty"`
	Raw           []byte      `json:"-"`
}

// PaymentResult is the outcome of recording a payment (gift) in the CRM.
type PaymentResult struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"payment_id,omitempty"`
	Raw       []byte `json:"-"`
}

// SyncRecord is the single per-order synchronization record. It is
// overwritten on every reconciliation of the same order.
type SyncRecord struct {
	OrderID                string      `json:"order_id" db:"order_id"`
	Status                 SyncStatus  `json:"status" db:"status"`
	ConstituentID          *string     `json:"constituent_id" db:"constituent_id"`
	MatchMethod            MatchMethod `json:"match_method" db:"match_method"`
	MatchedEmail           *string     `json:"matched_email" db:"matched_email"`
	PaymentID              *string     `json:"payment_id" db:"payment_id"`
	ConstituentResponseRaw string      `json:"constituent_response_raw" db:"constituent_response_raw"`
	PaymentResponseRaw     string      `json:"payment_response_raw" db:"payment_response_raw"`
	SyncedAt               time.Time   `json:"synced_at" db:"synced_at"`
}

// Errors reported by SyncRecord.Validate.
var (
	ErrSyncMissingOrderID = errors.New("sync record: order id is required")
	ErrSyncBadStatus      = errors.New("sync record: status does not match external ids")
)

// Validate checks that Status agrees with which external ids are present:
// synced needs both, partial exactly one, unsynced neither.
func (r SyncRecord) Validate() error {
	if r.OrderID == "" {
		return ErrSyncMissingOrderID
	}
	present := 0
	if r.ConstituentID != nil && *r.ConstituentID != "" {
		present++
	}
	if r.PaymentID != nil && *r.PaymentID != "" {
		present++
	}
	var want SyncStatus
	switch present {
	case 2:
		want = SyncSynced
	case 1:
		want = SyncPartial
	default:
		want = SyncUnsynced
	}
	if r.Status != want {
		return ErrSyncBadStatus
	}
	return nil
}

// SyncStats counts sync records by status.
type SyncStats struct {
	Total    int `json:"total"`
	Synced   int `json:"synced"`
	Partial  int `json:"partial"`
	Unsynced int `json:"unsynced"`
}
