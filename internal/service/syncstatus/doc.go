// Package syncstatus tracks how completely each store order reached the CRM.
//
// Every order has at most one SyncRecord. Reconcile derives the record from
// the constituent and payment outcomes of a sync attempt and overwrites
// whatever was stored before, so a redelivered webhook simply replaces the
// previous result. CRM failures are data here, never errors: they end up as
// an unsynced or partial status with the raw response kept for audit.
//
// The service layer depends only on the Repository interface defined in
// repository.go and never imports net/http or database/sql directly.
package syncstatus
