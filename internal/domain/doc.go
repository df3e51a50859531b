// Package domain holds the value types passed between the order sync,
// renewal reminder and email blocking code.
//
// Orders and their lifecycle events arrive from the store. SyncRecord is the
// per-order result of pushing an order to the CRM, with the raw constituent
// and payment responses kept for support. Member and MemberRenewalState carry
// a membership's renewal date and the last reminder interval sent for the
// current cycle. EmailMessage, SendResult and BlockingStatus describe mail as
// it passes the blocking gate.
//
// Nothing here imports another internal package or holds a connection;
// methods are limited to pure checks such as SyncRecord.Validate.
package domain
