// Package renewal decides who gets a membership renewal reminder and when.
//
// Each member is either host-managed (the store's subscription system owns
// renewal) or plugin-managed (we track the renewal date ourselves). Only
// plugin-managed members receive reminders. Classification is recomputed on
// every call, never cached.
//
// Reminders are due at fixed day offsets from the renewal date. DueInterval
// is a pure function of the persisted state and the current time; Runner
// wraps it with a per-member distributed lock and a send marker so that a
// member receives at most one reminder per interval per renewal cycle.
package renewal
