// Package emailgate suppresses outgoing email outside production.
//
// Every message passes through Gate.ShouldBlock before delivery. The first
// matching rule wins:
//
//  1. the admin address and whitelisted addresses are never blocked
//  2. an unexpired temporary pause allows everything
//  3. the force-blocking override blocks
//  4. a development environment blocks
//  5. otherwise the message is allowed
//
// Blocked messages are recorded in a bounded log (newest entries evict the
// oldest). The mutable settings and the log live behind Settings and
// BlockedLog so that every process sees the same state.
package emailgate
