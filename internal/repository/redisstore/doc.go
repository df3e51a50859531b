// Package redisstore keeps the shared, mutable email blocking state and the
// renewal send markers in Redis.
//
// Keys (with the configured prefix, "lgl" by default):
//
//	<prefix>:blocking:force         "1" or "0"
//	<prefix>:blocking:pause_until   RFC 3339 deadline, expires with the pause
//	<prefix>:blocking:whitelist     SET of lowercase addresses
//	<prefix>:blocking:log           JSON ring of blocked messages
//	<prefix>:renewal:sent:<marker>  one key per dispatched reminder
package redisstore

func key(prefix, suffix string) string {
	if prefix == "" {
		prefix = "lgl"
	}
	return prefix + ":" + suffix
}
