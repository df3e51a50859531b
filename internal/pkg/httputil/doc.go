// Package httputil provides shared HTTP response/request helpers for handlers.
//
// Handlers use these instead of writing raw http.ResponseWriter calls so that
// JSON formatting, error envelopes, and error logging stay consistent.
package httputil
