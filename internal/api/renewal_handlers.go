package api

import (
	"errors"
	"net/http"

	"github.com/ignite/lgl-sync/internal/pkg/distlock"
	"github.com/ignite/lgl-sync/internal/pkg/httputil"
)

// GetRenewalStats returns member counts by renewal management strategy.
//
//	GET /api/renewals/stats
func (h *Handlers) GetRenewalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.renewals.Statistics(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// RunRenewalPass runs a reminder pass now and returns its report.
//
//	POST /api/renewals/run
func (h *Handlers) RunRenewalPass(w http.ResponseWriter, r *http.Request) {
	report, err := h.renewals.RunPass(r.Context())
	if errors.Is(err, distlock.ErrNotAcquired) {
		httputil.Conflict(w, "a renewal pass is already running")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	h.log.Info("manual renewal pass finished", "sent", len(report.Sent), "errors", len(report.Errors))
	httputil.OK(w, report)
}
