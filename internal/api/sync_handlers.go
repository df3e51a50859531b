package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/httputil"
	"github.com/ignite/lgl-sync/internal/service/syncstatus"
)

// SyncListResponse is a page of sync records.
type SyncListResponse struct {
	Records []domain.SyncRecord `json:"records"`
	Total   int                 `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

// GetSyncRecord returns the sync record for one order.
//
//	GET /api/sync/{orderID}
func (h *Handlers) GetSyncRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sync.Get(r.Context(), chi.URLParam(r, "orderID"))
	switch {
	case errors.Is(err, syncstatus.ErrNotFound):
		httputil.NotFound(w, "no sync record for this order")
	case errors.Is(err, syncstatus.ErrInvalidOrderID):
		httputil.BadRequest(w, err.Error())
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, rec)
	}
}

// ListSyncRecords lists sync records newest first.
//
//	GET /api/sync?status=&limit=&offset=
func (h *Handlers) ListSyncRecords(w http.ResponseWriter, r *http.Request) {
	f := syncstatus.ListFilter{
		Status: domain.SyncStatus(r.URL.Query().Get("status")),
		Limit:  httputil.QueryInt(r, "limit", 50, 500),
		Offset: httputil.QueryInt(r, "offset", 0, 0),
	}
	records, total, err := h.sync.List(r.Context(), f)
	if errors.Is(err, syncstatus.ErrInvalidStatus) {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if records == nil {
		records = []domain.SyncRecord{}
	}
	httputil.OK(w, SyncListResponse{Records: records, Total: total, Limit: f.Limit, Offset: f.Offset})
}

// GetSyncStats returns counts per sync status.
//
//	GET /api/sync/stats
func (h *Handlers) GetSyncStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sync.Stats(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}
