package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/httputil"
	"github.com/ignite/lgl-sync/internal/service/emailgate"
)

const maxWhitelistBytes = 1 << 20

// PauseRequest is the body of POST /api/blocking/pause.
type PauseRequest struct {
	Minutes int `json:"minutes"`
}

// ForceRequest is the body of PUT /api/blocking/force.
type ForceRequest struct {
	Enabled bool `json:"enabled"`
}

// GetBlockingStatus reports whether outgoing mail is being blocked and why.
//
//	GET /api/blocking/status
func (h *Handlers) GetBlockingStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.blocking.Status(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, status)
}

// PauseBlocking lets mail through for the requested number of minutes.
//
//	POST /api/blocking/pause
func (h *Handlers) PauseBlocking(w http.ResponseWriter, r *http.Request) {
	var req PauseRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	d, err := emailgate.PauseMinutes(req.Minutes)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	until, err := h.blocking.Pause(r.Context(), d)
	if errors.Is(err, emailgate.ErrInvalidPause) {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]time.Time{"pause_until": until})
}

// ResumeBlocking ends a pause early.
//
//	DELETE /api/blocking/pause
func (h *Handlers) ResumeBlocking(w http.ResponseWriter, r *http.Request) {
	if err := h.blocking.Resume(r.Context()); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// SetForceBlocking turns the force-blocking override on or off.
//
//	PUT /api/blocking/force
func (h *Handlers) SetForceBlocking(w http.ResponseWriter, r *http.Request) {
	var req ForceRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.blocking.SetForceBlocking(r.Context(), req.Enabled); err != nil {
		httputil.InternalError(w, err)
		return
	}
	h.GetBlockingStatus(w, r)
}

// GetBlockedLog returns blocked messages, newest first.
//
//	GET /api/blocking/log
func (h *Handlers) GetBlockedLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.blocking.Log(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.BlockedEmailEntry{}
	}
	httputil.OK(w, entries)
}

// ClearBlockedLog empties the blocked message log.
//
//	DELETE /api/blocking/log
func (h *Handlers) ClearBlockedLog(w http.ResponseWriter, r *http.Request) {
	if err := h.blocking.ClearLog(r.Context()); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// ExportWhitelist returns the whitelist as text, one address per line.
//
//	GET /api/blocking/whitelist
func (h *Handlers) ExportWhitelist(w http.ResponseWriter, r *http.Request) {
	text, err := h.blocking.ExportWhitelist(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="email-whitelist.txt"`)
	httputil.Text(w, text)
}

// ImportWhitelist replaces the whitelist with the addresses in the body.
//
//	PUT /api/blocking/whitelist
func (h *Handlers) ImportWhitelist(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWhitelistBytes))
	if err != nil {
		httputil.BadRequest(w, "could not read body: "+err.Error())
		return
	}
	n, err := h.blocking.ImportWhitelist(r.Context(), string(body))
	if errors.Is(err, emailgate.ErrInvalidAddress) {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	h.log.Info("whitelist imported", "count", n)
	httputil.OK(w, map[string]int{"imported": n})
}
