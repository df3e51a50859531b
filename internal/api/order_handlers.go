package api

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/httputil"
	"github.com/ignite/lgl-sync/internal/worker"
)

const maxEventBytes = 1 << 20

// HandleOrderEvent runs the order syncer for one store event.
//
//	POST /api/orders/events
func (h *Handlers) HandleOrderEvent(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "order sync is disabled")
		return
	}
	if h.webhookSecret != "" {
		got := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			httputil.Unauthorized(w)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEventBytes)
	var evt domain.OrderEvent
	if !httputil.Decode(w, r, &evt) {
		return
	}

	out, err := h.orders.Handle(r.Context(), evt)
	switch {
	case errors.Is(err, worker.ErrInvalidEvent), errors.Is(err, worker.ErrUnknownEvent):
		httputil.BadRequest(w, err.Error())
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, out)
	}
}
