package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/lgl-sync/internal/metrics"
	"github.com/ignite/lgl-sync/internal/pkg/httputil"
)

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// SetupRoutes builds the router. Route groups whose service is nil answer
// 503 so a partially configured server still starts.
func SetupRoutes(h *Handlers, health *HealthChecker, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Webhook-Secret"},
		MaxAge:         300,
	}))

	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/live", health.HandleLiveness)
		r.Get("/health/ready", health.HandleReadiness)
	}
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/orders/events", h.HandleOrderEvent)

		r.Route("/sync", func(r chi.Router) {
			r.Use(requireService(h.sync != nil, "sync records"))
			r.Get("/", h.ListSyncRecords)
			r.Get("/stats", h.GetSyncStats)
			r.Get("/{orderID}", h.GetSyncRecord)
		})

		r.Route("/renewals", func(r chi.Router) {
			r.Use(requireService(h.renewals != nil, "renewals"))
			r.Get("/stats", h.GetRenewalStats)
			r.Post("/run", h.RunRenewalPass)
		})

		r.Route("/blocking", func(r chi.Router) {
			r.Use(requireService(h.blocking != nil, "email blocking"))
			r.Get("/status", h.GetBlockingStatus)
			r.Put("/force", h.SetForceBlocking)
			r.Post("/pause", h.PauseBlocking)
			r.Delete("/pause", h.ResumeBlocking)
			r.Get("/log", h.GetBlockedLog)
			r.Delete("/log", h.ClearBlockedLog)
			r.Get("/whitelist", h.ExportWhitelist)
			r.Put("/whitelist", h.ImportWhitelist)
		})
	})

	return r
}

func requireService(ok bool, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if ok {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			httputil.Error(w, http.StatusServiceUnavailable, name+" not configured")
		})
	}
}
