// Package web provides the JSON HTTP API. Every billing and entitlement
// operation is a stateless POST endpoint; errors come back as {"error": msg}.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stamply/stamply/adapters/metrics"
	"github.com/stamply/stamply/app"
)

// Handler provides the HTTP API endpoints.
type Handler struct {
	billing       *app.BillingService
	entitlements  *app.EntitlementService
	campaigns     *app.CampaignService
	notifications *app.NotificationService
	webhooks      *app.PaymentWebhookService
	metrics       *metrics.Collector
	logger        zerolog.Logger
	version       string
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Billing       *app.BillingService
	Entitlements  *app.EntitlementService
	Campaigns     *app.CampaignService
	Notifications *app.NotificationService
	Webhooks      *app.PaymentWebhookService
	Metrics       *metrics.Collector
	Logger        zerolog.Logger
	Version       string
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		billing:       deps.Billing,
		entitlements:  deps.Entitlements,
		campaigns:     deps.Campaigns,
		notifications: deps.Notifications,
		webhooks:      deps.Webhooks,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		version:       deps.Version,
	}
}

// Router builds the main chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(h.corsMiddleware)
	if h.metrics != nil {
		r.Use(h.metricsMiddleware)
	}

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMsg(w, http.StatusNotFound, "not found")
	})

	r.Get("/healthz", h.Health)
	r.Get("/version", h.Version)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/billing", func(r chi.Router) {
			r.Post("/create-checkout", h.CreateCheckout)
			r.Post("/portal-session", h.CreatePortalSession)
			r.Post("/get-subscription", h.GetSubscription)
			r.Post("/update-subscription", h.UpdateSubscription)
			r.Post("/cancel-pending-change", h.CancelPendingChange)
			r.Post("/report-stamp-usage", h.ReportStampUsage)
		})
		r.Post("/entitlements/check", h.CheckEntitlement)
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/create-draft", h.CreateDraft)
			r.Post("/go-live", h.GoLive)
			r.Post("/delete-draft", h.DeleteDraft)
		})
		r.Post("/notifications/send", h.SendNotification)
	})

	// Signature verification happens inside the handler, not via middleware.
	r.Post("/payment-webhooks/stripe", h.StripeWebhook)

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version reports the running build.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "stamply",
		"version": h.version,
	})
}

// corsMiddleware permits any origin and answers OPTIONS preflights directly.
func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request counts and latencies.
func (h *Handler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.metrics.RequestsInFlight.Inc()
		defer h.metrics.RequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := statusClass(ww.Status())
		h.metrics.RequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		h.metrics.RequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps a service error to its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch app.KindOf(err) {
	case app.KindValidation, app.KindConflict, app.KindSignature:
		status = http.StatusBadRequest
	case app.KindNotFound:
		status = http.StatusNotFound
	}
	writeErrorMsg(w, status, err.Error())
}
