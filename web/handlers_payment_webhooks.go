package web

import (
	"io"
	"net/http"

	"github.com/stamply/stamply/app"
)

// StripeWebhook receives webhook deliveries from Stripe. The signature check
// inside the service is the trust boundary; application-level failures after
// it still return 200 so the provider stops retrying.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "failed to read body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.webhooks.HandleEvent(r.Context(), body, signature); err != nil {
		if app.KindOf(err) == app.KindSignature {
			writeErrorMsg(w, http.StatusBadRequest, "invalid signature")
			return
		}
		h.logger.Error().Err(err).Msg("webhook event handling failed")
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
