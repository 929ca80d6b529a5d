package web

import (
	"net/http"
	"time"

	"github.com/stamply/stamply/domain/billing"
)

type createCheckoutRequest struct {
	RestaurantID string `json:"restaurant_id"`
	PlanID       string `json:"plan_id"`
	SuccessURL   string `json:"success_url"`
	CancelURL    string `json:"cancel_url"`
}

// CreateCheckout opens a hosted checkout session.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID == "" || req.PlanID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "restaurant_id and plan_id are required")
		return
	}

	url, err := h.billing.CreateCheckout(r.Context(), req.RestaurantID, req.PlanID, req.SuccessURL, req.CancelURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type portalSessionRequest struct {
	RestaurantID string `json:"restaurant_id"`
	ReturnURL    string `json:"return_url"`
}

// CreatePortalSession opens a self-service billing portal session.
func (h *Handler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	var req portalSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}

	url, err := h.billing.CreatePortalSession(r.Context(), req.RestaurantID, req.ReturnURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type getSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

type subscriptionResponse struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"`
	CurrentPeriodEnd  time.Time `json:"current_period_end"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
}

// GetSubscription fetches current subscription state from the provider.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	var req getSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.billing.GetSubscription(r.Context(), req.SubscriptionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	})
}

type updateSubscriptionRequest struct {
	RestaurantID string `json:"restaurant_id"`
	PlanID       string `json:"plan_id"`
	BillingType  string `json:"billing_type"`
}

// UpdateSubscription schedules a tier/billing change for the next renewal.
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req updateSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID == "" || req.PlanID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "restaurant_id and plan_id are required")
		return
	}
	if req.BillingType == "" {
		req.BillingType = string(billing.BillingMonthly)
	}

	change, err := h.billing.ScheduleChange(r.Context(), req.RestaurantID, req.PlanID, billing.BillingType(req.BillingType))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

type cancelPendingChangeRequest struct {
	RestaurantID string `json:"restaurant_id"`
}

// CancelPendingChange reverses a scheduled plan change.
func (h *Handler) CancelPendingChange(w http.ResponseWriter, r *http.Request) {
	var req cancelPendingChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}

	if err := h.billing.CancelPendingChange(r.Context(), req.RestaurantID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type reportUsageRequest struct {
	RestaurantID string `json:"restaurant_id"`
	Quantity     int64  `json:"quantity"`
}

type reportUsageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ReportStampUsage posts a metered usage record for stamp activity.
func (h *Handler) ReportStampUsage(w http.ResponseWriter, r *http.Request) {
	var req reportUsageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}

	reported, err := h.billing.ReportUsage(r.Context(), req.RestaurantID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := reportUsageResponse{Success: true}
	if !reported {
		resp.Message = "no usage tracking needed for this billing type"
	}
	writeJSON(w, http.StatusOK, resp)
}
