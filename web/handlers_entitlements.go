package web

import (
	"net/http"

	"github.com/stamply/stamply/domain/entitlement"
)

type checkEntitlementRequest struct {
	RestaurantID string `json:"restaurant_id"`
	Feature      string `json:"feature"`
	Action       string `json:"action"`
}

type decisionResponse struct {
	Allowed         bool   `json:"allowed"`
	Current         int64  `json:"current"`
	Limit           int64  `json:"limit"`
	Message         string `json:"message,omitempty"`
	RequiresUpgrade bool   `json:"requires_upgrade"`
	SuggestedTier   string `json:"suggested_tier,omitempty"`
}

func toDecisionResponse(d entitlement.Decision) decisionResponse {
	return decisionResponse{
		Allowed:         d.Allowed,
		Current:         d.Current,
		Limit:           d.Limit,
		Message:         d.Message,
		RequiresUpgrade: d.RequiresUpgrade,
		SuggestedTier:   string(d.SuggestedTier),
	}
}

// CheckEntitlement answers whether a restaurant may perform an action.
// Denial is a normal 200 response carrying the decision, not an error.
func (h *Handler) CheckEntitlement(w http.ResponseWriter, r *http.Request) {
	var req checkEntitlementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}

	d, err := h.entitlements.CanPerformAction(
		r.Context(), req.RestaurantID,
		entitlement.Feature(req.Feature), entitlement.Action(req.Action),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDecisionResponse(d))
}
