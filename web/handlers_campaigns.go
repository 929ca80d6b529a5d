package web

import (
	"net/http"
	"time"

	"github.com/stamply/stamply/domain/campaign"
)

type createDraftRequest struct {
	RestaurantID string     `json:"restaurant_id"`
	Kind         string     `json:"kind"`
	Name         string     `json:"name"`
	EventDate    *time.Time `json:"event_date,omitempty"`
}

type campaignResponse struct {
	ID           string     `json:"id"`
	RestaurantID string     `json:"restaurant_id"`
	Kind         string     `json:"kind"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	EventDate    *time.Time `json:"event_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toCampaignResponse(c campaign.Campaign) campaignResponse {
	return campaignResponse{
		ID:           c.ID,
		RestaurantID: c.RestaurantID,
		Kind:         string(c.Kind),
		Name:         c.Name,
		Status:       string(c.Status),
		EventDate:    c.EventDate,
		CreatedAt:    c.CreatedAt,
	}
}

// CreateDraft creates a campaign in draft state.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.campaigns.CreateDraft(r.Context(), req.RestaurantID, campaign.Kind(req.Kind), req.Name, req.EventDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCampaignResponse(c))
}

type goLiveRequest struct {
	RestaurantID string `json:"restaurant_id"`
	CampaignID   string `json:"campaign_id"`
	Actor        string `json:"actor"`
}

// GoLive attempts the gated draft-to-live transition. A denial comes back as
// 200 with the decision so the client can prompt an upgrade.
func (h *Handler) GoLive(w http.ResponseWriter, r *http.Request) {
	var req goLiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID == "" || req.CampaignID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "restaurant_id and campaign_id are required")
		return
	}

	d, err := h.campaigns.GoLive(r.Context(), req.RestaurantID, req.Actor, req.CampaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDecisionResponse(d))
}

type deleteDraftRequest struct {
	RestaurantID string `json:"restaurant_id"`
	CampaignID   string `json:"campaign_id"`
}

// DeleteDraft soft-deletes a draft campaign.
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	var req deleteDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID == "" || req.CampaignID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "restaurant_id and campaign_id are required")
		return
	}

	if err := h.campaigns.DeleteDraft(r.Context(), req.RestaurantID, req.CampaignID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type sendNotificationRequest struct {
	RestaurantID string `json:"restaurant_id"`
	Actor        string `json:"actor"`
	Title        string `json:"title"`
	Body         string `json:"body"`
}

type notificationResponse struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	SentAt *time.Time `json:"sent_at"`
}

type sendNotificationResponse struct {
	Decision     decisionResponse      `json:"decision"`
	Notification *notificationResponse `json:"notification,omitempty"`
}

// SendNotification sends a push notification under the monthly cap.
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}

	d, n, err := h.notifications.Send(r.Context(), req.RestaurantID, req.Actor, req.Title, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := sendNotificationResponse{Decision: toDecisionResponse(d)}
	if d.Allowed {
		resp.Notification = &notificationResponse{ID: n.ID, Title: n.Title, SentAt: n.SentAt}
	}
	writeJSON(w, http.StatusOK, resp)
}
