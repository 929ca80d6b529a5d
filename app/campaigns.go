package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/stamply/stamply/domain/campaign"
	"github.com/stamply/stamply/domain/entitlement"
	"github.com/stamply/stamply/ports"
)

// CampaignService manages loyalty cards, promotions, and events through their
// draft, live, and soft-deleted states. Go-live is the only gated transition;
// every attempt, allowed or denied, leaves an audit entry.
type CampaignService struct {
	restaurants  ports.RestaurantStore
	campaigns    ports.CampaignStore
	audit        ports.AuditStore
	entitlements *EntitlementService
	idGen        ports.IDGenerator
	clock        ports.Clock
	logger       zerolog.Logger
}

// NewCampaignService creates a new campaign service.
func NewCampaignService(
	restaurants ports.RestaurantStore,
	campaigns ports.CampaignStore,
	audit ports.AuditStore,
	entitlements *EntitlementService,
	idGen ports.IDGenerator,
	clock ports.Clock,
	logger zerolog.Logger,
) *CampaignService {
	return &CampaignService{
		restaurants:  restaurants,
		campaigns:    campaigns,
		audit:        audit,
		entitlements: entitlements,
		idGen:        idGen,
		clock:        clock,
		logger:       logger,
	}
}

// CreateDraft creates a new campaign in draft state. Drafts are never capped.
func (s *CampaignService) CreateDraft(ctx context.Context, restaurantID string, kind campaign.Kind, name string, eventDate *time.Time) (campaign.Campaign, error) {
	if !campaign.ValidKind(kind) {
		return campaign.Campaign{}, validationErr("unknown campaign kind %q", kind)
	}
	if name == "" {
		return campaign.Campaign{}, validationErr("campaign name is required")
	}
	if _, err := s.restaurants.Get(ctx, restaurantID); err != nil {
		return campaign.Campaign{}, notFoundErr("restaurant %s not found", restaurantID)
	}

	now := s.clock.Now()
	c := campaign.Campaign{
		ID:           s.idGen.New(),
		RestaurantID: restaurantID,
		Kind:         kind,
		Name:         name,
		Status:       campaign.StatusDraft,
		EventDate:    eventDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return campaign.Campaign{}, upstreamErr("failed to create campaign", err)
	}

	s.logger.Info().
		Str("campaign_id", c.ID).
		Str("restaurant_id", restaurantID).
		Str("kind", string(kind)).
		Msg("campaign draft created")
	return c, nil
}

// GoLive attempts the draft-to-live transition. The entitlement check and the
// activation are separate steps: the check produces the user-facing decision,
// the conditional update enforces the cap even under concurrent attempts.
func (s *CampaignService) GoLive(ctx context.Context, restaurantID, actor, campaignID string) (entitlement.Decision, error) {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil || c.RestaurantID != restaurantID {
		return entitlement.Decision{}, notFoundErr("campaign %s not found", campaignID)
	}
	if !c.CanGoLive() {
		return entitlement.Decision{}, conflictErr("campaign is not an activatable draft")
	}

	feature := campaign.FeatureFor(c.Kind)
	d, err := s.entitlements.CanPerformAction(ctx, restaurantID, feature, entitlement.ActionGoLive)
	if err != nil {
		return entitlement.Decision{}, err
	}

	if d.Allowed {
		ok, err := s.campaigns.ActivateIfUnderLimit(ctx, campaignID, d.Limit, s.clock.Now())
		if err != nil {
			s.logger.Error().Err(err).
				Str("campaign_id", campaignID).
				Msg("failed to activate campaign")
			d = entitlement.FailClosed()
		} else if !ok {
			// The conditional update refused: either a concurrent activation
			// of a sibling took the last slot, or this campaign itself was
			// activated by another request. Re-read to tell the two apart.
			cur, cerr := s.campaigns.Get(ctx, campaignID)
			if cerr != nil {
				d = entitlement.FailClosed()
			} else if !cur.CanGoLive() {
				return entitlement.Decision{}, conflictErr("campaign is not an activatable draft")
			} else {
				r, rerr := s.restaurants.Get(ctx, restaurantID)
				if rerr != nil {
					d = entitlement.FailClosed()
				} else {
					d = entitlement.Decide(r.SubscriptionTier, feature, entitlement.ActionGoLive, d.Limit)
				}
			}
		}
	}

	s.recordAudit(ctx, restaurantID, actor, feature, entitlement.ActionGoLive, d)

	if d.Allowed {
		s.logger.Info().
			Str("campaign_id", campaignID).
			Str("restaurant_id", restaurantID).
			Str("kind", string(c.Kind)).
			Msg("campaign went live")
	}
	return d, nil
}

// DeleteDraft soft-deletes a campaign. Live campaigns are immutable and
// cannot be deleted.
func (s *CampaignService) DeleteDraft(ctx context.Context, restaurantID, campaignID string) error {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil || c.RestaurantID != restaurantID {
		return notFoundErr("campaign %s not found", campaignID)
	}
	if !c.CanDelete() {
		return conflictErr("only draft campaigns can be deleted")
	}

	if err := s.campaigns.SoftDelete(ctx, campaignID, s.clock.Now()); err != nil {
		return upstreamErr("failed to delete campaign", err)
	}
	s.logger.Info().
		Str("campaign_id", campaignID).
		Str("restaurant_id", restaurantID).
		Msg("campaign draft deleted")
	return nil
}

// List returns a restaurant's non-deleted campaigns of a kind.
func (s *CampaignService) List(ctx context.Context, restaurantID string, kind campaign.Kind) ([]campaign.Campaign, error) {
	if !campaign.ValidKind(kind) {
		return nil, validationErr("unknown campaign kind %q", kind)
	}
	list, err := s.campaigns.ListByRestaurant(ctx, restaurantID, kind)
	if err != nil {
		return nil, upstreamErr("failed to list campaigns", err)
	}
	return list, nil
}

func (s *CampaignService) recordAudit(ctx context.Context, restaurantID, actor string, feature entitlement.Feature, action entitlement.Action, d entitlement.Decision) {
	entry := ports.AuditEntry{
		ID:           s.idGen.New(),
		RestaurantID: restaurantID,
		Actor:        actor,
		Feature:      string(feature),
		Action:       string(action),
		Allowed:      d.Allowed,
		Detail:       d.Message,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil && !errors.Is(err, context.Canceled) {
		// Audit writes never fail the user-facing operation.
		s.logger.Error().Err(err).
			Str("restaurant_id", restaurantID).
			Msg("failed to record audit entry")
	}
}
