// Package billing provides billing value types and pure functions.
package billing

import (
	"strings"
	"time"

	"github.com/stamply/stamply/domain/tier"
)

// BillingType distinguishes flat monthly billing from metered (per-stamp) billing.
type BillingType string

const (
	BillingMonthly BillingType = "monthly"
	BillingMetered BillingType = "metered"
)

// Status represents subscription state as tracked locally.
type Status string

const (
	StatusActive         Status = "active"
	StatusPendingPayment Status = "pending_payment"
	StatusCancelled      Status = "cancelled"
	StatusTrialing       Status = "trialing"
	StatusPastDue        Status = "past_due"
	StatusUnpaid         Status = "unpaid"
)

// PendingChange describes a scheduled tier/billing change awaiting the next
// billing cycle (value type).
type PendingChange struct {
	Tier        tier.Tier
	BillingType BillingType
}

// Subscription is the provider-side view of a subscription (value type).
type Subscription struct {
	ID                string
	CustomerID        string
	ItemID            string // line item id, needed for price swaps and metered usage
	PriceID           string
	Status            Status
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// subscriptionIDPrefix is the payment provider's id convention for subscriptions.
const subscriptionIDPrefix = "sub_"

// ValidSubscriptionID reports whether id matches the provider's format.
// This is a PURE function.
func ValidSubscriptionID(id string) bool {
	return strings.HasPrefix(id, subscriptionIDPrefix) && len(id) > len(subscriptionIDPrefix)
}

// ValidBillingType reports whether bt names a known billing type.
// This is a PURE function.
func ValidBillingType(bt BillingType) bool {
	return bt == BillingMonthly || bt == BillingMetered
}

// MapProviderStatus converts a provider status string to a local Status.
// This is a PURE function.
func MapProviderStatus(s string) Status {
	switch s {
	case "active":
		return StatusActive
	case "past_due":
		return StatusPastDue
	case "canceled", "cancelled":
		return StatusCancelled
	case "trialing":
		return StatusTrialing
	case "unpaid":
		return StatusUnpaid
	case "incomplete", "incomplete_expired":
		return StatusPendingPayment
	default:
		return StatusActive
	}
}

// PriceTable maps {tier x billing type} to provider price ids.
// Built from configuration at startup (immutable afterwards).
type PriceTable struct {
	prices map[tier.Tier]map[BillingType]string
}

// NewPriceTable builds a price table. Entries with an empty price id are skipped.
func NewPriceTable(entries map[tier.Tier]map[BillingType]string) PriceTable {
	prices := make(map[tier.Tier]map[BillingType]string, len(entries))
	for t, byType := range entries {
		m := make(map[BillingType]string, len(byType))
		for bt, id := range byType {
			if id != "" {
				m[bt] = id
			}
		}
		prices[t] = m
	}
	return PriceTable{prices: prices}
}

// Resolve returns the price id for a tier/billing-type pair.
// This is a PURE function.
func (p PriceTable) Resolve(t tier.Tier, bt BillingType) (string, bool) {
	byType, ok := p.prices[t]
	if !ok {
		return "", false
	}
	id, ok := byType[bt]
	return id, ok
}

// CheckoutPrice returns the price id used for initial checkout of a plan.
// Checkout always starts on flat monthly billing; metered billing is a
// post-checkout switch.
// This is a PURE function.
func (p PriceTable) CheckoutPrice(planID string) (string, bool) {
	t := tier.Tier(planID)
	if tier.Parse(planID) != t {
		return "", false
	}
	if t == tier.Free {
		return "", false
	}
	return p.Resolve(t, BillingMonthly)
}

// EndsAtFor derives the subscription end date from a tier's included months.
// Tiers without included months get one billing month.
// This is a PURE function.
func EndsAtFor(t tier.Tier, from time.Time) time.Time {
	months := tier.Lookup(t).IncludedMonths
	if months < 1 {
		months = 1
	}
	return from.AddDate(0, months, 0)
}
