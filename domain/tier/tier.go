// Package tier provides the subscription tier catalog: value types and pure functions.
package tier

// Tier identifies a subscription tier.
type Tier string

const (
	Free       Tier = "free"
	Basic      Tier = "basic"
	Premium    Tier = "premium"
	Enterprise Tier = "enterprise"
)

// Unlimited marks a quantity with no cap.
const Unlimited int64 = -1

// Config holds the limits and pricing for a tier (immutable value type).
type Config struct {
	DisplayName              string
	MaxLiveCards             int64
	MaxLivePromotions        int64
	MaxLiveEvents            int64
	MaxNotificationsPerMonth int64
	ActivationFeeCents       int64
	MonthlyFeeCents          int64
	IncludedMonths           int
}

var catalog = map[Tier]Config{
	Free: {
		DisplayName:              "Free",
		MaxLiveCards:             0,
		MaxLivePromotions:        1,
		MaxLiveEvents:            1,
		MaxNotificationsPerMonth: 0,
	},
	Basic: {
		DisplayName:              "Basic",
		MaxLiveCards:             1,
		MaxLivePromotions:        3,
		MaxLiveEvents:            3,
		MaxNotificationsPerMonth: 100,
		ActivationFeeCents:       2900,
		MonthlyFeeCents:          2900,
		IncludedMonths:           1,
	},
	Premium: {
		DisplayName:              "Premium",
		MaxLiveCards:             3,
		MaxLivePromotions:        10,
		MaxLiveEvents:            10,
		MaxNotificationsPerMonth: 500,
		ActivationFeeCents:       4900,
		MonthlyFeeCents:          4900,
		IncludedMonths:           1,
	},
	Enterprise: {
		DisplayName:              "Enterprise",
		MaxLiveCards:             Unlimited,
		MaxLivePromotions:        Unlimited,
		MaxLiveEvents:            Unlimited,
		MaxNotificationsPerMonth: Unlimited,
		ActivationFeeCents:       9900,
		MonthlyFeeCents:          9900,
		IncludedMonths:           2,
	},
}

// order defines tier progression for upgrade suggestions.
var order = []Tier{Free, Basic, Premium, Enterprise}

// Parse maps a string to a known tier. Unknown values fall back to Free.
// This is a PURE function.
func Parse(s string) Tier {
	t := Tier(s)
	if _, ok := catalog[t]; ok {
		return t
	}
	return Free
}

// Lookup returns the config for a tier. Unknown tiers fall back to Free.
// This is a PURE function.
func Lookup(t Tier) Config {
	if cfg, ok := catalog[t]; ok {
		return cfg
	}
	return catalog[Free]
}

// Next returns the tier directly above t. Enterprise has no tier above it
// and returns itself.
// This is a PURE function.
func Next(t Tier) Tier {
	for i, cur := range order {
		if cur == t && i < len(order)-1 {
			return order[i+1]
		}
	}
	if _, ok := catalog[t]; !ok {
		return Basic
	}
	return Enterprise
}

// IsUnlimited reports whether a limit value means "no cap".
// This is a PURE function.
func IsUnlimited(limit int64) bool {
	return limit < 0
}
