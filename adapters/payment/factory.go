package payment

import (
	"fmt"

	"github.com/stamply/stamply/ports"
)

// Config selects and configures the payment provider.
type Config struct {
	Mode          string // "stripe" or "none"
	SecretKey     string
	PublicKey     string
	WebhookSecret string
}

// NewProvider creates a payment provider from configuration.
func NewProvider(cfg Config) (ports.PaymentProvider, error) {
	switch cfg.Mode {
	case "stripe":
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("stripe secret key is required")
		}
		return NewStripeProvider(StripeConfig{
			SecretKey:     cfg.SecretKey,
			PublicKey:     cfg.PublicKey,
			WebhookSecret: cfg.WebhookSecret,
		}), nil

	case "none", "":
		return NewNoopProvider(), nil

	default:
		return nil, fmt.Errorf("unknown payment provider: %q", cfg.Mode)
	}
}
