package payment

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
)

func TestNewProvider_Modes(t *testing.T) {
	p, err := NewProvider(Config{Mode: "none"})
	if err != nil {
		t.Fatalf("none: %v", err)
	}
	if p.Name() != "none" {
		t.Errorf("Name() = %q, want none", p.Name())
	}

	p, err = NewProvider(Config{Mode: "stripe", SecretKey: "sk_test_123"})
	if err != nil {
		t.Fatalf("stripe: %v", err)
	}
	if p.Name() != "stripe" {
		t.Errorf("Name() = %q, want stripe", p.Name())
	}

	if _, err := NewProvider(Config{Mode: "stripe"}); err == nil {
		t.Error("stripe without secret key should fail")
	}
	if _, err := NewProvider(Config{Mode: "paypal"}); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestNoopProvider_AllOpsDisabled(t *testing.T) {
	ctx := context.Background()
	p := NewNoopProvider()

	if _, err := p.CreateCheckoutSession(ctx, "", "price_x", "s", "c", nil); err != ErrPaymentsDisabled {
		t.Errorf("CreateCheckoutSession err = %v", err)
	}
	if _, err := p.CreatePortalSession(ctx, "cus_x", "r"); err != ErrPaymentsDisabled {
		t.Errorf("CreatePortalSession err = %v", err)
	}
	if _, err := p.GetSubscription(ctx, "sub_x"); err != ErrPaymentsDisabled {
		t.Errorf("GetSubscription err = %v", err)
	}
	if err := p.ReportUsage(ctx, "si_x", 1, time.Now()); err != ErrPaymentsDisabled {
		t.Errorf("ReportUsage err = %v", err)
	}
}

func TestStripeProvider_ReportUsage_FormEncodedPost(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		fmt.Fprint(w, `{"id":"mbur_1"}`)
	}))
	defer srv.Close()

	p := NewStripeProvider(StripeConfig{SecretKey: "sk_test_abc"})
	p.apiBase = srv.URL

	ts := time.Date(2025, 4, 1, 10, 30, 0, 0, time.UTC)
	if err := p.ReportUsage(context.Background(), "si_123", 7, ts); err != nil {
		t.Fatalf("ReportUsage: %v", err)
	}

	if gotPath != "/subscription_items/si_123/usage_records" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk_test_abc" {
		t.Errorf("auth = %q", gotAuth)
	}
	if !strings.HasPrefix(gotContentType, "application/x-www-form-urlencoded") {
		t.Errorf("content-type = %q", gotContentType)
	}
	if got := gotForm["quantity"]; len(got) != 1 || got[0] != "7" {
		t.Errorf("quantity = %v", got)
	}
	if got := gotForm["action"]; len(got) != 1 || got[0] != "increment" {
		t.Errorf("action = %v", got)
	}
	if got := gotForm["timestamp"]; len(got) != 1 || got[0] != fmt.Sprint(ts.Unix()) {
		t.Errorf("timestamp = %v", got)
	}
}

func TestStripeProvider_ReportUsage_ErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"No such subscription item"}}`)
	}))
	defer srv.Close()

	p := NewStripeProvider(StripeConfig{SecretKey: "sk_test_abc"})
	p.apiBase = srv.URL

	err := p.ReportUsage(context.Background(), "si_missing", 1, time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "No such subscription item") {
		t.Errorf("provider message not passed through: %v", err)
	}
}

func TestStripeProvider_ParseWebhook(t *testing.T) {
	secret := "whsec_test"
	p := NewStripeProvider(StripeConfig{SecretKey: "sk_test_abc", WebhookSecret: secret})

	payload := []byte(`{"id":"evt_1","api_version":"2023-10-16","type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{"restaurant_id":"r-1","plan_id":"basic"}}}}`)

	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))

	eventType, data, err := p.ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if eventType != "checkout.session.completed" {
		t.Errorf("eventType = %q", eventType)
	}
	if data["id"] != "cs_1" {
		t.Errorf("data id = %v", data["id"])
	}

	if _, _, err := p.ParseWebhook(payload, "t=1,v1=deadbeef"); err == nil {
		t.Error("bad signature must be rejected")
	}
}
