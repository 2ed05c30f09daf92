package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jetsocket/backend/internal/models"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Webhook event names sent by the processor.
const (
	EventSubscriptionCreated       = "subscription_created"
	EventSubscriptionUpdated       = "subscription_updated"
	EventSubscriptionResumed       = "subscription_resumed"
	EventSubscriptionCancelled     = "subscription_cancelled"
	EventSubscriptionExpired       = "subscription_expired"
	EventSubscriptionPaymentFailed = "subscription_payment_failed"
)

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the X-Signature header against the raw body.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" || signature == "" {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Event is the subset of a subscription webhook this service reads.
type Event struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID flexString `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         flexString `json:"id"`
		Type       string     `json:"type"`
		Attributes struct {
			CustomerID flexString `json:"customer_id"`
			VariantID  flexString `json:"variant_id"`
			Status     string     `json:"status"`
			UserEmail  string     `json:"user_email"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if ev.Meta.EventName == "" {
		return nil, errors.New("decode webhook: missing meta.event_name")
	}
	return &ev, nil
}

func (e *Event) Name() string {
	return e.Meta.EventName
}

// UserID returns the dashboard user id attached at checkout.
func (e *Event) UserID() (uint, error) {
	raw := string(e.Meta.CustomData.UserID)
	if raw == "" {
		return 0, errors.New("webhook has no custom user_id")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("webhook user_id %q: %w", raw, err)
	}
	return uint(id), nil
}

func (e *Event) CustomerID() string {
	return string(e.Data.Attributes.CustomerID)
}

func (e *Event) VariantID() string {
	return string(e.Data.Attributes.VariantID)
}

// StatusForEvent maps a subscription event to the stored status. ok is
// false for events that do not change the status.
func StatusForEvent(name string) (status models.SubscriptionStatus, ok bool) {
	switch name {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionResumed:
		return models.SubscriptionStatusActive, true
	case EventSubscriptionCancelled:
		return models.SubscriptionStatusCancelAtPeriodEnd, true
	case EventSubscriptionExpired:
		return models.SubscriptionStatusDeleted, true
	case EventSubscriptionPaymentFailed:
		return models.SubscriptionStatusPastDue, true
	}
	return "", false
}
