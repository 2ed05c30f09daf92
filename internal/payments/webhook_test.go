package payments

import (
	"testing"

	"github.com/jetsocket/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEvent = `{
  "meta": {"event_name": "subscription_created", "custom_data": {"user_id": "7"}},
  "data": {"id": "1001", "type": "subscriptions",
    "attributes": {"customer_id": 555, "variant_id": 200, "status": "active", "user_email": "dev@example.com"}}
}`

func TestVerifySignature(t *testing.T) {
	body := []byte(sampleEvent)
	sig := Sign("whsec", body)

	assert.NoError(t, VerifySignature("whsec", body, sig))
	assert.ErrorIs(t, VerifySignature("other", body, sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("whsec", append(body, ' '), sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("whsec", body, "not-hex"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("", body, sig), ErrInvalidSignature, "an unset secret rejects everything")
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(sampleEvent))
	require.NoError(t, err)

	assert.Equal(t, EventSubscriptionCreated, ev.Name())
	uid, err := ev.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(7), uid)
	assert.Equal(t, "555", ev.CustomerID(), "numeric ids decode as strings")
	assert.Equal(t, "200", ev.VariantID())

	_, err = ParseEvent([]byte(`{"meta":{}}`))
	assert.Error(t, err)

	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestEventUserID_Missing(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"meta":{"event_name":"subscription_updated"}}`))
	require.NoError(t, err)
	_, err = ev.UserID()
	assert.Error(t, err)
}

func TestStatusForEvent(t *testing.T) {
	cases := map[string]models.SubscriptionStatus{
		EventSubscriptionCreated:       models.SubscriptionStatusActive,
		EventSubscriptionUpdated:       models.SubscriptionStatusActive,
		EventSubscriptionResumed:       models.SubscriptionStatusActive,
		EventSubscriptionCancelled:     models.SubscriptionStatusCancelAtPeriodEnd,
		EventSubscriptionExpired:       models.SubscriptionStatusDeleted,
		EventSubscriptionPaymentFailed: models.SubscriptionStatusPastDue,
	}
	for name, want := range cases {
		got, ok := StatusForEvent(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := StatusForEvent("order_created")
	assert.False(t, ok)
}
