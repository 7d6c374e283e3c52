package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func TestCheckoutParamsCarryUserReference(t *testing.T) {
	t.Setenv("STRIPE_PREMIUM_PRICE_ID", "price_premium")
	s := NewStripeService("pk_test", "sk_test")

	userID := uuid.New().String()
	params := s.checkoutParams(userID)

	assert.Equal(t, string(stripe.CheckoutSessionModeSubscription), *params.Mode)
	assert.Equal(t, userID, *params.ClientReferenceID)
	assert.Equal(t, userID, params.Metadata["userId"])

	// The cancellation webhook only sees the subscription object, so the user
	// id must be stamped onto the subscription, not just the session.
	require.NotNil(t, params.SubscriptionData)
	assert.Equal(t, userID, params.SubscriptionData.Metadata["userId"])

	require.Len(t, params.LineItems, 1)
	assert.Equal(t, "price_premium", *params.LineItems[0].Price)
}
