package services

import (
	"os"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

type StripeService struct {
	publicKey      string
	secretKey      string
	webhookSecret  string
	premiumPriceID string
}

func NewStripeService(publicKey, secretKey string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{
		publicKey:      publicKey,
		secretKey:      secretKey,
		webhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		premiumPriceID: os.Getenv("STRIPE_PREMIUM_PRICE_ID"),
	}
}

func (s *StripeService) PublicKey() string {
	return s.publicKey
}

// CreateCheckoutSession opens a subscription checkout for the premium plan.
func (s *StripeService) CreateCheckoutSession(userID string) (*stripe.CheckoutSession, error) {
	return session.New(s.checkoutParams(userID))
}

// checkoutParams builds the checkout request. The user id travels as
// client_reference_id for the completed-checkout event and as metadata on the
// subscription itself, because Stripe does not copy session metadata onto the
// subscription and the cancellation event only carries the subscription.
func (s *StripeService) checkoutParams(userID string) *stripe.CheckoutSessionParams {
	successURL := os.Getenv("CHECKOUT_SUCCESS_URL")
	if successURL == "" {
		successURL = "https://questiontoaskyourboyfriend.com/chat?checkout=success"
	}
	cancelURL := os.Getenv("CHECKOUT_CANCEL_URL")
	if cancelURL == "" {
		cancelURL = "https://questiontoaskyourboyfriend.com/chat?checkout=cancelled"
	}

	return &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.premiumPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(userID),
		Metadata: map[string]string{
			"userId": userID,
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"userId": userID,
			},
		},
	}
}

func (s *StripeService) HandleWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signatureHeader, s.webhookSecret)
}
