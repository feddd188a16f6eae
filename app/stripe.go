package app

import (
	"context"
	"errors"
	"log"

	"github.com/Sumitkumar005/voiceclone-studio/app/config"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
)

// InitStripe wires the Stripe API key from the environment.
func InitStripe() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for stripe: %v", err)
	}
	stripe.Key = cfg.Stripe.SecretKey
}

// ensureStripeCustomer finds or creates a Stripe Customer for the given user.
// It uses profiles.stripe_customer_id when present, otherwise creates a new
// customer tagged with the user id and stores it back on the profile.
func ensureStripeCustomer(ctx context.Context, userID, email string) (string, error) {
	if db == nil {
		return "", errors.New("db not initialized")
	}
	if userID == "" {
		return "", errors.New("missing user id")
	}

	customerID, err := getStripeCustomerID(ctx, userID)
	if err != nil {
		return "", err
	}
	if customerID != "" {
		return customerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}

	if err := setStripeCustomerID(ctx, userID, cust.ID); err != nil {
		return "", err
	}

	return cust.ID, nil
}
