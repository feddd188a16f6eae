// One-shot setup tool: creates the Pro product and its monthly price in
// Stripe and prints the price id to put in STRIPE_PRICE_ID_PRO.
package main

import (
	"log"

	"github.com/Sumitkumar005/voiceclone-studio/app/config"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/price"
	"github.com/stripe/stripe-go/v79/product"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Stripe.SecretKey == "" {
		log.Fatal("STRIPE_SECRET_KEY must be set")
	}
	stripe.Key = cfg.Stripe.SecretKey

	prod, err := product.New(&stripe.ProductParams{
		Name:        stripe.String("VoiceClone Pro"),
		Description: stripe.String("500 generations per month"),
	})
	if err != nil {
		log.Fatalf("failed to create product: %v", err)
	}

	pr, err := price.New(&stripe.PriceParams{
		Product:    stripe.String(prod.ID),
		UnitAmount: stripe.Int64(900), // $9.00
		Currency:   stripe.String(string(stripe.CurrencyUSD)),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		},
	})
	if err != nil {
		log.Fatalf("failed to create price: %v", err)
	}

	log.Printf("Pro Price ID: %s", pr.ID)
}
