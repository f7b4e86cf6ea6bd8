package domain

import "github.com/stripe/stripe-go/v82"

type PaymentProvider interface {
	CreateCheckoutSession(user *User, checkout Checkout, payment Payment) (*stripe.CheckoutSession, error)
}
