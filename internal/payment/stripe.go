package payment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// Stripe refuses checkout sessions expiring in less than 30 minutes.
const minSessionLifetime = 31 * time.Minute

type StripePaymentProvider struct {
	failureUrl string
	successUrl string
	now        func() time.Time
}

func NewStripePaymentProvider(failureUrl, successUrl string) *StripePaymentProvider {
	return &StripePaymentProvider{
		failureUrl: failureUrl,
		successUrl: successUrl,
		now:        time.Now,
	}
}

func (s *StripePaymentProvider) CreateCheckoutSession(
	user *domain.User,
	checkout domain.Checkout,
	payment domain.Payment) (*stripe.CheckoutSession, error) {

	params := &stripe.CheckoutSessionParams{
		LineItems:  lineItems(checkout),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.failureUrl),
		ExpiresAt:  stripe.Int64(s.expiresAt(checkout).Unix()),
		Metadata: map[string]string{
			"checkout_id": checkout.ID,
			"holder_id":   checkout.HolderID,
			"showtime_id": strconv.Itoa(checkout.ShowtimeID),
			"seat_ids":    joinIds(checkout.SeatIDs()),
			"user_id":     strconv.Itoa(user.ID),
			"payment_id":  strconv.Itoa(payment.ID),
		},
		CustomerEmail:     &user.Email,
		ClientReferenceID: stripe.String(strconv.Itoa(payment.ID)),
	}

	return session.New(params)
}

func (s *StripePaymentProvider) expiresAt(checkout domain.Checkout) time.Time {
	return sessionExpiry(s.now(), checkout.ExpiresAt)
}

// sessionExpiry moves requested forward to the earliest expiry Stripe accepts.
func sessionExpiry(now, requested time.Time) time.Time {
	earliest := now.Add(minSessionLifetime)
	if requested.Before(earliest) {
		return earliest
	}

	return requested
}

func lineItems(checkout domain.Checkout) []*stripe.CheckoutSessionLineItemParams {
	var items []*stripe.CheckoutSessionLineItemParams

	for _, seat := range checkout.Seats {
		seatLabel := fmt.Sprintf("Row %d Seat %d", seat.Row, seat.Col)
		seatPrice := checkout.BasePrice.Add(seat.ExtraPrice)

		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(toCents(seatPrice)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("🎬 %s - %s", checkout.MovieName, seatLabel)),
					Description: stripe.String(fmt.Sprintf(
						"Theater: %s • Hall: %s • Showtime: %s • Seat Type: %s",
						checkout.TheaterName,
						checkout.HallName,
						checkout.Date.Format("Jan 2, 2006 15:04"),
						seat.SeatType,
					)),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	for _, food := range checkout.Food {
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(toCents(food.UnitPrice)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("🍿 " + food.Name),
				},
			},
			Quantity: stripe.Int64(int64(food.Quantity)),
		})
	}

	return items
}

func toCents(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).IntPart()
}

func joinIds(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	return strings.Join(parts, ",")
}
