package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/metinatakli/cinema-booking/internal/seating"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const maxWebhookBodyBytes = int64(65536)

func (app *Application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("unable to read request body"))
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		r.Header.Get("Stripe-Signature"),
		app.config.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		logger.Warn("webhook signature verification failed", "error", err)
		app.badRequestResponse(w, r, errors.New("invalid webhook signature"))
		return
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionExpired:
		var checkoutSession stripe.CheckoutSession

		err = json.Unmarshal(event.Data.Raw, &checkoutSession)
		if err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("malformed checkout session: %w", err))
			return
		}

		if event.Type == stripe.EventTypeCheckoutSessionCompleted {
			err = app.completeBooking(r, checkoutSession.ID)
		} else {
			err = app.abortBooking(r, checkoutSession.ID)
		}

		if err != nil {
			// a non 2xx answer makes Stripe deliver the event again
			app.serverErrorResponse(w, r, err)
			return
		}

	default:
		logger.Debug("ignoring webhook event", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// completeBooking turns a paid checkout into an invoice. Conflicts are final:
// the payment is marked failed and the event acknowledged.
func (app *Application) completeBooking(r *http.Request, checkoutSessionID string) error {
	logger := app.contextGetLogger(r).With("checkout_session_id", checkoutSessionID)

	payment, err := app.paymentRepo.GetByCheckoutSessionID(r.Context(), checkoutSessionID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			logger.Warn("payment not found for completed checkout session")
			return nil
		}

		return err
	}

	if payment.Status != domain.PaymentStatusPending {
		logger.Info("checkout session already processed", "status", payment.Status)
		return nil
	}

	invoice, err := app.finalizer.Complete(r.Context(), seating.CompleteRequest{
		HolderID:   payment.HolderID,
		UserID:     &payment.UserID,
		ShowtimeID: payment.ShowtimeID,
		SeatIDs:    payment.SeatIDs,
		Extras:     payment.Extras,
		PaymentID:  &payment.ID,
	})
	if err != nil {
		if !isFinalizationConflict(err) {
			app.metrics.BookingsTotal.WithLabelValues("failed").Inc()
			return err
		}

		app.metrics.BookingsTotal.WithLabelValues("conflict").Inc()
		logger.Error("paid checkout could not be booked", "payment_id", payment.ID, "error", err)

		return app.paymentRepo.UpdateStatus(r.Context(), checkoutSessionID, domain.PaymentStatusFailed, err.Error())
	}

	app.metrics.BookingsTotal.WithLabelValues("completed").Inc()

	app.sendBookingConfirmation(r, payment.UserID, invoice)

	return nil
}

func (app *Application) abortBooking(r *http.Request, checkoutSessionID string) error {
	logger := app.contextGetLogger(r).With("checkout_session_id", checkoutSessionID)

	payment, err := app.paymentRepo.GetByCheckoutSessionID(r.Context(), checkoutSessionID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			logger.Warn("payment not found for expired checkout session")
			return nil
		}

		return err
	}

	if payment.Status != domain.PaymentStatusPending {
		return nil
	}

	released := app.finalizer.Abort(payment.ShowtimeID, payment.HolderID, payment.SeatIDs)

	app.metrics.BookingsTotal.WithLabelValues("aborted").Inc()
	logger.Info("checkout session expired", "payment_id", payment.ID, "released", released)

	return app.paymentRepo.UpdateStatus(r.Context(), checkoutSessionID, domain.PaymentStatusCanceled, "")
}

func (app *Application) sendBookingConfirmation(r *http.Request, userId int, invoice *domain.Invoice) {
	// the request context is canceled once the webhook is answered
	go func(ctx context.Context) {
		gLogger := app.contextGetLogger(r.WithContext(ctx)).With("invoice_code", invoice.Code)

		defer func() {
			if err := recover(); err != nil {
				gLogger.Error("panic occurred during sending booking confirmation", "panic", err)
			}
		}()

		user, err := app.userRepo.GetById(ctx, userId)
		if err != nil {
			gLogger.Error("failed to load user for booking confirmation", "error", err)
			return
		}

		showtimeSeats, err := app.seatRepo.GetSeatsByShowtimeAndSeatIds(ctx, invoice.ShowtimeID, invoice.SeatIDs)
		if err != nil {
			gLogger.Error("failed to load seats for booking confirmation", "error", err)
			return
		}

		err = app.mailer.Send(user.Email, "booking_confirmation.tmpl", bookingMailData(invoice, showtimeSeats))
		if err != nil {
			gLogger.Error("failed to send booking confirmation", "error", err)
		} else {
			gLogger.Info("booking confirmation sent successfully")
		}
	}(context.WithoutCancel(r.Context()))
}

func bookingMailData(invoice *domain.Invoice, showtimeSeats *domain.ShowtimeSeats) map[string]any {
	seats := make([]string, len(showtimeSeats.Seats))
	for i, seat := range showtimeSeats.Seats {
		seats[i] = fmt.Sprintf("Row %d Seat %d", seat.Row, seat.Col)
	}

	return map[string]any{
		"invoiceCode": invoice.Code,
		"movieName":   showtimeSeats.MovieName,
		"theaterName": showtimeSeats.TheaterName,
		"hallName":    showtimeSeats.HallName,
		"showtime":    showtimeSeats.Date.Format("Jan 2, 2006 15:04"),
		"seats":       strings.Join(seats, ", "),
		"totalPrice":  invoice.TotalPrice.StringFixed(2),
	}
}

func isFinalizationConflict(err error) bool {
	return errors.Is(err, domain.ErrSeatNotHeld) ||
		errors.Is(err, domain.ErrSeatAlreadyBooked) ||
		errors.Is(err, domain.ErrSeatAlreadyHeld) ||
		errors.Is(err, domain.ErrNoSeatsHeld) ||
		errors.Is(err, domain.ErrRecordNotFound)
}
