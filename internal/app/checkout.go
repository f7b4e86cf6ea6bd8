package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/metinatakli/cinema-booking/internal/seating"
)

// checkoutWebhookGrace keeps seats pinned past the payment session expiry for
// completion events delivered late.
const checkoutWebhookGrace = 5 * time.Minute

func (app *Application) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeID, err := app.readIDParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input CheckoutRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)
	user, err := app.userRepo.GetById(r.Context(), userId)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	extras := toInvoiceExtras(input)

	checkout, err := app.finalizer.Prepare(r.Context(), seating.CheckoutRequest{
		HolderID:   user.HolderID(),
		ShowtimeID: showtimeID,
		Extras:     extras,
	})
	if err != nil {
		app.finalizationErrorResponse(w, r, err)
		return
	}

	seatIDs := checkout.SeatIDs()

	// from here on every failure hands the seats back to the hold countdown
	cancel := func() {
		app.finalizer.Cancel(showtimeID, checkout.HolderID, seatIDs)
	}

	if len(extras.Food) > 0 {
		menu, err := app.foodRepo.GetByIds(r.Context(), extras.FoodIDs())
		if err != nil {
			cancel()
			app.serverErrorResponse(w, r, err)
			return
		}

		err = checkout.AddFood(menu)
		if err != nil {
			cancel()
			app.notFoundResponseWithErr(w, r, err)
			return
		}
	}

	payment := domain.Payment{
		UserID:     userId,
		HolderID:   checkout.HolderID,
		ShowtimeID: showtimeID,
		SeatIDs:    seatIDs,
		Extras:     extras,
		Amount:     checkout.TotalPrice,
		Currency:   "USD",
		Status:     domain.PaymentStatusPending,
	}

	err = app.paymentRepo.Create(r.Context(), &payment)
	if err != nil {
		cancel()
		app.serverErrorResponse(w, r, err)
		return
	}

	checkoutSession, err := app.paymentProvider.CreateCheckoutSession(user, *checkout, payment)
	if err != nil {
		cancel()
		app.serverErrorResponse(w, r, err)
		return
	}

	expiresAt := checkout.ExpiresAt

	// the session can outlive the payment window, the seats must too
	if checkoutSession.ExpiresAt > 0 {
		sessionExpiresAt := time.Unix(checkoutSession.ExpiresAt, 0)
		pinnedUntil := sessionExpiresAt.Add(checkoutWebhookGrace)

		if pinnedUntil.After(checkout.ExpiresAt) {
			err = app.finalizer.Extend(showtimeID, checkout.HolderID, seatIDs, pinnedUntil)
			if err != nil {
				cancel()
				app.serverErrorResponse(w, r, err)
				return
			}

			expiresAt = sessionExpiresAt
		}
	}

	err = app.paymentRepo.AttachCheckoutSession(r.Context(), payment.ID, checkoutSession.ID)
	if err != nil {
		cancel()
		app.serverErrorResponse(w, r, err)
		return
	}

	logger.Info("checkout session created",
		"payment_id", payment.ID,
		"checkout_session_id", checkoutSession.ID,
		"showtime_id", showtimeID,
		"seats", seatIDs,
	)

	resp := CheckoutSessionResponse{
		RedirectUrl: checkoutSession.URL,
		ExpiresAt:   expiresAt,
		TotalPrice:  checkout.TotalPrice,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// finalizationErrorResponse maps errors of the booking finalizer.
func (app *Application) finalizationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNoSeatsHeld):
		app.notFoundResponseWithErr(w, r, err)
	case errors.Is(err, domain.ErrSeatNotHeld),
		errors.Is(err, domain.ErrSeatAlreadyBooked),
		errors.Is(err, domain.ErrSeatAlreadyHeld):
		app.editConflictResponseWithErr(w, r, err)
	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	default:
		app.serverErrorResponse(w, r, err)
	}
}

func toInvoiceExtras(input CheckoutRequest) domain.InvoiceExtras {
	extras := domain.InvoiceExtras{
		VoucherCode: input.VoucherCode,
		PointsUsed:  input.PointsUsed,
	}

	for _, food := range input.Food {
		extras.Food = append(extras.Food, domain.FoodOrder{
			FoodID:   food.FoodId,
			Quantity: food.Quantity,
		})
	}

	return extras
}
