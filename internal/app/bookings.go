package app

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/metinatakli/cinema-booking/internal/seating"
)

// CreateBoxOfficeBooking books the seats the staff member holds on the
// showtime right away, for sales paid at the counter.
func (app *Application) CreateBoxOfficeBooking(w http.ResponseWriter, r *http.Request) {
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

	invoice, err := app.finalizer.Complete(r.Context(), seating.CompleteRequest{
		HolderID:   domain.UserHolderID(userId),
		UserID:     &userId,
		ShowtimeID: showtimeID,
		Extras:     toInvoiceExtras(input),
	})
	if err != nil {
		if isFinalizationConflict(err) {
			app.metrics.BookingsTotal.WithLabelValues("conflict").Inc()
		} else {
			app.metrics.BookingsTotal.WithLabelValues("failed").Inc()
		}

		app.finalizationErrorResponse(w, r, err)
		return
	}

	app.metrics.BookingsTotal.WithLabelValues("completed").Inc()

	err = app.writeJSON(w, http.StatusCreated, toBookingResponse(invoice), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBookingByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	invoice, err := app.invoiceRepo.GetByCode(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	// other customers' bookings are reported as missing
	userId := app.contextGetUserId(r)
	if invoice.UserID == nil || *invoice.UserID != userId {
		app.notFoundResponse(w, r)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(invoice), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toBookingResponse(invoice *domain.Invoice) BookingResponse {
	resp := BookingResponse{
		Code:        invoice.Code,
		ShowtimeId:  invoice.ShowtimeID,
		SeatIds:     invoice.SeatIDs,
		VoucherCode: invoice.Extras.VoucherCode,
		PointsUsed:  invoice.Extras.PointsUsed,
		SeatTotal:   invoice.SeatTotal,
		FoodTotal:   invoice.FoodTotal,
		TotalPrice:  invoice.TotalPrice,
		CreatedAt:   invoice.CreatedAt,
	}

	for _, food := range invoice.Extras.Food {
		resp.Food = append(resp.Food, FoodOrderItem{
			FoodId:   food.FoodID,
			Quantity: food.Quantity,
		})
	}

	return resp
}
