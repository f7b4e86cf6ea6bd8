package seating

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/shopspring/decimal"
)

const DefaultPaymentWindow = 10 * time.Minute

type SeatCatalog interface {
	StatusReader
	GetSeatsByShowtimeAndSeatIds(ctx context.Context, showtimeID int, seatIDs []int) (*domain.ShowtimeSeats, error)
}

// Finalizer turns a holder's held seats into a persisted invoice. Seats are
// re-validated against the registry and the store right before persisting.
type Finalizer struct {
	service       *Service
	seats         SeatCatalog
	invoices      domain.InvoiceRepository
	paymentWindow time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

type FinalizerOption func(*Finalizer)

func WithPaymentWindow(d time.Duration) FinalizerOption {
	return func(f *Finalizer) {
		if d > 0 {
			f.paymentWindow = d
		}
	}
}

func WithFinalizerClock(now func() time.Time) FinalizerOption {
	return func(f *Finalizer) {
		if now != nil {
			f.now = now
		}
	}
}

func NewFinalizer(
	service *Service,
	seats SeatCatalog,
	invoices domain.InvoiceRepository,
	logger *slog.Logger,
	opts ...FinalizerOption) *Finalizer {

	f := &Finalizer{
		service:       service,
		seats:         seats,
		invoices:      invoices,
		paymentWindow: DefaultPaymentWindow,
		now:           time.Now,
		logger:        logger,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

type CheckoutRequest struct {
	HolderID   string
	ShowtimeID int
	Extras     domain.InvoiceExtras
}

// Prepare pins every seat the holder holds on the showtime for the payment
// window and prices them. Pinned seats survive deselect, disconnect and the
// hold countdown.
func (f *Finalizer) Prepare(ctx context.Context, req CheckoutRequest) (*domain.Checkout, error) {
	unlock := f.service.lock(req.HolderID)
	defer unlock()

	registry := f.service.registry

	holds := registry.HeldBy(req.ShowtimeID, req.HolderID)
	if len(holds) == 0 {
		return nil, domain.ErrNoSeatsHeld
	}

	seatIDs := make([]int, len(holds))
	for i, h := range holds {
		seatIDs[i] = h.SeatID
	}

	showtimeSeats, err := f.validate(ctx, req.ShowtimeID, seatIDs)
	if err != nil {
		return nil, err
	}

	until := f.now().Add(f.paymentWindow)

	_, err = registry.Pin(req.ShowtimeID, req.HolderID, seatIDs, until)
	if err != nil {
		return nil, err
	}

	f.service.stopIfIdle(req.HolderID)

	checkout := domain.NewCheckout(req.HolderID, showtimeSeats, until)
	checkout.Extras = req.Extras

	f.logger.Info("checkout prepared",
		"holder_id", req.HolderID,
		"showtime_id", req.ShowtimeID,
		"seats", seatIDs,
		"expires_at", until,
	)

	return &checkout, nil
}

// Extend keeps seats pinned by Prepare until the given time, so they outlive
// a payment session that expires later than the payment window.
func (f *Finalizer) Extend(showtimeID int, holderID string, seatIDs []int, until time.Time) error {
	unlock := f.service.lock(holderID)
	defer unlock()

	_, err := f.service.registry.Pin(showtimeID, holderID, seatIDs, until)
	if err != nil {
		return err
	}

	f.logger.Info("checkout extended",
		"holder_id", holderID,
		"showtime_id", showtimeID,
		"seats", seatIDs,
		"expires_at", until,
	)

	return nil
}

// Cancel returns seats pinned by Prepare to the holder's countdown, for a
// checkout that could not be started.
func (f *Finalizer) Cancel(showtimeID int, holderID string, seatIDs []int) {
	unlock := f.service.lock(holderID)
	defer unlock()

	f.service.registry.Unpin(showtimeID, holderID, seatIDs)
}

type CompleteRequest struct {
	HolderID   string
	UserID     *int
	ShowtimeID int
	// SeatIDs defaults to every seat the holder holds on the showtime.
	SeatIDs   []int
	Extras    domain.InvoiceExtras
	PaymentID *int
}

// Complete persists the invoice and marks its seats booked. On any failure
// no seat changes state except for pins taken by this call being undone.
func (f *Finalizer) Complete(ctx context.Context, req CompleteRequest) (*domain.Invoice, error) {
	unlock := f.service.lock(req.HolderID)
	defer unlock()

	registry := f.service.registry

	seatIDs := slices.Clone(req.SeatIDs)
	if len(seatIDs) == 0 {
		for _, h := range registry.HeldBy(req.ShowtimeID, req.HolderID) {
			seatIDs = append(seatIDs, h.SeatID)
		}
	}

	if len(seatIDs) == 0 {
		return nil, domain.ErrNoSeatsHeld
	}

	slices.Sort(seatIDs)
	seatIDs = slices.Compact(seatIDs)

	pinned, err := registry.Pin(req.ShowtimeID, req.HolderID, seatIDs, f.now().Add(f.paymentWindow))
	if err != nil {
		return nil, err
	}

	showtimeSeats, err := f.validate(ctx, req.ShowtimeID, seatIDs)
	if err != nil {
		registry.Unpin(req.ShowtimeID, req.HolderID, pinned)
		return nil, err
	}

	checkout := domain.NewCheckout(req.HolderID, showtimeSeats, time.Time{})

	invoice := &domain.Invoice{
		Code:       newInvoiceCode(),
		HolderID:   req.HolderID,
		UserID:     req.UserID,
		ShowtimeID: req.ShowtimeID,
		SeatIDs:    seatIDs,
		Extras:     req.Extras,
		SeatTotal:  checkout.SeatTotal,
		FoodTotal:  decimal.Zero,
		TotalPrice: checkout.SeatTotal,
		PaymentID:  req.PaymentID,
	}

	err = f.invoices.Create(ctx, invoice)
	if err != nil {
		registry.Unpin(req.ShowtimeID, req.HolderID, pinned)
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	registry.MarkBooked(req.ShowtimeID, seatIDs)
	f.service.stopIfIdle(req.HolderID)

	f.logger.Info("booking finalized",
		"invoice_code", invoice.Code,
		"holder_id", req.HolderID,
		"showtime_id", req.ShowtimeID,
		"seats", seatIDs,
	)

	return invoice, nil
}

// Abort releases seats of a checkout that will not be paid.
func (f *Finalizer) Abort(showtimeID int, holderID string, seatIDs []int) []int {
	unlock := f.service.lock(holderID)
	defer unlock()

	released := f.service.registry.ReleaseSeats(showtimeID, holderID, seatIDs, ReasonCheckoutAborted)
	f.service.stopIfIdle(holderID)

	if len(released) > 0 {
		f.logger.Info("checkout aborted", "holder_id", holderID, "showtime_id", showtimeID, "seats", released)
	}

	return released
}

// validate checks that no seat was booked behind the registry's back and
// loads the seats with their prices.
func (f *Finalizer) validate(ctx context.Context, showtimeID int, seatIDs []int) (*domain.ShowtimeSeats, error) {
	for _, seatID := range seatIDs {
		status, err := f.seats.GetSeatStatus(ctx, showtimeID, seatID)
		if err != nil {
			return nil, fmt.Errorf("seat %d: %w", seatID, err)
		}

		if status == domain.SeatBooked {
			return nil, domain.ErrSeatAlreadyBooked
		}
	}

	showtimeSeats, err := f.seats.GetSeatsByShowtimeAndSeatIds(ctx, showtimeID, seatIDs)
	if err != nil {
		return nil, err
	}

	if len(showtimeSeats.Seats) != len(seatIDs) {
		return nil, domain.ErrRecordNotFound
	}

	return showtimeSeats, nil
}

func newInvoiceCode() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "INV-" + strings.ToUpper(id[:12])
}
