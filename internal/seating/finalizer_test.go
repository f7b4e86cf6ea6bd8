package seating

import (
	"context"
	"errors"
	"time"

	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/metinatakli/cinema-booking/internal/realtime"
	"github.com/shopspring/decimal"
)

func (s *ServiceTestSuite) TestPrepare() {
	tests := []struct {
		name      string
		seats     []int
		setup     func()
		wantErr   error
		wantTotal decimal.Decimal
	}{
		{
			name:    "should fail when nothing is held",
			wantErr: domain.ErrNoSeatsHeld,
		},
		{
			name:      "should price held seats",
			seats:     []int{12, 13},
			wantTotal: decimal.NewFromInt(20),
		},
		{
			name:      "should price couple seats with their extra price",
			seats:     []int{3},
			wantTotal: decimal.NewFromInt(30),
		},
		{
			name:  "should fail when a held seat was booked in the store",
			seats: []int{12},
			setup: func() {
				s.store.book(testShowtime, 12)
			},
			wantErr: domain.ErrSeatAlreadyBooked,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			defer s.TearDownTest()

			a := s.connect("a1", "holder-a", testShowtime)
			for _, seatID := range tt.seats {
				s.selectSeat(a, seatID)
			}

			if tt.setup != nil {
				tt.setup()
			}

			checkout, err := s.finalizer.Prepare(context.Background(), CheckoutRequest{
				HolderID:   "holder-a",
				ShowtimeID: testShowtime,
				Extras:     domain.InvoiceExtras{VoucherCode: "SPRING-10"},
			})

			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)

				for _, h := range s.registry.HeldBy(testShowtime, "holder-a") {
					s.False(h.Pinned)
				}

				return
			}

			s.Require().NoError(err)
			s.True(tt.wantTotal.Equal(checkout.TotalPrice), "total = %s", checkout.TotalPrice)
			s.Equal("SPRING-10", checkout.Extras.VoucherCode)
			s.Equal(testShowtime, checkout.ShowtimeID)

			for _, h := range s.registry.HeldBy(testShowtime, "holder-a") {
				s.True(h.Pinned)
				s.Equal(checkout.ExpiresAt, h.ExpiresAt)
			}

			_, armed := s.countdown.Deadline("holder-a")
			s.False(armed)
		})
	}
}

func (s *ServiceTestSuite) TestPreparedSeatsSurviveCountdownExpiry() {
	s.setup(40 * time.Millisecond)

	a := s.connect("a1", "holder-a", testShowtime)
	s.selectSeat(a, 12)
	s.selectSeat(a, 13)

	_, err := s.finalizer.Prepare(context.Background(), CheckoutRequest{HolderID: "holder-a", ShowtimeID: testShowtime})
	s.Require().NoError(err)

	time.Sleep(100 * time.Millisecond)

	s.Empty(a.ofType(realtime.TypeSessionExpired))

	mine, _ := s.registry.GetHeldSeats(testShowtime, "holder-a")
	s.Equal([]int{12, 13}, mine)

	s.service.Disconnect(a)

	mine, _ = s.registry.GetHeldSeats(testShowtime, "holder-a")
	s.Equal([]int{12, 13}, mine)
}

func (s *ServiceTestSuite) TestExtendedCheckoutOutlivesThePaymentWindow() {
	s.finalizer = NewFinalizer(s.service, s.store, s.invoices, discardLogger(), WithPaymentWindow(20*time.Millisecond))

	a := s.connect("a1", "holder-a", testShowtime)
	s.selectSeat(a, 12)

	checkout, err := s.finalizer.Prepare(context.Background(), CheckoutRequest{HolderID: "holder-a", ShowtimeID: testShowtime})
	s.Require().NoError(err)

	until := time.Now().Add(time.Hour)
	s.Require().NoError(s.finalizer.Extend(testShowtime, "holder-a", checkout.SeatIDs(), until))

	time.Sleep(50 * time.Millisecond)
	s.Zero(s.registry.Sweep())

	holds := s.registry.HeldBy(testShowtime, "holder-a")
	s.Require().Len(holds, 1)
	s.True(holds[0].Pinned)
	s.Equal(until, holds[0].ExpiresAt)

	_, err = s.finalizer.Complete(context.Background(), CompleteRequest{
		HolderID:   "holder-a",
		ShowtimeID: testShowtime,
		SeatIDs:    checkout.SeatIDs(),
	})
	s.Require().NoError(err)
	s.Equal(domain.SeatBooked, s.registry.Status(testShowtime, 12))
}

func (s *ServiceTestSuite) TestExtendFailsForSeatsNoLongerHeld() {
	err := s.finalizer.Extend(testShowtime, "holder-a", []int{12}, time.Now().Add(time.Hour))
	s.ErrorIs(err, domain.ErrSeatNotHeld)
}

func (s *ServiceTestSuite) TestCancelReturnsSeatsToTheCountdown() {
	a := s.connect("a1", "holder-a", testShowtime)
	s.selectSeat(a, 12)

	checkout, err := s.finalizer.Prepare(context.Background(), CheckoutRequest{HolderID: "holder-a", ShowtimeID: testShowtime})
	s.Require().NoError(err)

	s.finalizer.Cancel(testShowtime, "holder-a", checkout.SeatIDs())

	holds := s.registry.HeldBy(testShowtime, "holder-a")
	s.Require().Len(holds, 1)
	s.False(holds[0].Pinned)

	deadline, armed := s.countdown.Deadline("holder-a")
	s.True(armed)
	s.Equal(deadline, holds[0].ExpiresAt)
}

func (s *ServiceTestSuite) TestCompleteAfterPrepare() {
	a := s.connect("a1", "holder-a", testShowtime)
	viewer := s.connect("v1", "viewer", testShowtime)
	s.selectSeat(a, 3)

	checkout, err := s.finalizer.Prepare(context.Background(), CheckoutRequest{HolderID: "holder-a", ShowtimeID: testShowtime})
	s.Require().NoError(err)

	userID := 42
	paymentID := 9

	invoice, err := s.finalizer.Complete(context.Background(), CompleteRequest{
		HolderID:   "holder-a",
		UserID:     &userID,
		ShowtimeID: testShowtime,
		SeatIDs:    checkout.SeatIDs(),
		PaymentID:  &paymentID,
	})
	s.Require().NoError(err)

	s.Equal([]int{3, 4}, invoice.SeatIDs)
	s.True(decimal.NewFromInt(30).Equal(invoice.SeatTotal))
	s.Equal(&paymentID, invoice.PaymentID)
	s.Regexp(`^INV-[0-9A-F]{12}$`, invoice.Code)

	s.Equal(0, s.registry.Size())
	s.Equal(domain.SeatBooked, s.registry.Status(testShowtime, 3))
	s.Equal([]int{3, 4}, seatIDsOf(viewer.ofType(realtime.TypeSeatStatusChanged)))
}

func (s *ServiceTestSuite) TestCompleteFailsWithoutChangingSeats() {
	tests := []struct {
		name    string
		setup   func(a *fakeClient)
		req     CompleteRequest
		wantErr error
		wantSet []int
	}{
		{
			name:    "should fail when seats are not held by the holder",
			setup:   func(a *fakeClient) { s.selectSeat(a, 12) },
			req:     CompleteRequest{HolderID: "holder-a", ShowtimeID: testShowtime, SeatIDs: []int{12, 14}},
			wantErr: domain.ErrSeatNotHeld,
			wantSet: []int{12},
		},
		{
			name: "should fail when a seat was booked by a racing request",
			setup: func(a *fakeClient) {
				s.selectSeat(a, 12)
				s.store.book(testShowtime, 12)
			},
			req:     CompleteRequest{HolderID: "holder-a", ShowtimeID: testShowtime},
			wantErr: domain.ErrSeatAlreadyBooked,
			wantSet: []int{12},
		},
		{
			name: "should fail when the invoice cannot be stored",
			setup: func(a *fakeClient) {
				s.selectSeat(a, 12)
				s.invoices.err = errors.New("connection reset")
			},
			req:     CompleteRequest{HolderID: "holder-a", ShowtimeID: testShowtime},
			wantSet: []int{12},
		},
		{
			name:    "should fail when nothing is held",
			req:     CompleteRequest{HolderID: "holder-a", ShowtimeID: testShowtime},
			wantErr: domain.ErrNoSeatsHeld,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			defer s.TearDownTest()

			a := s.connect("a1", "holder-a", testShowtime)
			if tt.setup != nil {
				tt.setup(a)
			}

			invoice, err := s.finalizer.Complete(context.Background(), tt.req)

			s.Require().Error(err)
			s.Nil(invoice)
			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
			}

			holds := s.registry.HeldBy(testShowtime, "holder-a")
			s.Len(holds, len(tt.wantSet))
			for i, h := range holds {
				s.Equal(tt.wantSet[i], h.SeatID)
				s.False(h.Pinned)
			}

			s.Empty(a.ofType(realtime.TypeSeatStatusChanged))
		})
	}
}

func (s *ServiceTestSuite) TestAbortReleasesPinnedSeats() {
	a := s.connect("a1", "holder-a", testShowtime)
	viewer := s.connect("v1", "viewer", testShowtime)
	s.selectSeat(a, 12)

	checkout, err := s.finalizer.Prepare(context.Background(), CheckoutRequest{HolderID: "holder-a", ShowtimeID: testShowtime})
	s.Require().NoError(err)

	released := s.finalizer.Abort(testShowtime, "holder-a", checkout.SeatIDs())
	s.Equal([]int{12}, released)

	s.Equal(0, s.registry.Size())
	s.Equal([]int{12}, seatIDsOf(viewer.ofType(realtime.TypeSeatDeselected)))
	s.Len(viewer.ofType(realtime.TypeSeatsReleased), 1)
}
