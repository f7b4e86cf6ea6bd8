package seating

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/metinatakli/cinema-booking/internal/realtime"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// fakeSeatStore knows seats 1..40 on every showtime. Seats 3 and 4 are couple seats.
type fakeSeatStore struct {
	mu        sync.Mutex
	booked    map[int]map[int]bool
	statusErr error
}

func newFakeSeatStore() *fakeSeatStore {
	return &fakeSeatStore{booked: make(map[int]map[int]bool)}
}

func (s *fakeSeatStore) book(showtimeID int, seatIDs ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.booked[showtimeID] == nil {
		s.booked[showtimeID] = make(map[int]bool)
	}

	for _, id := range seatIDs {
		s.booked[showtimeID][id] = true
	}
}

func (s *fakeSeatStore) GetSeatStatus(_ context.Context, showtimeID, seatID int) (domain.SeatStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.statusErr != nil {
		return domain.SeatAvailable, s.statusErr
	}

	if seatID < 1 || seatID > 40 {
		return domain.SeatAvailable, domain.ErrRecordNotFound
	}

	if s.booked[showtimeID][seatID] {
		return domain.SeatBooked, nil
	}

	return domain.SeatAvailable, nil
}

func (s *fakeSeatStore) GetSeatsByShowtimeAndSeatIds(
	_ context.Context,
	showtimeID int,
	seatIDs []int) (*domain.ShowtimeSeats, error) {

	showtimeSeats := &domain.ShowtimeSeats{
		ShowtimeID:  showtimeID,
		TheaterName: "Downtown",
		MovieName:   "Arrival",
		HallName:    "Hall 1",
		BasePrice:   decimal.NewFromInt(10),
	}

	for _, id := range seatIDs {
		if id < 1 || id > 40 {
			continue
		}

		seat := domain.Seat{ID: id, Row: (id-1)/10 + 1, Col: (id-1)%10 + 1, Type: "regular", ExtraPrice: decimal.Zero}
		if id == 3 || id == 4 {
			seat.Type = "couple"
			seat.ExtraPrice = decimal.NewFromInt(5)
		}

		showtimeSeats.Seats = append(showtimeSeats.Seats, seat)
	}

	return showtimeSeats, nil
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	store    *fakeSeatStore
	invoices []*domain.Invoice
	err      error
}

func (r *fakeInvoiceRepo) Create(_ context.Context, invoice *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.store.book(invoice.ShowtimeID, invoice.SeatIDs...)

	invoice.ID = len(r.invoices) + 1
	r.invoices = append(r.invoices, invoice)

	return nil
}

func (r *fakeInvoiceRepo) GetByCode(_ context.Context, code string) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, invoice := range r.invoices {
		if invoice.Code == code {
			return invoice, nil
		}
	}

	return nil, domain.ErrRecordNotFound
}

func (r *fakeInvoiceRepo) GetBookedSeatIDs(_ context.Context, showtimeID int) ([]int, error) {
	return nil, errors.New("not implemented")
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) OnSeatEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.SeatIDs = slices.Clone(e.SeatIDs)
	slices.Sort(e.SeatIDs)
	r.events = append(r.events, e)
}

func (r *eventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.events)
}

func (r *eventRecorder) ofKind(kind EventKind) []Event {
	var events []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			events = append(events, e)
		}
	}

	return events
}

type fakeClient struct {
	id       string
	holderID string

	mu       sync.Mutex
	messages []realtime.Message
	closed   bool
}

func newFakeClient(id, holderID string) *fakeClient {
	return &fakeClient{id: id, holderID: holderID}
}

func (c *fakeClient) ID() string {
	return c.id
}

func (c *fakeClient) HolderID() string {
	return c.holderID
}

func (c *fakeClient) Send(msg realtime.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return realtime.ErrClientClosed
	}

	c.messages = append(c.messages, msg)

	return nil
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
}

func (c *fakeClient) Messages() []realtime.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.messages)
}

func (c *fakeClient) ofType(t realtime.MessageType) []realtime.Message {
	var messages []realtime.Message
	for _, msg := range c.Messages() {
		if msg.Type == t {
			messages = append(messages, msg)
		}
	}

	return messages
}

func (c *fakeClient) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = nil
}
