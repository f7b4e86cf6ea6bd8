package seating

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/metinatakli/cinema-booking/internal/domain"
)

const (
	DefaultMaxSeats   = 8
	DefaultHoldWindow = 60 * time.Second
)

type EventKind int

const (
	EventHeld EventKind = iota + 1
	EventReleased
	EventBooked
)

func (k EventKind) String() string {
	switch k {
	case EventHeld:
		return "held"
	case EventReleased:
		return "released"
	case EventBooked:
		return "booked"
	default:
		return "unknown"
	}
}

type ReleaseReason string

const (
	ReasonDeselect        ReleaseReason = "deselect"
	ReasonExpired         ReleaseReason = "expired"
	ReasonDisconnect      ReleaseReason = "disconnect"
	ReasonCheckoutAborted ReleaseReason = "checkout_aborted"
	ReasonHoldLimit       ReleaseReason = "hold_limit"
)

// Event describes one registry mutation on a single showtime.
type Event struct {
	Kind       EventKind
	ShowtimeID int
	HolderID   string
	SeatIDs    []int
	Reason     ReleaseReason
}

// Observer is notified of every mutation while the showtime lock is held, so
// notifications for a seat arrive in mutation order. OnSeatEvent must not block
// and must not call back into the Registry.
type Observer interface {
	OnSeatEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnSeatEvent(e Event) {
	f(e)
}

type Observers []Observer

func (o Observers) OnSeatEvent(e Event) {
	for _, observer := range o {
		observer.OnSeatEvent(e)
	}
}

type StatusReader interface {
	GetSeatStatus(ctx context.Context, showtimeID, seatID int) (domain.SeatStatus, error)
}

// Registry is the in-memory table of seat holds, partitioned by showtime.
// Every check-then-set on a showtime runs under that showtime's mutex.
type Registry struct {
	mu    sync.RWMutex
	shows map[int]*showHolds

	seats    StatusReader
	couples  PartnerResolver
	maxSeats int
	window   time.Duration
	now      func() time.Time
	deadline func(holderID string) time.Time
	observer Observer
}

type showHolds struct {
	mu     sync.Mutex
	holds  map[int]*domain.Hold
	booked map[int]struct{}
}

type Option func(*Registry)

func WithMaxSeats(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxSeats = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithHoldWindow sets the expiry of new holds when no deadline source is set.
func WithHoldWindow(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithDeadline makes every hold of a holder share the deadline returned by fn.
func WithDeadline(fn func(holderID string) time.Time) Option {
	return func(r *Registry) {
		r.deadline = fn
	}
}

func WithObserver(observers ...Observer) Option {
	return func(r *Registry) {
		r.observer = Observers(observers)
	}
}

func NewRegistry(seats StatusReader, couples PartnerResolver, opts ...Option) *Registry {
	r := &Registry{
		shows:    make(map[int]*showHolds),
		seats:    seats,
		couples:  couples,
		maxSeats: DefaultMaxSeats,
		window:   DefaultHoldWindow,
		now:      time.Now,
		observer: Observers(nil),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.deadline == nil {
		r.deadline = func(string) time.Time {
			return r.now().Add(r.window)
		}
	}

	return r
}

func (r *Registry) SetObserver(observers ...Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observer = Observers(observers)
}

func (r *Registry) SetDeadline(fn func(holderID string) time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deadline = fn
}

func (r *Registry) MaxSeats() int {
	return r.maxSeats
}

func (r *Registry) show(showtimeID int) *showHolds {
	r.mu.RLock()
	sh, ok := r.shows[showtimeID]
	r.mu.RUnlock()

	if ok {
		return sh
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sh, ok = r.shows[showtimeID]
	if !ok {
		sh = &showHolds{
			holds:  make(map[int]*domain.Hold),
			booked: make(map[int]struct{}),
		}
		r.shows[showtimeID] = sh
	}

	return sh
}

func (r *Registry) lookup(showtimeID int) (*showHolds, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sh, ok := r.shows[showtimeID]
	return sh, ok
}

func (r *Registry) snapshot() map[int]*showHolds {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shows := make(map[int]*showHolds, len(r.shows))
	for id, sh := range r.shows {
		shows[id] = sh
	}

	return shows
}

func (r *Registry) notify(e Event) {
	r.mu.RLock()
	observer := r.observer
	r.mu.RUnlock()

	if observer != nil && len(e.SeatIDs) > 0 {
		observer.OnSeatEvent(e)
	}
}

func (r *Registry) holdDeadline(holderID string) time.Time {
	r.mu.RLock()
	fn := r.deadline
	r.mu.RUnlock()

	return fn(holderID)
}

// TryHold holds seatID, and its couple partner if it has one, for holderID.
// The pair is held all-or-nothing. Holding a seat the holder already has is a
// no-op that still succeeds. The returned ids are every seat the call covers.
func (r *Registry) TryHold(ctx context.Context, showtimeID, seatID int, holderID string) ([]int, error) {
	seatIDs, err := r.withPartner(ctx, seatID)
	if err != nil {
		return nil, err
	}

	for _, id := range seatIDs {
		status, err := r.seats.GetSeatStatus(ctx, showtimeID, id)
		if err != nil {
			return nil, fmt.Errorf("seat %d: %w", id, err)
		}

		if status == domain.SeatBooked {
			return nil, domain.ErrSeatAlreadyBooked
		}
	}

	sh := r.show(showtimeID)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := r.now()

	var (
		fresh []int
		stale = make(map[string][]int)
	)

	for _, id := range seatIDs {
		if _, ok := sh.booked[id]; ok {
			return nil, domain.ErrSeatAlreadyBooked
		}

		h, ok := sh.holds[id]
		switch {
		case !ok:
			fresh = append(fresh, id)
		case h.Expired(now):
			if h.HolderID != holderID {
				stale[h.HolderID] = append(stale[h.HolderID], id)
			}
			fresh = append(fresh, id)
		case h.HolderID != holderID:
			return nil, domain.ErrSeatAlreadyHeld
		}
	}

	if sh.activeCount(holderID, now)+len(fresh) > r.maxSeats {
		return nil, domain.ErrHoldLimitExceeded
	}

	for holder, ids := range stale {
		for _, id := range ids {
			delete(sh.holds, id)
		}

		r.notify(Event{
			Kind:       EventReleased,
			ShowtimeID: showtimeID,
			HolderID:   holder,
			SeatIDs:    ids,
			Reason:     ReasonExpired,
		})
	}

	if len(fresh) == 0 {
		return seatIDs, nil
	}

	expiresAt := r.holdDeadline(holderID)

	for _, id := range fresh {
		sh.holds[id] = &domain.Hold{
			ShowtimeID: showtimeID,
			SeatID:     id,
			HolderID:   holderID,
			ExpiresAt:  expiresAt,
		}
	}

	r.notify(Event{
		Kind:       EventHeld,
		ShowtimeID: showtimeID,
		HolderID:   holderID,
		SeatIDs:    fresh,
	})

	return seatIDs, nil
}

// Release drops the holder's hold on seatID and on its partner when the same
// holder holds it. Seats held by someone else are left untouched.
func (r *Registry) Release(ctx context.Context, showtimeID, seatID int, holderID string) ([]int, error) {
	seatIDs, err := r.withPartner(ctx, seatID)
	if err != nil {
		return nil, err
	}

	sh, ok := r.lookup(showtimeID)
	if !ok {
		return nil, nil
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	h, ok := sh.holds[seatID]
	if !ok || h.HolderID != holderID {
		return nil, nil
	}

	var released []int

	for _, id := range seatIDs {
		h, ok := sh.holds[id]
		if !ok || h.HolderID != holderID {
			continue
		}

		if h.Pinned {
			return nil, domain.ErrSeatInCheckout
		}

		released = append(released, id)
	}

	for _, id := range released {
		delete(sh.holds, id)
	}

	r.notify(Event{
		Kind:       EventReleased,
		ShowtimeID: showtimeID,
		HolderID:   holderID,
		SeatIDs:    released,
		Reason:     ReasonDeselect,
	})

	return released, nil
}

// ReleaseAll drops every unpinned hold of holderID across all showtimes and
// returns the released seat ids keyed by showtime.
func (r *Registry) ReleaseAll(holderID string, reason ReleaseReason) map[int][]int {
	released := make(map[int][]int)

	for showtimeID, sh := range r.snapshot() {
		sh.mu.Lock()

		var ids []int
		for id, h := range sh.holds {
			if h.HolderID == holderID && !h.Pinned {
				ids = append(ids, id)
			}
		}

		slices.Sort(ids)

		for _, id := range ids {
			delete(sh.holds, id)
		}

		r.notify(Event{
			Kind:       EventReleased,
			ShowtimeID: showtimeID,
			HolderID:   holderID,
			SeatIDs:    ids,
			Reason:     reason,
		})

		sh.mu.Unlock()

		if len(ids) > 0 {
			released[showtimeID] = ids
		}
	}

	return released
}

// ReleaseSeats drops the listed holds of holderID, pinned or not.
func (r *Registry) ReleaseSeats(showtimeID int, holderID string, seatIDs []int, reason ReleaseReason) []int {
	sh, ok := r.lookup(showtimeID)
	if !ok {
		return nil
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	var released []int

	for _, id := range seatIDs {
		h, ok := sh.holds[id]
		if !ok || h.HolderID != holderID {
			continue
		}

		delete(sh.holds, id)
		released = append(released, id)
	}

	r.notify(Event{
		Kind:       EventReleased,
		ShowtimeID: showtimeID,
		HolderID:   holderID,
		SeatIDs:    released,
		Reason:     reason,
	})

	return released
}

// GetHeldSeats splits the active holds of a showtime into those owned by
// holderID and those owned by anyone else.
func (r *Registry) GetHeldSeats(showtimeID int, holderID string) (mine, others []int) {
	mine, others = []int{}, []int{}

	sh, ok := r.lookup(showtimeID)
	if !ok {
		return mine, others
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := r.now()

	for id, h := range sh.holds {
		if h.Expired(now) {
			continue
		}

		if h.HolderID == holderID {
			mine = append(mine, id)
		} else {
			others = append(others, id)
		}
	}

	slices.Sort(mine)
	slices.Sort(others)

	return mine, others
}

// HeldBy returns the active holds of holderID on a showtime ordered by seat.
func (r *Registry) HeldBy(showtimeID int, holderID string) []domain.Hold {
	sh, ok := r.lookup(showtimeID)
	if !ok {
		return nil
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := r.now()

	var holds []domain.Hold
	for _, h := range sh.holds {
		if h.HolderID == holderID && !h.Expired(now) {
			holds = append(holds, *h)
		}
	}

	slices.SortFunc(holds, func(a, b domain.Hold) int {
		return a.SeatID - b.SeatID
	})

	return holds
}

// Count returns how many active, unpinned holds holderID has over all showtimes.
func (r *Registry) Count(holderID string) int {
	now := r.now()
	count := 0

	for _, sh := range r.snapshot() {
		sh.mu.Lock()
		for _, h := range sh.holds {
			if h.HolderID == holderID && !h.Pinned && !h.Expired(now) {
				count++
			}
		}
		sh.mu.Unlock()
	}

	return count
}

// Size returns the number of holds currently stored.
func (r *Registry) Size() int {
	size := 0

	for _, sh := range r.snapshot() {
		sh.mu.Lock()
		size += len(sh.holds)
		sh.mu.Unlock()
	}

	return size
}

// Status reports the in-memory state of a seat. Seats unknown to the
// registry are reported as available.
func (r *Registry) Status(showtimeID, seatID int) domain.SeatStatus {
	sh, ok := r.lookup(showtimeID)
	if !ok {
		return domain.SeatAvailable
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.booked[seatID]; ok {
		return domain.SeatBooked
	}

	if h, ok := sh.holds[seatID]; ok && !h.Expired(r.now()) {
		return domain.SeatHeld
	}

	return domain.SeatAvailable
}

// MarkBooked removes any holds on seatIDs and records them as booked. It is
// only called once the invoice for these seats has been persisted.
func (r *Registry) MarkBooked(showtimeID int, seatIDs []int) {
	sh := r.show(showtimeID)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	holderID := ""

	for _, id := range seatIDs {
		if h, ok := sh.holds[id]; ok {
			holderID = h.HolderID
			delete(sh.holds, id)
		}

		sh.booked[id] = struct{}{}
	}

	r.notify(Event{
		Kind:       EventBooked,
		ShowtimeID: showtimeID,
		HolderID:   holderID,
		SeatIDs:    slices.Clone(seatIDs),
	})
}

// Pin moves active holds of holderID into checkout state until the given time.
// A pinned hold only ever gets a later deadline. It returns the seats that were
// not pinned before the call.
func (r *Registry) Pin(showtimeID int, holderID string, seatIDs []int, until time.Time) ([]int, error) {
	sh, ok := r.lookup(showtimeID)
	if !ok {
		return nil, domain.ErrSeatNotHeld
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := r.now()

	for _, id := range seatIDs {
		if _, ok := sh.booked[id]; ok {
			return nil, domain.ErrSeatAlreadyBooked
		}

		h, ok := sh.holds[id]
		if !ok || h.HolderID != holderID || h.Expired(now) {
			return nil, domain.ErrSeatNotHeld
		}
	}

	var pinned []int

	for _, id := range seatIDs {
		h := sh.holds[id]
		if !h.Pinned {
			pinned = append(pinned, id)
		} else if h.ExpiresAt.After(until) {
			continue
		}

		h.Pinned = true
		h.ExpiresAt = until
	}

	return pinned, nil
}

// Unpin returns pinned holds to the regular countdown of their holder.
func (r *Registry) Unpin(showtimeID int, holderID string, seatIDs []int) {
	if len(seatIDs) == 0 {
		return
	}

	sh, ok := r.lookup(showtimeID)
	if !ok {
		return
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	var expiresAt time.Time

	for _, id := range seatIDs {
		h, ok := sh.holds[id]
		if !ok || h.HolderID != holderID || !h.Pinned {
			continue
		}

		if expiresAt.IsZero() {
			expiresAt = r.holdDeadline(holderID)
		}

		h.Pinned = false
		h.ExpiresAt = expiresAt
	}
}

// Transfer hands every hold of from over to to. Pinned holds keep their
// deadline, the others take the deadline of to. When the holds from has on a
// showtime would put to over the seat limit, none of them move: they are
// released instead, which keeps couple pairs whole.
func (r *Registry) Transfer(from, to string) (moved, released map[int][]int) {
	moved = make(map[int][]int)
	released = make(map[int][]int)

	if from == to {
		return moved, released
	}

	now := r.now()

	var deadline time.Time

	for showtimeID, sh := range r.snapshot() {
		sh.mu.Lock()

		var ids []int
		incoming := 0

		for id, h := range sh.holds {
			if h.HolderID != from {
				continue
			}

			ids = append(ids, id)
			if !h.Expired(now) {
				incoming++
			}
		}

		if len(ids) == 0 {
			sh.mu.Unlock()
			continue
		}

		slices.Sort(ids)

		if incoming > 0 && sh.activeCount(to, now)+incoming > r.maxSeats {
			for _, id := range ids {
				delete(sh.holds, id)
			}

			released[showtimeID] = ids

			r.notify(Event{
				Kind:       EventReleased,
				ShowtimeID: showtimeID,
				HolderID:   from,
				SeatIDs:    slices.Clone(ids),
				Reason:     ReasonHoldLimit,
			})

			sh.mu.Unlock()
			continue
		}

		for _, id := range ids {
			h := sh.holds[id]
			h.HolderID = to

			if h.Pinned || h.Expired(now) {
				continue
			}

			if deadline.IsZero() {
				deadline = r.holdDeadline(to)
			}

			h.ExpiresAt = deadline
		}

		moved[showtimeID] = ids

		sh.mu.Unlock()
	}

	return moved, released
}

// Sweep drops every hold whose deadline has passed, pinned ones included,
// and returns how many were dropped.
func (r *Registry) Sweep() int {
	now := r.now()
	swept := 0

	for showtimeID, sh := range r.snapshot() {
		sh.mu.Lock()

		expired := make(map[string][]int)
		for id, h := range sh.holds {
			if h.Expired(now) {
				expired[h.HolderID] = append(expired[h.HolderID], id)
			}
		}

		for holderID, ids := range expired {
			slices.Sort(ids)

			for _, id := range ids {
				delete(sh.holds, id)
			}

			swept += len(ids)

			r.notify(Event{
				Kind:       EventReleased,
				ShowtimeID: showtimeID,
				HolderID:   holderID,
				SeatIDs:    ids,
				Reason:     ReasonExpired,
			})
		}

		sh.mu.Unlock()
	}

	return swept
}

func (r *Registry) withPartner(ctx context.Context, seatID int) ([]int, error) {
	if r.couples == nil {
		return []int{seatID}, nil
	}

	partnerID, ok, err := r.couples.Partner(ctx, seatID)
	if err != nil {
		return nil, fmt.Errorf("couple seat lookup for seat %d: %w", seatID, err)
	}

	if !ok || partnerID == seatID {
		return []int{seatID}, nil
	}

	return []int{seatID, partnerID}, nil
}

func (sh *showHolds) activeCount(holderID string, now time.Time) int {
	count := 0

	for _, h := range sh.holds {
		if h.HolderID == holderID && !h.Expired(now) {
			count++
		}
	}

	return count
}
