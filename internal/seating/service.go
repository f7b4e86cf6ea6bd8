package seating

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/metinatakli/cinema-booking/internal/realtime"
)

type SessionPolicy string

const (
	// PolicyShared lets a holder keep any number of open connections.
	PolicyShared SessionPolicy = "shared"
	// PolicySingle refuses a second connection for an already connected holder.
	PolicySingle SessionPolicy = "single"
)

const lockStripes = 64

var ErrNotJoined = errors.New("join a showtime before selecting seats")

// Service coordinates the registry, the countdown and the hub for realtime
// clients. Operations of one holder are serialized.
type Service struct {
	registry  *Registry
	countdown *Countdown
	hub       *realtime.Hub
	logger    *slog.Logger
	policy    SessionPolicy

	locks [lockStripes]sync.Mutex

	expiredMu sync.Mutex
	expired   map[string]struct{}
}

type ServiceOption func(*Service)

func WithSessionPolicy(policy SessionPolicy) ServiceOption {
	return func(s *Service) {
		if policy == PolicySingle || policy == PolicyShared {
			s.policy = policy
		}
	}
}

func NewService(
	registry *Registry,
	countdown *Countdown,
	hub *realtime.Hub,
	logger *slog.Logger,
	opts ...ServiceOption) *Service {

	s := &Service{
		registry:  registry,
		countdown: countdown,
		hub:       hub,
		logger:    logger,
		policy:    PolicyShared,
		expired:   make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	registry.SetDeadline(countdown.Arm)
	countdown.OnExpire(s.expire)

	return s
}

func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) Countdown() *Countdown {
	return s.countdown
}

func (s *Service) stripe(holderID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(holderID))

	return h.Sum32() % lockStripes
}

func (s *Service) lock(holderID string) func() {
	mu := &s.locks[s.stripe(holderID)]
	mu.Lock()

	return mu.Unlock
}

// lockPair locks two holders, always taking the lower stripe first.
func (s *Service) lockPair(a, b string) func() {
	i, j := s.stripe(a), s.stripe(b)
	if i == j {
		return s.lock(a)
	}

	if i > j {
		i, j = j, i
	}

	s.locks[i].Lock()
	s.locks[j].Lock()

	return func() {
		s.locks[j].Unlock()
		s.locks[i].Unlock()
	}
}

func (s *Service) Connect(c realtime.Client) error {
	unlock := s.lock(c.HolderID())
	defer unlock()

	if s.policy == PolicySingle && s.hub.Connections(c.HolderID()) > 0 {
		s.hub.SendToClient(c, realtime.AccountInUse())
		return domain.ErrAccountInUse
	}

	s.hub.Register(c)

	s.logger.Info("realtime client connected", "client_id", c.ID(), "holder_id", c.HolderID())

	return nil
}

// Join moves the client to showtimeID and sends it the current hold snapshot.
// Joining also lifts an expired-session block on the holder.
func (s *Service) Join(ctx context.Context, c realtime.Client, showtimeID int) error {
	unlock := s.lock(c.HolderID())
	defer unlock()

	s.clearExpired(c.HolderID())
	s.hub.Join(showtimeID, c)

	mine, others := s.registry.GetHeldSeats(showtimeID, c.HolderID())
	s.hub.SendToClient(c, realtime.HeldSeats(mine, others))

	return nil
}

func (s *Service) Select(ctx context.Context, c realtime.Client, showtimeID, seatID int) error {
	holderID := c.HolderID()

	if current, ok := s.hub.GroupOf(c); !ok || current != showtimeID {
		s.hub.SendToClient(c, realtime.HoldRejected(seatID, ErrNotJoined.Error()))
		return nil
	}

	unlock := s.lock(holderID)
	defer unlock()

	if s.isExpired(holderID) {
		s.hub.SendToClient(c, realtime.HoldRejected(seatID, domain.ErrSessionExpired.Error()))
		return nil
	}

	seatIDs, err := s.registry.TryHold(ctx, showtimeID, seatID, holderID)
	if err != nil {
		if !isConflict(err) {
			return err
		}

		s.logger.Info("seat hold rejected",
			"holder_id", holderID,
			"showtime_id", showtimeID,
			"seat_id", seatID,
			"reason", err.Error(),
		)
		s.hub.SendToClient(c, realtime.HoldRejected(seatID, err.Error()))

		return nil
	}

	deadline, _ := s.countdown.Deadline(holderID)
	s.hub.SendToHolderInGroup(showtimeID, holderID, realtime.HoldAccepted(seatIDs, deadline))

	return nil
}

func (s *Service) Deselect(ctx context.Context, c realtime.Client, showtimeID, seatID int) error {
	holderID := c.HolderID()

	unlock := s.lock(holderID)
	defer unlock()

	_, err := s.registry.Release(ctx, showtimeID, seatID, holderID)
	if err != nil {
		if errors.Is(err, domain.ErrSeatInCheckout) {
			s.hub.SendToClient(c, realtime.Error(err.Error()))
			return nil
		}

		return err
	}

	s.stopIfIdle(holderID)

	return nil
}

// Disconnect drops the client. The holder's seats are released once its last
// connection is gone.
func (s *Service) Disconnect(c realtime.Client) {
	holderID := c.HolderID()

	unlock := s.lock(holderID)
	defer unlock()

	s.hub.Unregister(c)

	s.logger.Info("realtime client disconnected", "client_id", c.ID(), "holder_id", holderID)

	if s.hub.Connections(holderID) > 0 {
		return
	}

	s.clearExpired(holderID)

	released := s.registry.ReleaseAll(holderID, ReasonDisconnect)
	s.stopIfIdle(holderID)

	if len(released) > 0 {
		s.logger.Info("released seats of disconnected holder", "holder_id", holderID, "seats", released)
	}
}

// Transfer hands the holds and the running countdown of a guest session over
// to the account the guest logged into. The account keeps its own countdown
// when it has one. Holds that would take the account over the seat limit on a
// showtime are released.
func (s *Service) Transfer(from, to string) map[int][]int {
	if from == to {
		return map[int][]int{}
	}

	unlock := s.lockPair(from, to)
	defer unlock()

	s.countdown.Move(from, to)
	moved, released := s.registry.Transfer(from, to)

	s.stopIfIdle(to)

	if len(moved) > 0 {
		s.logger.Info("transferred seat holds", "from", from, "to", to, "seats", moved)
	}

	if len(released) > 0 {
		s.logger.Warn("released guest holds over the seat limit", "from", from, "to", to, "seats", released)
	}

	return moved
}

func (s *Service) expire(holderID string) {
	unlock := s.lock(holderID)
	defer unlock()

	s.countdown.Stop(holderID)
	s.markExpired(holderID)

	released := s.registry.ReleaseAll(holderID, ReasonExpired)

	s.logger.Info("hold countdown expired", "holder_id", holderID, "seats", released)

	s.hub.SendToHolder(holderID, realtime.SessionExpired())
}

// stopIfIdle stops the countdown once the holder has nothing left on it.
// Callers hold the holder lock.
func (s *Service) stopIfIdle(holderID string) {
	if s.registry.Count(holderID) == 0 {
		s.countdown.Stop(holderID)
	}
}

func (s *Service) markExpired(holderID string) {
	s.expiredMu.Lock()
	defer s.expiredMu.Unlock()

	s.expired[holderID] = struct{}{}
}

func (s *Service) clearExpired(holderID string) {
	s.expiredMu.Lock()
	defer s.expiredMu.Unlock()

	delete(s.expired, holderID)
}

func (s *Service) isExpired(holderID string) bool {
	s.expiredMu.Lock()
	defer s.expiredMu.Unlock()

	_, ok := s.expired[holderID]
	return ok
}

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrSeatAlreadyHeld) ||
		errors.Is(err, domain.ErrSeatAlreadyBooked) ||
		errors.Is(err, domain.ErrHoldLimitExceeded) ||
		errors.Is(err, domain.ErrRecordNotFound)
}
