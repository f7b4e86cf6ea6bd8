package seating

import (
	"context"
	"errors"
	"sync"
)

var ErrSeatAlreadyPaired = errors.New("seat already belongs to a couple pair")

// PartnerResolver maps a seat to its couple partner. Callers query it on every
// operation; results are not cached.
type PartnerResolver interface {
	Partner(ctx context.Context, seatID int) (int, bool, error)
}

type CouplePartnerSource interface {
	GetCoupleSeatPartner(ctx context.Context, seatID int) (int, bool, error)
}

// StoreCouples resolves partners from the persisted seat layout.
type StoreCouples struct {
	source CouplePartnerSource
}

func NewStoreCouples(source CouplePartnerSource) *StoreCouples {
	return &StoreCouples{source: source}
}

func (s *StoreCouples) Partner(ctx context.Context, seatID int) (int, bool, error) {
	return s.source.GetCoupleSeatPartner(ctx, seatID)
}

// CoupleTable is a bidirectional seat pairing where a seat belongs to at most
// one pair.
type CoupleTable struct {
	mu    sync.RWMutex
	pairs map[int]int
}

func NewCoupleTable(pairs ...[2]int) (*CoupleTable, error) {
	t := &CoupleTable{pairs: make(map[int]int)}

	for _, p := range pairs {
		if err := t.Pair(p[0], p[1]); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *CoupleTable) Pair(a, b int) error {
	if a == b {
		return errors.New("a seat cannot be paired with itself")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if partner, ok := t.pairs[a]; ok && partner != b {
		return ErrSeatAlreadyPaired
	}

	if partner, ok := t.pairs[b]; ok && partner != a {
		return ErrSeatAlreadyPaired
	}

	t.pairs[a] = b
	t.pairs[b] = a

	return nil
}

func (t *CoupleTable) Unpair(seatID int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	partner, ok := t.pairs[seatID]
	if !ok {
		return
	}

	delete(t.pairs, seatID)
	delete(t.pairs, partner)
}

func (t *CoupleTable) Partner(_ context.Context, seatID int) (int, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	partner, ok := t.pairs[seatID]
	return partner, ok, nil
}
