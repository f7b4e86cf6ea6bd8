package domain

import "time"

type Hold struct {
	ShowtimeID int
	SeatID     int
	HolderID   string
	ExpiresAt  time.Time
	// Pinned holds belong to a checkout in progress and survive deselect,
	// disconnect and countdown expiry until their payment window ends.
	Pinned bool
}

func (h Hold) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}
