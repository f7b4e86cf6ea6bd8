package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type SeatStatus int

const (
	SeatAvailable SeatStatus = iota
	SeatHeld
	SeatBooked
)

func (s SeatStatus) String() string {
	switch s {
	case SeatAvailable:
		return "available"
	case SeatHeld:
		return "held"
	case SeatBooked:
		return "booked"
	default:
		return "unknown"
	}
}

type ShowtimeSeats struct {
	ShowtimeID  int
	TheaterID   int
	TheaterName string
	MovieName   string
	HallName    string
	Date        time.Time
	HallID      int
	Seats       []Seat
	BasePrice   decimal.Decimal
}

type Seat struct {
	ID         int
	Row        int
	Col        int
	Type       string
	ExtraPrice decimal.Decimal
	PartnerID  *int
	Status     SeatStatus
}

// SeatRepository is the persisted side of the seat map. Status never reports
// SeatHeld: holds live in memory only.
type SeatRepository interface {
	GetSeatsByShowtime(ctx context.Context, showtimeID int) (*ShowtimeSeats, error)
	GetSeatsByShowtimeAndSeatIds(ctx context.Context, showtimeID int, seatIDs []int) (*ShowtimeSeats, error)
	GetSeatStatus(ctx context.Context, showtimeID, seatID int) (SeatStatus, error)
	GetCoupleSeatPartner(ctx context.Context, seatID int) (int, bool, error)
}
