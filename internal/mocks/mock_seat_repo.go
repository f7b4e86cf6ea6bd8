package mocks

import (
	"context"

	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockSeatRepo struct {
	mock.Mock
	domain.SeatRepository
}

func (m *MockSeatRepo) GetSeatsByShowtime(ctx context.Context, showtimeID int) (*domain.ShowtimeSeats, error) {
	args := m.Called(ctx, showtimeID)

	seats, _ := args.Get(0).(*domain.ShowtimeSeats)
	return seats, args.Error(1)
}

func (m *MockSeatRepo) GetSeatsByShowtimeAndSeatIds(
	ctx context.Context,
	showtimeID int,
	seatIDs []int) (*domain.ShowtimeSeats, error) {

	args := m.Called(ctx, showtimeID, seatIDs)

	seats, _ := args.Get(0).(*domain.ShowtimeSeats)
	return seats, args.Error(1)
}

func (m *MockSeatRepo) GetSeatStatus(ctx context.Context, showtimeID, seatID int) (domain.SeatStatus, error) {
	args := m.Called(ctx, showtimeID, seatID)
	return args.Get(0).(domain.SeatStatus), args.Error(1)
}

func (m *MockSeatRepo) GetCoupleSeatPartner(ctx context.Context, seatID int) (int, bool, error) {
	args := m.Called(ctx, seatID)
	return args.Int(0), args.Bool(1), args.Error(2)
}
