package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type FoodOrder struct {
	FoodID   int `json:"foodId"`
	Quantity int `json:"quantity"`
}

// InvoiceExtras are recorded on the invoice as chosen. Voucher and loyalty
// point rules are applied by other services.
type InvoiceExtras struct {
	Food        []FoodOrder `json:"food,omitempty"`
	VoucherCode string      `json:"voucherCode,omitempty"`
	PointsUsed  int         `json:"pointsUsed,omitempty"`
}

type Invoice struct {
	ID         int
	Code       string
	HolderID   string
	UserID     *int
	ShowtimeID int
	SeatIDs    []int
	Extras     InvoiceExtras
	SeatTotal  decimal.Decimal
	FoodTotal  decimal.Decimal
	TotalPrice decimal.Decimal
	PaymentID  *int
	CreatedAt  time.Time
}

type InvoiceRepository interface {
	// Create persists the invoice and its seats in one transaction. It returns
	// ErrSeatAlreadyBooked when any seat already has an invoice for the showtime.
	Create(ctx context.Context, invoice *Invoice) error
	GetByCode(ctx context.Context, code string) (*Invoice, error)
	GetBookedSeatIDs(ctx context.Context, showtimeID int) ([]int, error)
}
