package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCanceled  PaymentStatus = "canceled"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type Payment struct {
	ID                int
	UserID            int
	HolderID          string
	ShowtimeID        int
	SeatIDs           []int
	Extras            InvoiceExtras
	CheckoutSessionId *string
	Amount            decimal.Decimal
	Currency          string
	Status            PaymentStatus
	ErrorMsg          *string
	PaymentDate       *time.Time
	CreatedAt         time.Time
	UpdatedAt         *time.Time
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetById(ctx context.Context, id int) (*Payment, error)
	GetByCheckoutSessionID(ctx context.Context, checkoutSessionID string) (*Payment, error)
	AttachCheckoutSession(ctx context.Context, id int, checkoutSessionID string) error
	UpdateStatus(ctx context.Context, checkoutSessionID string, status PaymentStatus, errMsg string) error
}
