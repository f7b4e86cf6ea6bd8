package app

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type HealthcheckResponse struct {
	Status       string            `json:"status"`
	SystemInfo   SystemInfo        `json:"systemInfo"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type AlreadyLoggedInResponse struct {
	Message string `json:"message"`
}

type SeatMapResponse struct {
	ShowtimeId  int             `json:"showtimeId"`
	TheaterId   int             `json:"theaterId"`
	TheaterName string          `json:"theaterName"`
	HallId      int             `json:"hallId"`
	HallName    string          `json:"hallName"`
	MovieName   string          `json:"movieName"`
	Date        time.Time       `json:"date"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	SeatRows    []SeatRow       `json:"seatRows"`
}

type SeatRow struct {
	Row   int    `json:"row"`
	Seats []Seat `json:"seats"`
}

type Seat struct {
	Id         int             `json:"id"`
	Row        int             `json:"row"`
	Column     int             `json:"column"`
	Type       string          `json:"type"`
	ExtraPrice decimal.Decimal `json:"extraPrice"`
	PartnerId  *int            `json:"partnerId,omitempty"`
	// Status is 0 available, 1 held, 2 booked
	Status int `json:"status"`
}

type FoodOrderRequest struct {
	FoodId   int `json:"foodId" validate:"gt=0"`
	Quantity int `json:"quantity" validate:"gt=0,max=20"`
}

type CheckoutRequest struct {
	Food        []FoodOrderRequest `json:"food" validate:"omitempty,max=20,dive"`
	VoucherCode string             `json:"voucherCode" validate:"omitempty,voucher"`
	PointsUsed  int                `json:"pointsUsed" validate:"gte=0"`
}

type CheckoutSessionResponse struct {
	RedirectUrl string          `json:"redirectUrl"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

type BookingResponse struct {
	Code        string          `json:"code"`
	ShowtimeId  int             `json:"showtimeId"`
	SeatIds     []int           `json:"seatIds"`
	Food        []FoodOrderItem `json:"food,omitempty"`
	VoucherCode string          `json:"voucherCode,omitempty"`
	PointsUsed  int             `json:"pointsUsed,omitempty"`
	SeatTotal   decimal.Decimal `json:"seatTotal"`
	FoodTotal   decimal.Decimal `json:"foodTotal"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type FoodOrderItem struct {
	FoodId   int `json:"foodId"`
	Quantity int `json:"quantity"`
}
