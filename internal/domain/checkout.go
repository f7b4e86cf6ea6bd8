package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Checkout struct {
	ID          string
	HolderID    string
	ShowtimeID  int
	TotalPrice  decimal.Decimal
	SeatTotal   decimal.Decimal
	FoodTotal   decimal.Decimal
	BasePrice   decimal.Decimal
	MovieName   string
	TheaterName string
	HallName    string
	Date        time.Time
	Seats       []CheckoutSeat
	Food        []CheckoutFood
	Extras      InvoiceExtras
	ExpiresAt   time.Time
}

type CheckoutFood struct {
	FoodID    int
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

type CheckoutSeat struct {
	ID         int
	Row        int
	Col        int
	SeatType   string
	ExtraPrice decimal.Decimal
}

func NewCheckout(holderID string, showtimeSeats *ShowtimeSeats, expiresAt time.Time) Checkout {
	seats := toCheckoutSeats(showtimeSeats.Seats)
	seatTotal := calculateTotalPrice(showtimeSeats.BasePrice, seats)

	return Checkout{
		ID:          uuid.New().String(),
		HolderID:    holderID,
		ShowtimeID:  showtimeSeats.ShowtimeID,
		TotalPrice:  seatTotal,
		SeatTotal:   seatTotal,
		FoodTotal:   decimal.Zero,
		BasePrice:   showtimeSeats.BasePrice,
		MovieName:   showtimeSeats.MovieName,
		TheaterName: showtimeSeats.TheaterName,
		HallName:    showtimeSeats.HallName,
		Date:        showtimeSeats.Date,
		Seats:       seats,
		ExpiresAt:   expiresAt,
	}
}

func (c Checkout) SeatIDs() []int {
	ids := make([]int, len(c.Seats))
	for i, seat := range c.Seats {
		ids[i] = seat.ID
	}

	return ids
}

// AddFood prices the food orders of the checkout extras with the given menu
// and adds them to the total.
func (c *Checkout) AddFood(menu []Food) error {
	prices := make(map[int]Food, len(menu))
	for _, food := range menu {
		prices[food.ID] = food
	}

	c.Food = c.Food[:0]
	c.FoodTotal = decimal.Zero

	for _, order := range c.Extras.Food {
		food, ok := prices[order.FoodID]
		if !ok {
			return fmt.Errorf("food %d: %w", order.FoodID, ErrRecordNotFound)
		}

		c.Food = append(c.Food, CheckoutFood{
			FoodID:    food.ID,
			Name:      food.Name,
			Quantity:  order.Quantity,
			UnitPrice: food.Price,
		})

		c.FoodTotal = c.FoodTotal.Add(food.Price.Mul(decimal.NewFromInt(int64(order.Quantity))))
	}

	c.TotalPrice = c.SeatTotal.Add(c.FoodTotal)

	return nil
}

func (e InvoiceExtras) FoodIDs() []int {
	ids := make([]int, 0, len(e.Food))
	for _, order := range e.Food {
		ids = append(ids, order.FoodID)
	}

	return ids
}

func calculateTotalPrice(basePrice decimal.Decimal, seats []CheckoutSeat) decimal.Decimal {
	total := decimal.Zero

	for _, v := range seats {
		seatPrice := basePrice.Add(v.ExtraPrice)
		total = total.Add(seatPrice)
	}

	return total
}

func toCheckoutSeats(seats []Seat) []CheckoutSeat {
	checkoutSeats := make([]CheckoutSeat, len(seats))

	for i, seat := range seats {
		checkoutSeats[i] = CheckoutSeat{
			ID:         seat.ID,
			Row:        seat.Row,
			Col:        seat.Col,
			SeatType:   seat.Type,
			ExtraPrice: seat.ExtraPrice,
		}
	}

	return checkoutSeats
}
