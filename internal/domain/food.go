package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Food struct {
	ID    int
	Name  string
	Price decimal.Decimal
}

type FoodRepository interface {
	GetByIds(ctx context.Context, ids []int) ([]Food, error)
}
