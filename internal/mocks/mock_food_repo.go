package mocks

import (
	"context"

	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockFoodRepo struct {
	mock.Mock
	domain.FoodRepository
}

func (m *MockFoodRepo) GetByIds(ctx context.Context, ids []int) ([]domain.Food, error) {
	args := m.Called(ctx, ids)

	foods, _ := args.Get(0).([]domain.Food)
	return foods, args.Error(1)
}
