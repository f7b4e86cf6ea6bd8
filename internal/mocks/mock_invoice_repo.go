package mocks

import (
	"context"

	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockInvoiceRepo struct {
	mock.Mock
	domain.InvoiceRepository
}

func (m *MockInvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepo) GetByCode(ctx context.Context, code string) (*domain.Invoice, error) {
	args := m.Called(ctx, code)

	invoice, _ := args.Get(0).(*domain.Invoice)
	return invoice, args.Error(1)
}

func (m *MockInvoiceRepo) GetBookedSeatIDs(ctx context.Context, showtimeID int) ([]int, error) {
	args := m.Called(ctx, showtimeID)

	ids, _ := args.Get(0).([]int)
	return ids, args.Error(1)
}
