package payment

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/stripe/stripe-go/v82"
)

// MockPaymentProvider hands out fake checkout sessions and remembers the
// checkouts they were created for.
type MockPaymentProvider struct {
	mu       sync.Mutex
	sessions map[string]domain.Checkout
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{
		sessions: make(map[string]domain.Checkout),
	}
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	user *domain.User,
	checkout domain.Checkout,
	payment domain.Payment) (*stripe.CheckoutSession, error) {

	id := "cs_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	m.mu.Lock()
	m.sessions[id] = checkout
	m.mu.Unlock()

	return &stripe.CheckoutSession{
		ID:                id,
		URL:               "https://checkout.stripe.com/c/pay/" + id,
		ClientReferenceID: payment.HolderID,
		CustomerEmail:     user.Email,
		ExpiresAt:         sessionExpiry(time.Now(), checkout.ExpiresAt).Unix(),
	}, nil
}

func (m *MockPaymentProvider) Checkout(sessionID string) (domain.Checkout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	checkout, ok := m.sessions[sessionID]
	return checkout, ok
}
