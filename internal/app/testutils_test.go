package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/metinatakli/cinema-booking/internal/mailer"
	"github.com/metinatakli/cinema-booking/internal/metrics"
	"github.com/metinatakli/cinema-booking/internal/mocks"
	"github.com/metinatakli/cinema-booking/internal/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
)

const testWebhookSecret = "whsec_test_secret"

func newTestApplication(opts ...func(*Application)) *Application {
	app := &Application{
		config: Config{
			Env: "test",
			Seating: SeatingConfig{
				HoldWindow:    time.Minute,
				MaxSeats:      8,
				PaymentWindow: 10 * time.Minute,
				SweepInterval: time.Minute,
				SessionPolicy: "shared",
			},
			Stripe: StripeConfig{
				WebhookSecret: testWebhookSecret,
			},
		},
		validator:       validator.NewValidator(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		mailer:          mailer.NewMockMailer(),
		sessionManager:  scs.New(),
		userRepo:        &mocks.MockUserRepo{},
		seatRepo:        &mocks.MockSeatRepo{},
		paymentRepo:     &mocks.MockPaymentRepo{},
		invoiceRepo:     &mocks.MockInvoiceRepo{},
		foodRepo:        &mocks.MockFoodRepo{},
		paymentProvider: &mocks.MockPaymentProvider{},
	}

	for _, opt := range opts {
		opt(app)
	}

	app.ctx, app.cancel = context.WithCancel(context.Background())
	app.promRegistry = prometheus.NewRegistry()
	app.metrics = metrics.NewWithRegistry(app.promRegistry)
	app.initSeating()

	return app
}

func setupTestSession(t *testing.T, app *Application, r *http.Request, userId int) *http.Request {
	ctx, err := app.sessionManager.Load(r.Context(), "session")
	if err != nil {
		t.Errorf("Failed to load session: %v", err)
	}

	if userId != 0 {
		app.sessionManager.Put(ctx, SessionKeyUserId.String(), userId)
	}

	return r.WithContext(ctx)
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(method, url, bytes.NewReader(jsonData))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

// withURLParams attaches chi route parameters to r.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}

	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// allowHolds lets the registry hold seatIDs of showtimeID, none of them paired.
func allowHolds(seatRepo *mocks.MockSeatRepo, showtimeID int, seatIDs ...int) {
	for _, seatID := range seatIDs {
		seatRepo.On("GetCoupleSeatPartner", mock.Anything, seatID).Return(0, false, nil).Maybe()
		seatRepo.On("GetSeatStatus", mock.Anything, showtimeID, seatID).Return(domain.SeatAvailable, nil).Maybe()
	}
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", tt.wantErrMessage)
		}

	default:
		var errorResp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
