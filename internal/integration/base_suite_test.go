package integration_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/metinatakli/cinema-booking/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "cinema_booking"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
)

type BaseSuite struct {
	suite.Suite
	app            *TestApp
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
	cfg            app.Config
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	if err != nil {
		s.T().Fatalf("failed to start container: %s", err)
	}

	redisContainer, err := getCacheContainer(ctx)
	if err != nil {
		s.T().Fatalf("failed to start container: %s", err)
	}

	s.dbContainer = postgresContainer
	s.cacheContainer = redisContainer

	cfg := app.Config{
		Port: 3000,
		Env:  "test",
		DB: app.DBConfig{
			DSN:          postgresContainer.ConnectionString,
			MaxOpenConns: 25,
			MaxIdleTime:  2 * time.Minute,
		},
		Redis: app.RedisConfig{
			URL:          redisContainer.ConnectionString,
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxIdleTime:  2 * time.Minute,
		},
		Stripe: app.StripeConfig{
			WebhookSecret: testWebhookSecret,
		},
		Seating: app.SeatingConfig{
			HoldWindow:    time.Minute,
			MaxSeats:      4,
			PaymentWindow: 10 * time.Minute,
			SweepInterval: time.Minute,
			SessionPolicy: "shared",
		},
	}

	s.cfg = cfg
}

// SetupTest starts every test with a fresh application, so no seat state
// kept in memory leaks between tests, and a freshly seeded database.
func (s *BaseSuite) SetupTest() {
	s.closeApp()

	testApp, err := newTestApp(s.cfg)
	if err != nil {
		s.T().Fatalf("cannot initialize app: %s", err)
	}

	s.app = testApp

	resetDatabase(s.T(), s.app.DB)
}

func (s *BaseSuite) closeApp() {
	if s.app != nil {
		s.app.App.Close()
		s.app.DB.Close()
		s.app.Redis.Close()
		s.app = nil
	}
}

func (s *BaseSuite) TearDownSuite() {
	s.closeApp()

	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}

	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

// login opens a session for email and returns its cookies.
func (s *BaseSuite) login(email string) []*http.Cookie {
	body := strings.NewReader(fmt.Sprintf(`{"email": %q, "password": %q}`, email, TestUserPassword))
	req := prepareRequest(http.MethodPost, "/sessions", body, nil, nil)

	rec := httptest.NewRecorder()
	s.app.App.Routes().ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	require.Equal(s.T(), http.StatusNoContent, res.StatusCode)
	require.NotEmpty(s.T(), res.Cookies())

	return res.Cookies()
}

type Scenario struct {
	Name             string
	Method           string
	URL              string
	Body             io.Reader
	Headers          map[string]string
	Cookies          func(s *BaseSuite) []*http.Cookie
	ExpectedStatus   int
	ExpectedResponse string
	BeforeTestFunc   func(t testing.TB, app *TestApp)
	AfterTestFunc    func(t testing.TB, app *TestApp, res *http.Response)
}

func (sc Scenario) Run(s *BaseSuite) {
	s.Run(sc.Name, func() {
		s.SetupTest()

		t := s.T()

		if sc.BeforeTestFunc != nil {
			sc.BeforeTestFunc(t, s.app)
		}

		var cookies []*http.Cookie
		if sc.Cookies != nil {
			cookies = sc.Cookies(s)
		}

		req := prepareRequest(sc.Method, sc.URL, sc.Body, sc.Headers, cookies)

		rec := httptest.NewRecorder()
		s.app.App.Routes().ServeHTTP(rec, req)

		res := rec.Result()
		defer res.Body.Close()

		assert.Equal(t, sc.ExpectedStatus, res.StatusCode)

		if sc.ExpectedResponse != "" {
			compareResponse(t, res.Body, sc.ExpectedResponse)
		}

		if sc.AfterTestFunc != nil {
			sc.AfterTestFunc(t, s.app, res)
		}
	})
}

// guestSession starts an anonymous session the way a browser does when it
// first loads a seat map.
func (s *BaseSuite) guestSession() []*http.Cookie {
	req := prepareRequest(http.MethodGet, fmt.Sprintf("/showtimes/%d/seats", TestShowtimeId), nil, nil, nil)

	rec := httptest.NewRecorder()
	s.app.App.Routes().ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	require.Equal(s.T(), http.StatusOK, res.StatusCode)
	require.NotEmpty(s.T(), res.Cookies())

	return res.Cookies()
}
