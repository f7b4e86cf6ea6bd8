package integration_test

import (
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-booking/internal/app"
	"github.com/metinatakli/cinema-booking/internal/mailer"
	"github.com/metinatakli/cinema-booking/internal/payment"
	"github.com/metinatakli/cinema-booking/internal/repository"
	appvalidator "github.com/metinatakli/cinema-booking/internal/validator"
	"github.com/redis/go-redis/v9"
)

type TestApp struct {
	App      *app.Application
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Mailer   *mailer.MockMailer
	Payments *payment.MockPaymentProvider
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	validator := appvalidator.NewValidator()
	mailer := mailer.NewMockMailer()

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	sessionManager := app.NewSessionManager(redisClient)

	paymentProvider := payment.NewMockPaymentProvider()

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		validator,
		mailer,
		sessionManager,
		repository.NewPostgresUserRepository(db),
		repository.NewPostgresSeatRepository(db),
		repository.NewPostgresPaymentRepository(db),
		repository.NewPostgresInvoiceRepository(db),
		repository.NewPostgresFoodRepository(db),
		paymentProvider,
	)

	return &TestApp{
		App:      application,
		DB:       db,
		Redis:    redisClient,
		Mailer:   mailer,
		Payments: paymentProvider,
	}, nil
}
