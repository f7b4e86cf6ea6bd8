package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/metinatakli/cinema-booking/internal/mailer"
	"github.com/metinatakli/cinema-booking/internal/metrics"
	"github.com/metinatakli/cinema-booking/internal/payment"
	"github.com/metinatakli/cinema-booking/internal/realtime"
	"github.com/metinatakli/cinema-booking/internal/repository"
	"github.com/metinatakli/cinema-booking/internal/seating"
	appvalidator "github.com/metinatakli/cinema-booking/internal/validator"
	"github.com/metinatakli/cinema-booking/internal/vcs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
)

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	mailer         mailer.Mailer
	sessionManager *scs.SessionManager
	upgrader       websocket.Upgrader

	metrics      *metrics.Metrics
	promRegistry *prometheus.Registry

	hub       *realtime.Hub
	seats     *seating.Service
	finalizer *seating.Finalizer
	janitor   *seating.Janitor

	userRepo    domain.UserRepository
	seatRepo    domain.SeatRepository
	paymentRepo domain.PaymentRepository
	invoiceRepo domain.InvoiceRepository
	foodRepo    domain.FoodRepository

	paymentProvider domain.PaymentProvider

	// ctx lives as long as the application; realtime connections end with it
	ctx    context.Context
	cancel context.CancelFunc
}

type Config struct {
	Port             int
	Env              string
	OtelCollectorUrl string
	TrustedOrigins   []string
	DB               DBConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
	Stripe           StripeConfig
	Seating          SeatingConfig
}

type DBConfig struct {
	DSN            string
	MaxOpenConns   int
	MaxIdleTime    time.Duration
	Migrate        bool
	MigrationsPath string
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessUrl    string
	FailureUrl    string
}

type SeatingConfig struct {
	HoldWindow    time.Duration
	MaxSeats      int
	PaymentWindow time.Duration
	SweepInterval time.Duration
	SessionPolicy string
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")
	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", os.Getenv("OTEL_COLLECTOR_URL"), "OpenTelemetry collector gRPC endpoint")

	flag.Func("trusted-origins", "Trusted WebSocket origins (space separated)", func(val string) error {
		cfg.TrustedOrigins = strings.Fields(val)
		return nil
	})

	flag.StringVar(&cfg.DB.DSN, "db-dsn", os.Getenv("DB_DSN"), "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")
	flag.BoolVar(&cfg.DB.Migrate, "db-migrate", false, "Apply database migrations on startup")
	flag.StringVar(&cfg.DB.MigrationsPath, "db-migrations-path", "file://migrations", "Database migrations source URL")

	flag.StringVar(&cfg.Redis.URL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", os.Getenv("SMTP_USERNAME"), "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", os.Getenv("SMTP_PASSWORD"), "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", "CineX <no-reply@cinex.metinatakli.net>", "SMTP sender")

	flag.StringVar(&cfg.Stripe.SecretKey, "stripe-key", os.Getenv("STRIPE_KEY"), "Stripe secret key")
	flag.StringVar(&cfg.Stripe.WebhookSecret, "stripe-webhook-secret", os.Getenv("STRIPE_WEBHOOK_SECRET"), "Stripe webhook secret")
	flag.StringVar(&cfg.Stripe.SuccessUrl, "stripe-success-url", "https://example.com/success.html", "Stripe payment success page")
	flag.StringVar(&cfg.Stripe.FailureUrl, "stripe-failure-url", "https://example.com/failure.html", "Stripe payment failure page")

	flag.DurationVar(&cfg.Seating.HoldWindow, "hold-window", seating.DefaultHoldWindow, "Time a holder has to finish selecting seats")
	flag.IntVar(&cfg.Seating.MaxSeats, "hold-max-seats", seating.DefaultMaxSeats, "Maximum seats a holder may hold per showtime")
	flag.DurationVar(&cfg.Seating.PaymentWindow, "payment-window", seating.DefaultPaymentWindow, "Time seats stay reserved for a started checkout")
	flag.DurationVar(&cfg.Seating.SweepInterval, "hold-sweep-interval", seating.DefaultSweepInterval, "Interval of the expired hold sweep")
	flag.StringVar(&cfg.Seating.SessionPolicy, "session-policy", string(seating.PolicyShared), "Realtime connections per holder (shared|single)")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	stripe.Key = cfg.Stripe.SecretKey

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	shutdownTelemetry, logger, err := InitTelemetry(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.DB.Migrate {
		err = MigrateDB(cfg.DB.DSN, cfg.DB.MigrationsPath)
		if err != nil {
			return err
		}

		logger.Info("database migrations applied")
	}

	db, err := NewDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var mail mailer.Mailer = mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
	if cfg.SMTP.Username == "" {
		logger.Warn("no SMTP credentials configured, booking confirmations are not sent")
		mail = mailer.NewMockMailer()
	}

	app := NewApp(
		cfg,
		logger,
		db,
		redisClient,
		appvalidator.NewValidator(),
		mail,
		NewSessionManager(redisClient),
		repository.NewPostgresUserRepository(db),
		repository.NewPostgresSeatRepository(db),
		repository.NewPostgresPaymentRepository(db),
		repository.NewPostgresInvoiceRepository(db),
		repository.NewPostgresFoodRepository(db),
		payment.NewStripePaymentProvider(cfg.Stripe.FailureUrl, cfg.Stripe.SuccessUrl),
	)

	return app.Serve()
}

func NewApp(
	cfg Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	redisClient redis.UniversalClient,
	validator *validator.Validate,
	mailer mailer.Mailer,
	sessionManager *scs.SessionManager,
	userRepo domain.UserRepository,
	seatRepo domain.SeatRepository,
	paymentRepo domain.PaymentRepository,
	invoiceRepo domain.InvoiceRepository,
	foodRepo domain.FoodRepository,
	paymentProvider domain.PaymentProvider) *Application {

	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config:          cfg,
		logger:          logger,
		db:              db,
		redis:           redisClient,
		validator:       validator,
		mailer:          mailer,
		sessionManager:  sessionManager,
		userRepo:        userRepo,
		seatRepo:        seatRepo,
		paymentRepo:     paymentRepo,
		invoiceRepo:     invoiceRepo,
		foodRepo:        foodRepo,
		paymentProvider: paymentProvider,
		ctx:             ctx,
		cancel:          cancel,
	}

	app.promRegistry = prometheus.NewRegistry()
	app.promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.NewWithRegistry(app.promRegistry)

	app.initSeating()

	return app
}

// initSeating wires the hold registry, its countdown and the realtime hub.
func (app *Application) initSeating() {
	cfg := app.config.Seating

	app.hub = realtime.NewHub(app.logger)

	registry := seating.NewRegistry(
		app.seatRepo,
		seating.NewStoreCouples(app.seatRepo),
		seating.WithMaxSeats(cfg.MaxSeats),
		seating.WithHoldWindow(cfg.HoldWindow),
		seating.WithObserver(seating.NewBroadcaster(app.hub), app.metrics),
	)

	app.seats = seating.NewService(
		registry,
		seating.NewCountdown(cfg.HoldWindow),
		app.hub,
		app.logger,
		seating.WithSessionPolicy(seating.SessionPolicy(cfg.SessionPolicy)),
	)

	app.finalizer = seating.NewFinalizer(
		app.seats,
		app.seatRepo,
		app.invoiceRepo,
		app.logger,
		seating.WithPaymentWindow(cfg.PaymentWindow),
	)

	app.janitor = seating.NewJanitor(registry, cfg.SweepInterval, app.logger)

	app.metrics.RegisterGauges(registry.Size, app.hub.Size)

	app.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     app.checkOrigin,
	}
}

// Seats exposes the hold service, the single owner of in-memory seat state.
func (app *Application) Seats() *seating.Service {
	return app.seats
}

// Close ends every realtime connection and pending hold countdown.
func (app *Application) Close() {
	app.cancel()
	app.seats.Countdown().Close()
}

func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	err := errors.Join(redisotel.InstrumentTracing(rdb), redisotel.InstrumentMetrics(rdb))
	if err != nil {
		rdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) Serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	go app.janitor.Start(app.ctx)

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		// hijacked websocket connections are not tracked by Shutdown
		app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownError <- srv.Shutdown(ctx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
