package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-booking/internal/domain"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			user_id,
			holder_id,
			showtime_id,
			seat_ids,
			extras,
			amount,
			currency,
			status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	return p.db.QueryRow(
		ctx,
		query,
		payment.UserID,
		payment.HolderID,
		payment.ShowtimeID,
		payment.SeatIDs,
		payment.Extras,
		payment.Amount,
		payment.Currency,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt)
}

const paymentColumns = `
	id,
	user_id,
	holder_id,
	showtime_id,
	seat_ids,
	extras,
	stripe_checkout_session_id,
	amount,
	currency,
	status,
	error_message,
	payment_date,
	created_at,
	updated_at
`

func (p *PostgresPaymentRepository) GetById(ctx context.Context, id int) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	return p.getPayment(ctx, query, id)
}

func (p *PostgresPaymentRepository) GetByCheckoutSessionID(ctx context.Context, checkoutSessionID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE stripe_checkout_session_id = $1`

	return p.getPayment(ctx, query, checkoutSessionID)
}

func (p *PostgresPaymentRepository) getPayment(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	var (
		payment domain.Payment
		amount  pgtype.Numeric
		status  string
	)

	err := p.db.QueryRow(ctx, query, arg).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.HolderID,
		&payment.ShowtimeID,
		&payment.SeatIDs,
		&payment.Extras,
		&payment.CheckoutSessionId,
		&amount,
		&payment.Currency,
		&status,
		&payment.ErrorMsg,
		&payment.PaymentDate,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	payment.Amount = numericToDecimal(amount)
	payment.Status = domain.PaymentStatus(status)

	return &payment, nil
}

func (p *PostgresPaymentRepository) AttachCheckoutSession(ctx context.Context, id int, checkoutSessionID string) error {
	query := `
		UPDATE payments
		SET stripe_checkout_session_id = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := p.db.Exec(ctx, query, checkoutSessionID, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (p *PostgresPaymentRepository) UpdateStatus(
	ctx context.Context,
	checkoutSessionID string,
	status domain.PaymentStatus,
	errMsg string) error {

	query := `UPDATE payments
		SET status = $1, error_message = NULLIF($2, ''), updated_at = NOW()
		WHERE stripe_checkout_session_id = $3
	`

	_, err := p.db.Exec(ctx, query, status, errMsg, checkoutSessionID)
	return err
}
