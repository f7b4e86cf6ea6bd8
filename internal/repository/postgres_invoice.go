package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/shopspring/decimal"
)

type PostgresInvoiceRepository struct {
	db *pgxpool.Pool
}

func NewPostgresInvoiceRepository(db *pgxpool.Pool) *PostgresInvoiceRepository {
	return &PostgresInvoiceRepository{
		db: db,
	}
}

// Create persists the invoice, its seats and food lines in one transaction
// and completes the linked payment. Food is priced from the menu inside the
// transaction. The invoice_seats primary key rejects a second invoice for a
// seat of the same showtime.
func (p *PostgresInvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		foodTotal, foodRows, err := priceFood(ctx, tx, invoice.Extras.Food)
		if err != nil {
			return err
		}

		invoice.FoodTotal = foodTotal
		invoice.TotalPrice = invoice.SeatTotal.Add(foodTotal)

		query := `
			INSERT INTO invoices (
				code,
				holder_id,
				user_id,
				showtime_id,
				payment_id,
				voucher_code,
				points_used,
				seat_total,
				food_total,
				total_price
			)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
			RETURNING id, created_at
		`

		err = tx.QueryRow(
			ctx,
			query,
			invoice.Code,
			invoice.HolderID,
			invoice.UserID,
			invoice.ShowtimeID,
			invoice.PaymentID,
			invoice.Extras.VoucherCode,
			invoice.Extras.PointsUsed,
			invoice.SeatTotal,
			invoice.FoodTotal,
			invoice.TotalPrice,
		).Scan(&invoice.ID, &invoice.CreatedAt)
		if err != nil {
			return err
		}

		seatRows := make([][]any, 0, len(invoice.SeatIDs))
		for _, seatID := range invoice.SeatIDs {
			seatRows = append(seatRows, []any{invoice.ID, invoice.ShowtimeID, seatID})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"invoice_seats"},
			[]string{"invoice_id", "showtime_id", "seat_id"},
			pgx.CopyFromRows(seatRows),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrSeatAlreadyBooked
			}

			return err
		}

		if len(foodRows) > 0 {
			for _, row := range foodRows {
				row[0] = invoice.ID
			}

			_, err = tx.CopyFrom(
				ctx,
				pgx.Identifier{"invoice_foods"},
				[]string{"invoice_id", "food_id", "quantity", "unit_price"},
				pgx.CopyFromRows(foodRows),
			)
			if err != nil {
				return err
			}
		}

		if invoice.PaymentID != nil {
			query = `
				UPDATE payments
				SET status = 'completed', payment_date = NOW(), updated_at = NOW()
				WHERE id = $1
			`

			_, err = tx.Exec(ctx, query, *invoice.PaymentID)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// priceFood returns the food total and invoice_foods rows with a placeholder
// invoice id in the first column.
func priceFood(ctx context.Context, tx pgx.Tx, orders []domain.FoodOrder) (decimal.Decimal, [][]any, error) {
	if len(orders) == 0 {
		return decimal.Zero, nil, nil
	}

	ids := make([]int, len(orders))
	for i, order := range orders {
		ids[i] = order.FoodID
	}

	rows, err := tx.Query(ctx, `SELECT id, price FROM foods WHERE id = ANY($1)`, ids)
	if err != nil {
		return decimal.Zero, nil, err
	}
	defer rows.Close()

	prices := make(map[int]decimal.Decimal, len(ids))
	for rows.Next() {
		var (
			id    int
			price pgtype.Numeric
		)

		if err := rows.Scan(&id, &price); err != nil {
			return decimal.Zero, nil, err
		}

		prices[id] = numericToDecimal(price)
	}

	if err := rows.Err(); err != nil {
		return decimal.Zero, nil, err
	}

	total := decimal.Zero
	foodRows := make([][]any, 0, len(orders))

	for _, order := range orders {
		price, ok := prices[order.FoodID]
		if !ok {
			return decimal.Zero, nil, fmt.Errorf("food %d: %w", order.FoodID, domain.ErrRecordNotFound)
		}

		total = total.Add(price.Mul(decimal.NewFromInt(int64(order.Quantity))))
		foodRows = append(foodRows, []any{0, order.FoodID, order.Quantity, price})
	}

	return total, foodRows, nil
}

func (p *PostgresInvoiceRepository) GetByCode(ctx context.Context, code string) (*domain.Invoice, error) {
	query := `
		SELECT
			i.id,
			i.code,
			i.holder_id,
			i.user_id,
			i.showtime_id,
			i.payment_id,
			COALESCE(i.voucher_code, ''),
			i.points_used,
			i.seat_total,
			i.food_total,
			i.total_price,
			i.created_at,
			ARRAY(
				SELECT seat_id FROM invoice_seats WHERE invoice_id = i.id ORDER BY seat_id
			)
		FROM invoices i
		WHERE i.code = $1
	`

	var (
		invoice                          domain.Invoice
		seatTotal, foodTotal, totalPrice pgtype.Numeric
	)

	err := p.db.QueryRow(ctx, query, code).Scan(
		&invoice.ID,
		&invoice.Code,
		&invoice.HolderID,
		&invoice.UserID,
		&invoice.ShowtimeID,
		&invoice.PaymentID,
		&invoice.Extras.VoucherCode,
		&invoice.Extras.PointsUsed,
		&seatTotal,
		&foodTotal,
		&totalPrice,
		&invoice.CreatedAt,
		&invoice.SeatIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	invoice.SeatTotal = numericToDecimal(seatTotal)
	invoice.FoodTotal = numericToDecimal(foodTotal)
	invoice.TotalPrice = numericToDecimal(totalPrice)

	rows, err := p.db.Query(ctx, `SELECT food_id, quantity FROM invoice_foods WHERE invoice_id = $1 ORDER BY food_id`, invoice.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var order domain.FoodOrder
		if err := rows.Scan(&order.FoodID, &order.Quantity); err != nil {
			return nil, err
		}

		invoice.Extras.Food = append(invoice.Extras.Food, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &invoice, nil
}

func (p *PostgresInvoiceRepository) GetBookedSeatIDs(ctx context.Context, showtimeID int) ([]int, error) {
	query := `
		SELECT seat_id
		FROM invoice_seats
		WHERE showtime_id = $1
		ORDER BY seat_id
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[int])
}
