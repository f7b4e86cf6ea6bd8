package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-booking/internal/domain"
)

type PostgresFoodRepository struct {
	db *pgxpool.Pool
}

func NewPostgresFoodRepository(db *pgxpool.Pool) *PostgresFoodRepository {
	return &PostgresFoodRepository{
		db: db,
	}
}

func (p *PostgresFoodRepository) GetByIds(ctx context.Context, ids []int) ([]domain.Food, error) {
	query := `
		SELECT id, name, price
		FROM foods
		WHERE id = ANY($1) AND available
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	foods := make([]domain.Food, 0, len(ids))

	for rows.Next() {
		var (
			food  domain.Food
			price pgtype.Numeric
		)

		err = rows.Scan(&food.ID, &food.Name, &price)
		if err != nil {
			return nil, err
		}

		food.Price = numericToDecimal(price)
		foods = append(foods, food)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return foods, nil
}
