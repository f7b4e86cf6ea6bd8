package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinema-booking/internal/domain"
)

type PostgresSeatRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSeatRepository(db *pgxpool.Pool) *PostgresSeatRepository {
	return &PostgresSeatRepository{
		db: db,
	}
}

const showtimeInfoQuery = `
	SELECT
		sh.id,
		t.id,
		t.name,
		m.title,
		h.id,
		h.name,
		sh.start_time,
		sh.base_price
	FROM showtimes sh
	JOIN halls h
		ON sh.hall_id = h.id
	JOIN theaters t
		ON h.theater_id = t.id
	JOIN movies m
		ON sh.movie_id = m.id
	WHERE sh.id = $1
`

func (p *PostgresSeatRepository) getShowtimeInfo(ctx context.Context, showtimeID int) (*domain.ShowtimeSeats, error) {
	var (
		showtimeSeats domain.ShowtimeSeats
		basePrice     pgtype.Numeric
	)

	err := p.db.QueryRow(ctx, showtimeInfoQuery, showtimeID).Scan(
		&showtimeSeats.ShowtimeID,
		&showtimeSeats.TheaterID,
		&showtimeSeats.TheaterName,
		&showtimeSeats.MovieName,
		&showtimeSeats.HallID,
		&showtimeSeats.HallName,
		&showtimeSeats.Date,
		&basePrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	showtimeSeats.BasePrice = numericToDecimal(basePrice)

	return &showtimeSeats, nil
}

// GetSeatsByShowtime returns the seat map of the showtime hall sorted by row
// and column. Seats with an invoice for the showtime are reported as booked.
func (p *PostgresSeatRepository) GetSeatsByShowtime(ctx context.Context, showtimeID int) (*domain.ShowtimeSeats, error) {
	showtimeSeats, err := p.getShowtimeInfo(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			se.id,
			se.seat_row,
			se.seat_col,
			se.seat_type,
			se.extra_price,
			se.couple_partner_id,
			(ins.seat_id IS NOT NULL) AS booked
		FROM showtimes sh
		JOIN seats se
			ON sh.hall_id = se.hall_id
		LEFT JOIN invoice_seats ins
			ON ins.showtime_id = sh.id AND ins.seat_id = se.id
		WHERE sh.id = $1
		ORDER BY se.seat_row, se.seat_col
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	showtimeSeats.Seats, err = scanSeats(rows)
	if err != nil {
		return nil, err
	}

	return showtimeSeats, nil
}

func (p *PostgresSeatRepository) GetSeatsByShowtimeAndSeatIds(
	ctx context.Context,
	showtimeID int,
	seatIDs []int) (*domain.ShowtimeSeats, error) {

	showtimeSeats, err := p.getShowtimeInfo(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			se.id,
			se.seat_row,
			se.seat_col,
			se.seat_type,
			se.extra_price,
			se.couple_partner_id,
			(ins.seat_id IS NOT NULL) AS booked
		FROM showtimes sh
		JOIN seats se
			ON sh.hall_id = se.hall_id
		LEFT JOIN invoice_seats ins
			ON ins.showtime_id = sh.id AND ins.seat_id = se.id
		WHERE sh.id = $1 AND se.id = ANY($2)
		ORDER BY se.seat_row, se.seat_col
	`

	rows, err := p.db.Query(ctx, query, showtimeID, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	showtimeSeats.Seats, err = scanSeats(rows)
	if err != nil {
		return nil, err
	}

	return showtimeSeats, nil
}

func scanSeats(rows pgx.Rows) ([]domain.Seat, error) {
	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var (
			seat       domain.Seat
			extraPrice pgtype.Numeric
			booked     bool
		)

		err := rows.Scan(
			&seat.ID,
			&seat.Row,
			&seat.Col,
			&seat.Type,
			&extraPrice,
			&seat.PartnerID,
			&booked,
		)
		if err != nil {
			return nil, err
		}

		seat.ExtraPrice = numericToDecimal(extraPrice)
		if booked {
			seat.Status = domain.SeatBooked
		}

		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

// GetSeatStatus reports whether the seat is booked for the showtime. It
// returns ErrRecordNotFound when the seat is not part of the showtime hall.
func (p *PostgresSeatRepository) GetSeatStatus(ctx context.Context, showtimeID, seatID int) (domain.SeatStatus, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM invoice_seats
			WHERE showtime_id = sh.id AND seat_id = se.id
		)
		FROM showtimes sh
		JOIN seats se
			ON sh.hall_id = se.hall_id
		WHERE sh.id = $1 AND se.id = $2
	`

	var booked bool

	err := p.db.QueryRow(ctx, query, showtimeID, seatID).Scan(&booked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SeatAvailable, domain.ErrRecordNotFound
		}

		return domain.SeatAvailable, err
	}

	if booked {
		return domain.SeatBooked, nil
	}

	return domain.SeatAvailable, nil
}

// GetCoupleSeatPartner returns the seat paired with seatID, if any. Unknown
// seats have no partner.
func (p *PostgresSeatRepository) GetCoupleSeatPartner(ctx context.Context, seatID int) (int, bool, error) {
	query := `SELECT couple_partner_id FROM seats WHERE id = $1`

	var partnerID *int

	err := p.db.QueryRow(ctx, query, seatID).Scan(&partnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}

		return 0, false, err
	}

	if partnerID == nil {
		return 0, false, nil
	}

	return *partnerID, true, nil
}
