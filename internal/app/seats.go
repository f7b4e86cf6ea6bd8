package app

import (
	"errors"
	"net/http"

	"github.com/metinatakli/cinema-booking/internal/domain"
)

func (app *Application) GetSeatMapByShowtime(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeID, err := app.readIDParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	showtimeSeats, err := app.seatRepo.GetSeatsByShowtime(r.Context(), showtimeID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	if len(showtimeSeats.Seats) == 0 {
		logger.Warn("seat map not found for showtime", "showtime_id", showtimeID)
		app.notFoundResponse(w, r)
		return
	}

	registry := app.seats.Registry()

	// booked seats come from invoices, held ones only live in the registry
	for i, seat := range showtimeSeats.Seats {
		if seat.Status == domain.SeatBooked {
			continue
		}

		showtimeSeats.Seats[i].Status = registry.Status(showtimeID, seat.ID)
	}

	resp := toSeatMapResponse(showtimeID, showtimeSeats)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSeatMapResponse(showtimeID int, showtimeSeats *domain.ShowtimeSeats) SeatMapResponse {
	return SeatMapResponse{
		ShowtimeId:  showtimeID,
		TheaterId:   showtimeSeats.TheaterID,
		TheaterName: showtimeSeats.TheaterName,
		HallId:      showtimeSeats.HallID,
		HallName:    showtimeSeats.HallName,
		MovieName:   showtimeSeats.MovieName,
		Date:        showtimeSeats.Date,
		BasePrice:   showtimeSeats.BasePrice,
		SeatRows:    toSeatRows(showtimeSeats.Seats),
	}
}

func toSeatRows(seats []domain.Seat) []SeatRow {
	// Seats are pre-sorted by Row,Column (ascending).
	// This allows us to process them in a single pass without additional sorting or mapping.

	var seatRows []SeatRow
	currentRow := SeatRow{Row: seats[0].Row}

	for _, v := range seats {
		if v.Row != currentRow.Row {
			seatRows = append(seatRows, currentRow)
			currentRow = SeatRow{Row: v.Row}
		}

		currentRow.Seats = append(currentRow.Seats, Seat{
			Id:         v.ID,
			Row:        v.Row,
			Column:     v.Col,
			Type:       v.Type,
			ExtraPrice: v.ExtraPrice,
			PartnerId:  v.PartnerID,
			Status:     int(v.Status),
		})
	}

	seatRows = append(seatRows, currentRow)

	return seatRows
}
