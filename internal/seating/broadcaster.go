package seating

import (
	"github.com/metinatakli/cinema-booking/internal/domain"
	"github.com/metinatakli/cinema-booking/internal/realtime"
)

// Broadcaster turns registry events into realtime messages for the showtime group.
type Broadcaster struct {
	hub *realtime.Hub
}

func NewBroadcaster(hub *realtime.Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

func (b *Broadcaster) OnSeatEvent(e Event) {
	switch e.Kind {
	case EventHeld:
		// the holder's own connections get HoldAccepted instead
		for _, seatID := range e.SeatIDs {
			b.hub.SendToGroup(e.ShowtimeID, realtime.SeatSelected(seatID), e.HolderID)
		}

	case EventReleased:
		for _, seatID := range e.SeatIDs {
			b.hub.SendToGroup(e.ShowtimeID, realtime.SeatDeselected(seatID), "")
		}

		if e.Reason != ReasonDeselect {
			b.hub.SendToGroup(e.ShowtimeID, realtime.SeatsReleased(e.SeatIDs), "")
		}

	case EventBooked:
		for _, seatID := range e.SeatIDs {
			b.hub.SendToGroup(e.ShowtimeID, realtime.SeatStatusChanged(seatID, int(domain.SeatBooked)), "")
		}
	}
}
