package realtime

import (
	"encoding/json"
	"time"
)

type MessageType string

// Client to server.
const (
	TypeJoinShowtime MessageType = "JoinShowtime"
	TypeSelectSeat   MessageType = "SelectSeat"
	TypeDeselectSeat MessageType = "DeselectSeat"
)

// Server to client.
const (
	TypeSeatSelected      MessageType = "SeatSelected"
	TypeSeatDeselected    MessageType = "SeatDeselected"
	TypeSeatStatusChanged MessageType = "SeatStatusChanged"
	TypeSeatsReleased     MessageType = "SeatsReleased"
	TypeHeldSeats         MessageType = "HeldSeats"
	TypeAccountInUse      MessageType = "AccountInUse"
	TypeHoldAccepted      MessageType = "HoldAccepted"
	TypeHoldRejected      MessageType = "HoldRejected"
	TypeSessionExpired    MessageType = "SessionExpired"
	TypeError             MessageType = "Error"
)

// Message is the frame written to clients.
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

type envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

type JoinShowtimeRequest struct {
	MovieShowID int `json:"movieShowId" validate:"gt=0"`
}

type SeatRequest struct {
	MovieShowID int `json:"movieShowId" validate:"gt=0"`
	SeatID      int `json:"seatId" validate:"gt=0"`
}

type SeatPayload struct {
	SeatID int `json:"seatId"`
}

type SeatStatusPayload struct {
	SeatID int `json:"seatId"`
	Status int `json:"status"`
}

type SeatsPayload struct {
	SeatIDs []int `json:"seatIds"`
}

type HeldSeatsPayload struct {
	HeldByMe     []int `json:"heldByMe"`
	HeldByOthers []int `json:"heldByOthers"`
}

type HoldAcceptedPayload struct {
	SeatIDs   []int     `json:"seatIds"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type HoldRejectedPayload struct {
	SeatID int    `json:"seatId"`
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type empty struct{}

func SeatSelected(seatID int) Message {
	return Message{Type: TypeSeatSelected, Data: SeatPayload{SeatID: seatID}}
}

func SeatDeselected(seatID int) Message {
	return Message{Type: TypeSeatDeselected, Data: SeatPayload{SeatID: seatID}}
}

func SeatStatusChanged(seatID, status int) Message {
	return Message{Type: TypeSeatStatusChanged, Data: SeatStatusPayload{SeatID: seatID, Status: status}}
}

func SeatsReleased(seatIDs []int) Message {
	return Message{Type: TypeSeatsReleased, Data: SeatsPayload{SeatIDs: seatIDs}}
}

func HeldSeats(mine, others []int) Message {
	return Message{Type: TypeHeldSeats, Data: HeldSeatsPayload{HeldByMe: mine, HeldByOthers: others}}
}

func HoldAccepted(seatIDs []int, expiresAt time.Time) Message {
	return Message{Type: TypeHoldAccepted, Data: HoldAcceptedPayload{SeatIDs: seatIDs, ExpiresAt: expiresAt}}
}

func HoldRejected(seatID int, reason string) Message {
	return Message{Type: TypeHoldRejected, Data: HoldRejectedPayload{SeatID: seatID, Reason: reason}}
}

func AccountInUse() Message {
	return Message{Type: TypeAccountInUse, Data: empty{}}
}

func SessionExpired() Message {
	return Message{Type: TypeSessionExpired, Data: empty{}}
}

func Error(message string) Message {
	return Message{Type: TypeError, Data: ErrorPayload{Message: message}}
}
