package domain

import "errors"

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrEditConflict       = errors.New("edit conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSeatAlreadyHeld    = errors.New("seat is already held by another customer")
	ErrSeatAlreadyBooked  = errors.New("seat is already booked")
	ErrHoldLimitExceeded  = errors.New("maximum number of seats per showtime reached")
	ErrSeatNotHeld        = errors.New("a selected seat is not held by the current session")
	ErrSessionExpired     = errors.New("your selections have expired, please select your seats again")
	ErrSeatInCheckout     = errors.New("seat is part of a checkout in progress")
	ErrAccountInUse       = errors.New("account is already in use on another connection")
	ErrNoSeatsHeld        = errors.New("there are no seats held by the current session")
	ErrCheckoutNotFound   = errors.New("checkout not found or has expired")
)
