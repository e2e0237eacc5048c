package errors

import "errors"

var (
	ErrNotFound = errors.New("rental not found")

	ErrInvalidID = errors.New("invalid rental ID format")

	ErrSlotTaken = errors.New("slot already claimed by an active rental")

	ErrStatusChanged = errors.New("rental status changed concurrently")
)
