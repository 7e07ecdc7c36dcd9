package movement

import (
	"errors"
	"fmt"
)

// InsufficientStockError reports a reservation or pick that would take the
// uncommitted quantity of a part below zero.
type InsufficientStockError struct {
	PartID    string
	Available int // on-hand minus open reservations
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of part '%s': %d available, %d requested",
		e.PartID, e.Available, e.Requested)
}

// IsInsufficientStock returns true if the error is an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var ise *InsufficientStockError
	return errors.As(err, &ise)
}

// ReservationNotFoundError reports an unknown reservation id.
type ReservationNotFoundError struct {
	ID string
}

func (e *ReservationNotFoundError) Error() string {
	return fmt.Sprintf("reservation '%s' not found", e.ID)
}

// IsReservationNotFound returns true if the error is a ReservationNotFoundError.
func IsReservationNotFound(err error) bool {
	var rnfe *ReservationNotFoundError
	return errors.As(err, &rnfe)
}

// ReservationClosedError reports an operation on a reservation that already
// reached a terminal status.
type ReservationClosedError struct {
	ID     string
	Status string
}

func (e *ReservationClosedError) Error() string {
	return fmt.Sprintf("reservation '%s' is already %s", e.ID, e.Status)
}

// IsReservationClosed returns true if the error is a ReservationClosedError.
func IsReservationClosed(err error) bool {
	var rce *ReservationClosedError
	return errors.As(err, &rce)
}
