// Package repository defines error values that are reused across multiple
// repositories and the services built on them.  These sentinel values allow
// higher layers such as handlers to distinguish between failure scenarios
// and translate them into distinct HTTP responses: a seat conflict must be
// distinguishable from an expired hold so the client can show "someone else
// booked this seat" versus "your session timed out".
package repository

import (
	"errors"
	"fmt"
)

// ErrSlotNotFound is returned when the referenced slot does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// ErrSeatNotFound is returned when one or more referenced seats do not exist.
var ErrSeatNotFound = errors.New("seat not found")

// ErrFoodNotFound is returned when a booking references an unknown food item
// or one not assigned to the booking's slot.
var ErrFoodNotFound = errors.New("food not found")

// ErrBookingNotFound is returned when the referenced booking does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrReservationNotActive is returned when a booking is attempted and the
// caller holds no ACTIVE reservation for the slot, or the reservation was
// consumed or released concurrently.
var ErrReservationNotActive = errors.New("reservation not active")

// ErrReservationExpired is returned when a booking is attempted on a hold
// whose TTL elapsed.  The seats go back to AVAILABLE; the caller must
// restart seat selection.
var ErrReservationExpired = errors.New("reservation expired")

// ErrEmptySeatSet is returned when a lock request names no seats after
// deduplication.
var ErrEmptySeatSet = errors.New("seat set is empty")

// ErrMixedSlots is returned when a lock request names seats belonging to
// more than one slot.  A reservation covers exactly one slot.
var ErrMixedSlots = errors.New("seats belong to different slots")

// ErrSeatSetMismatch is returned when a confirm request's seat set differs
// from the reservation's seat set.  Partial consumption of a hold is
// unsupported: a reservation is consumed whole or not at all.
var ErrSeatSetMismatch = errors.New("seat set does not match held reservation")

// ErrInconsistentState signals a broken derived-state invariant, e.g. a seat
// marked LOCKED with no ACTIVE reservation backing it.  It is a fatal
// internal-consistency error: it must be logged and surfaced, never silently
// repaired with a best-guess state.
var ErrInconsistentState = errors.New("seat state inconsistent with reservation ledger")

// SeatUnavailableError reports a failed all-or-nothing lock attempt.  It
// names every conflicting seat so the client can re-render the seat map and
// let the user re-select.  No partial lock is ever granted.
type SeatUnavailableError struct {
	SeatIDs []uint64
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.SeatIDs)
}
