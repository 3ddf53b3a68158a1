package model

import "time"

// Seat status values.  A seat's status is derived state: a LOCKED seat is
// backed by exactly one ACTIVE reservation and a BOOKED seat by exactly one
// booking line.  Only the lock manager and the booking finalizer may move a
// seat between these states.
const (
	SeatAvailable = "AVAILABLE"
	SeatLocked    = "LOCKED"
	SeatBooked    = "BOOKED"
)

// Seat is one sellable seat within a slot's seat map.  Seats are
// provisioned together with their slot and never deleted while the
// slot exists.
//
// Fields:
//  ID         – primary key identifier.
//  SlotID     – showtime slot to which this seat belongs.
//  RowLabel   – letter or string designating the row.
//  SeatNumber – ordering key of the seat within its row.
//  PriceCents – price of this seat in cents.
//  Status     – AVAILABLE, LOCKED or BOOKED.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Seat struct {
	ID         uint64    // seats.id
	SlotID     uint64    // seats.slot_id
	RowLabel   string    // seats.row_label
	SeatNumber uint32    // seats.seat_number
	PriceCents uint32    // seats.price_cents
	Status     string    // seats.status
	CreatedAt  time.Time // seats.created_at
	UpdatedAt  time.Time // seats.updated_at
}
