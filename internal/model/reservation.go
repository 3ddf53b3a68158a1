package model

import "time"

// Reservation status values.  A reservation starts ACTIVE and moves to
// exactly one of the terminal states: CONSUMED when a booking is committed
// from it, RELEASED on an explicit cancel, or EXPIRED when its TTL elapses
// before either of those.
const (
	ReservationActive   = "ACTIVE"
	ReservationExpired  = "EXPIRED"
	ReservationReleased = "RELEASED"
	ReservationConsumed = "CONSUMED"
)

// Reservation is a temporary hold over a set of seats of one slot during
// checkout.  The seat sets of two ACTIVE reservations are always disjoint.
// The expiry is fixed at creation time and never extended; client activity
// does not renew a hold.
//
// Fields:
//  ID        – primary key identifier.
//  Token     – opaque public identifier returned to the client.
//  UserID    – session/user that owns the hold.
//  SlotID    – slot whose seats are held.
//  SeatIDs   – the exact seat set locked by this reservation.
//  Status    – ACTIVE, EXPIRED, RELEASED or CONSUMED.
//  ExpiresAt – fixed expiry (creation time + TTL).
//  CreatedAt – creation timestamp.
type Reservation struct {
	ID        uint64    // reservations.id
	Token     string    // reservations.token
	UserID    uint64    // reservations.user_id
	SlotID    uint64    // reservations.slot_id
	SeatIDs   []uint64  // reservation_seats.seat_id
	Status    string    // reservations.status
	ExpiresAt time.Time // reservations.expires_at
	CreatedAt time.Time // reservations.created_at
}

// Expired reports whether the reservation's TTL has elapsed at the given
// instant.  It is a pure check; the authoritative state transition happens
// inside the lock manager's transaction.
func (r *Reservation) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
