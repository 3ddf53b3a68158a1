// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a reservation is successfully
// converted into a booking.  It carries enough for downstream consumers to
// log, notify, or feed analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64   `json:"booking_id"`
	Reference        string   `json:"reference"`
	UserID           uint64   `json:"user_id"`
	SlotID           uint64   `json:"slot_id"`
	SeatLabels       []string `json:"seats"`
	PaymentMode      string   `json:"payment_mode"`
	TotalAmountCents uint64   `json:"total_amount_cents"`
	ConfirmedAt      string   `json:"confirmed_at"`
}
