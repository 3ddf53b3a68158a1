package model

import "time"

// Booking is a committed, immutable purchase created from a still-valid
// reservation.  Its seat list is a permanent snapshot; the seats it names
// are BOOKED for the lifetime of the slot.  Offer and gift-card codes and
// the payment mode are stored as opaque metadata; this service does not
// validate payments.
//
// Fields:
//  ID               – primary key identifier.
//  Reference        – opaque public booking reference.
//  UserID           – user who made the booking.
//  SlotID           – slot being booked.
//  Seats            – seat lines snapshotted at commit time.
//  Foods            – food lines with quantities.
//  OfferCode        – applied offer code, if any.
//  GiftCardCode     – applied gift card code, if any.
//  PaymentMode      – payment mode label (CARD, UPI, WALLET, NETBANKING, ...).
//  TotalAmountCents – computed total for seats plus food in cents.
//  CreatedAt        – commit timestamp.
type Booking struct {
	ID               uint64        // bookings.id
	Reference        string        // bookings.reference
	UserID           uint64        // bookings.user_id
	SlotID           uint64        // bookings.slot_id
	Seats            []BookingSeat // booking_seats rows
	Foods            []BookingFood // booking_foods rows
	OfferCode        *string       // bookings.offer_code (nullable)
	GiftCardCode     *string       // bookings.gift_card_code (nullable)
	PaymentMode      string        // bookings.payment_mode
	TotalAmountCents uint64        // bookings.total_amount_cents
	CreatedAt        time.Time     // bookings.created_at
}

// BookingSeat is one seat line of a booking, priced at commit time.
type BookingSeat struct {
	SeatID     uint64 // booking_seats.seat_id
	RowLabel   string // booking_seats.row_label
	SeatNumber uint32 // booking_seats.seat_number
	PriceCents uint32 // booking_seats.price_cents
}

// BookingFood is one food line of a booking.
type BookingFood struct {
	FoodID     uint64 // booking_foods.food_id
	Name       string // booking_foods.name
	Quantity   uint32 // booking_foods.quantity
	PriceCents uint32 // booking_foods.price_cents (unit price)
}
