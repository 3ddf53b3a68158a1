package model

// Food is a concession item that can be added to a booking.  Foods are
// authored externally and assigned to slots; this service only reads them.
type Food struct {
	ID         uint64 // foods.id
	Name       string // foods.name
	PriceCents uint32 // foods.price_cents
}
