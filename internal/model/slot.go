package model

import "time"

// Slot identifies a showtime: an event playing at a venue over a time
// window.  Slots are authored by an external catalog service; this service
// only reads them and owns their seat maps.
//
// Fields:
//  ID             – primary key identifier.
//  EventID        – event (movie, sport, general) this slot belongs to.
//  VenueName      – display name of the venue.
//  City           – city the venue is in.
//  StartsAt       – showtime start.
//  EndsAt         – showtime end.
//  Format         – presentation format (2D, 3D, IMAX, ...), empty for non-movies.
//  Language       – audio language, empty for non-movies.
//  BasePriceCents – advertised base price in cents.
type Slot struct {
	ID             uint64    // slots.id
	EventID        uint64    // slots.event_id
	VenueName      string    // slots.venue_name
	City           string    // slots.city
	StartsAt       time.Time // slots.starts_at
	EndsAt         time.Time // slots.ends_at
	Format         string    // slots.format
	Language       string    // slots.language
	BasePriceCents uint32    // slots.base_price_cents
}
