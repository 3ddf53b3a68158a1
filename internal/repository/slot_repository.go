package repository

import (
	"context"
	"database/sql"

	"github.com/vistaro/booking-service/internal/model"
)

// SlotRepo reads the slot catalog.  Slots are authored by an external
// catalog service; this repo only answers lookups for the booking flow and
// the browse endpoints the storefront calls.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo constructs a SlotRepo given a DB handle.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotCols = `id, event_id, venue_name, city, starts_at, ends_at, format, language, base_price_cents`

// GetByID loads one slot.  Returns ErrSlotNotFound for unknown ids.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	s := &model.Slot{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+slotCols+` FROM slots WHERE id = ? LIMIT 1`, id).
		Scan(&s.ID, &s.EventID, &s.VenueName, &s.City, &s.StartsAt, &s.EndsAt, &s.Format, &s.Language, &s.BasePriceCents)
	if err == sql.ErrNoRows {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListAll returns every slot ordered by start time.
func (r *SlotRepo) ListAll(ctx context.Context) ([]model.Slot, error) {
	return r.list(ctx, `SELECT `+slotCols+` FROM slots ORDER BY starts_at`)
}

// ListByEvent returns the slots of one event ordered by start time.
func (r *SlotRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Slot, error) {
	return r.list(ctx, `SELECT `+slotCols+` FROM slots WHERE event_id = ? ORDER BY starts_at`, eventID)
}

// ListByCity returns the slots playing in a city ordered by start time.
func (r *SlotRepo) ListByCity(ctx context.Context, city string) ([]model.Slot, error) {
	return r.list(ctx, `SELECT `+slotCols+` FROM slots WHERE city = ? ORDER BY starts_at`, city)
}

func (r *SlotRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Slot, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.EventID, &s.VenueName, &s.City, &s.StartsAt, &s.EndsAt, &s.Format, &s.Language, &s.BasePriceCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
