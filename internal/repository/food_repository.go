package repository

import (
	"context"
	"database/sql"

	"github.com/vistaro/booking-service/internal/model"
)

// FoodRepo reads the concession catalog.  Foods are assigned to slots by
// the external catalog authoring flow; the booking finalizer prices food
// lines from the slot's assignment so a booking can never reference a food
// that was not offered for its slot.
type FoodRepo struct {
	db *sql.DB
}

// NewFoodRepo constructs a FoodRepo given a DB handle.
func NewFoodRepo(db *sql.DB) *FoodRepo { return &FoodRepo{db: db} }

// GetByID loads one food item.  Returns ErrFoodNotFound for unknown ids.
func (r *FoodRepo) GetByID(ctx context.Context, id uint64) (*model.Food, error) {
	f := &model.Food{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price_cents FROM foods WHERE id = ? LIMIT 1`, id).
		Scan(&f.ID, &f.Name, &f.PriceCents)
	if err == sql.ErrNoRows {
		return nil, ErrFoodNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListAll returns every food item.
func (r *FoodRepo) ListAll(ctx context.Context) ([]model.Food, error) {
	return r.list(ctx, `SELECT id, name, price_cents FROM foods ORDER BY id`)
}

// ListBySlot returns the foods assigned to a slot.
func (r *FoodRepo) ListBySlot(ctx context.Context, slotID uint64) ([]model.Food, error) {
	const q = `SELECT f.id, f.name, f.price_cents
	           FROM foods f JOIN slot_foods sf ON sf.food_id = f.id
	           WHERE sf.slot_id = ? ORDER BY f.id`
	return r.list(ctx, q, slotID)
}

// BySlotTx returns the foods assigned to a slot as a map keyed by food id,
// inside the caller's transaction.  The finalizer uses it to validate and
// price food lines atomically with the booking commit.
func (r *FoodRepo) BySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) (map[uint64]model.Food, error) {
	const q = `SELECT f.id, f.name, f.price_cents
	           FROM foods f JOIN slot_foods sf ON sf.food_id = f.id
	           WHERE sf.slot_id = ?`
	rows, err := tx.QueryContext(ctx, q, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]model.Food)
	for rows.Next() {
		var f model.Food
		if err := rows.Scan(&f.ID, &f.Name, &f.PriceCents); err != nil {
			return nil, err
		}
		out[f.ID] = f
	}
	return out, rows.Err()
}

func (r *FoodRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Food, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Food
	for rows.Next() {
		var f model.Food
		if err := rows.Scan(&f.ID, &f.Name, &f.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
