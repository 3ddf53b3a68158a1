package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/vistaro/booking-service/internal/model"
)

// BookingRepo persists committed bookings.  Bookings are write-once: the
// finalizer inserts them inside its transaction and nothing in this service
// ever updates or deletes one (cancellation/refund flows live elsewhere).
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo given a DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts the booking header plus its seat and food lines within
// the caller's transaction.  A public reference is generated when the
// booking does not carry one.  On return b.ID and b.Reference are set.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if b.Reference == "" {
		b.Reference = uuid.NewString()
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (reference, user_id, slot_id, offer_code, gift_card_code, payment_mode, total_amount_cents)
		 VALUES (?,?,?,?,?,?,?)`,
		b.Reference, b.UserID, b.SlotID, b.OfferCode, b.GiftCardCode, b.PaymentMode, b.TotalAmountCents)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(b.Seats) > 0 {
		q := `INSERT INTO booking_seats (booking_id, seat_id, row_label, seat_number, price_cents) VALUES `
		args := make([]interface{}, 0, len(b.Seats)*5)
		for i, s := range b.Seats {
			if i > 0 {
				q += ","
			}
			q += "(?,?,?,?,?)"
			args = append(args, b.ID, s.SeatID, s.RowLabel, s.SeatNumber, s.PriceCents)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	if len(b.Foods) > 0 {
		q := `INSERT INTO booking_foods (booking_id, food_id, name, quantity, price_cents) VALUES `
		args := make([]interface{}, 0, len(b.Foods)*5)
		for i, f := range b.Foods {
			if i > 0 {
				q += ","
			}
			q += "(?,?,?,?,?)"
			args = append(args, b.ID, f.FoodID, f.Name, f.Quantity, f.PriceCents)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// GetByID loads one booking with its seat and food lines.  Returns
// ErrBookingNotFound when the id is unknown.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT id, reference, user_id, slot_id, offer_code, gift_card_code, payment_mode, total_amount_cents, created_at
	           FROM bookings WHERE id = ? LIMIT 1`
	b := &model.Booking{}
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&b.ID, &b.Reference, &b.UserID, &b.SlotID, &b.OfferCode, &b.GiftCardCode, &b.PaymentMode, &b.TotalAmountCents, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListByUser returns all bookings of a user, newest first, with lines.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT id, reference, user_id, slot_id, offer_code, gift_card_code, payment_mode, total_amount_cents, created_at
	           FROM bookings WHERE user_id = ? ORDER BY id DESC`
	return r.list(ctx, q, userID)
}

// ListBySlot returns all bookings of a slot with lines.
func (r *BookingRepo) ListBySlot(ctx context.Context, slotID uint64) ([]model.Booking, error) {
	const q = `SELECT id, reference, user_id, slot_id, offer_code, gift_card_code, payment_mode, total_amount_cents, created_at
	           FROM bookings WHERE slot_id = ? ORDER BY id DESC`
	return r.list(ctx, q, slotID)
}

// ListAll returns every booking, newest first.  Admin surface.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	const q = `SELECT id, reference, user_id, slot_id, offer_code, gift_card_code, payment_mode, total_amount_cents, created_at
	           FROM bookings ORDER BY id DESC`
	return r.list(ctx, q)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.Reference, &b.UserID, &b.SlotID, &b.OfferCode, &b.GiftCardCode, &b.PaymentMode, &b.TotalAmountCents, &b.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadLines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// loadLines populates the seat and food lines of a booking.
func (r *BookingRepo) loadLines(ctx context.Context, b *model.Booking) error {
	seatRows, err := r.db.QueryContext(ctx,
		`SELECT seat_id, row_label, seat_number, price_cents FROM booking_seats WHERE booking_id = ? ORDER BY row_label, seat_number`,
		b.ID)
	if err != nil {
		return err
	}
	for seatRows.Next() {
		var s model.BookingSeat
		if err := seatRows.Scan(&s.SeatID, &s.RowLabel, &s.SeatNumber, &s.PriceCents); err != nil {
			seatRows.Close()
			return err
		}
		b.Seats = append(b.Seats, s)
	}
	if err := seatRows.Close(); err != nil {
		return err
	}

	foodRows, err := r.db.QueryContext(ctx,
		`SELECT food_id, name, quantity, price_cents FROM booking_foods WHERE booking_id = ? ORDER BY food_id`,
		b.ID)
	if err != nil {
		return err
	}
	defer foodRows.Close()
	for foodRows.Next() {
		var f model.BookingFood
		if err := foodRows.Scan(&f.FoodID, &f.Name, &f.Quantity, &f.PriceCents); err != nil {
			return err
		}
		b.Foods = append(b.Foods, f)
	}
	return foodRows.Err()
}
