package repository // repository for seat persistence

import (
	"context"
	"database/sql"
	"strings"

	"github.com/vistaro/booking-service/internal/model"
)

// SeatRepo encapsulates database operations on the seats table, the durable
// record of every seat of every slot and its current status.  Status
// mutations always happen through the *Tx methods inside a transaction owned
// by the lock manager or the booking finalizer, so no caller can ever
// observe a seat LOCKED without its reservation row existing.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// ListBySlot returns every seat of a slot ordered by row and number, with
// the latest committed status.  No side effects; reads outside any lock
// transaction see only completed transitions.  An unknown slot yields
// ErrSlotNotFound so callers can tell it apart from a provisioned slot
// whose seat map is still empty.
func (r *SeatRepo) ListBySlot(ctx context.Context, slotID uint64) ([]model.Seat, error) {
	const q = `SELECT id, slot_id, row_label, seat_number, price_cents, status, created_at, updated_at
	           FROM seats WHERE slot_id = ? ORDER BY row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.SlotID, &s.RowLabel, &s.SeatNumber, &s.PriceCents, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM slots WHERE id = ?)`, slotID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrSlotNotFound
		}
	}
	return seats, nil
}

// SlotForSeatsTx resolves which slot the given seats belong to with a
// plain read, no row locks.  Returns ErrSeatNotFound when any id is
// unknown and ErrMixedSlots when the ids span more than one slot.  The
// lock manager calls this before touching the reservation ledger so the
// seat rows themselves are locked last.
func (r *SeatRepo) SlotForSeatsTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) (uint64, error) {
	if len(seatIDs) == 0 {
		return 0, ErrEmptySeatSet
	}
	q := `SELECT slot_id FROM seats WHERE id IN (` + placeholders(len(seatIDs)) + `)`
	rows, err := tx.QueryContext(ctx, q, idArgs(seatIDs)...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var slotID uint64
	n := 0
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			return 0, err
		}
		if n > 0 && sid != slotID {
			return 0, ErrMixedSlots
		}
		slotID = sid
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if n != len(seatIDs) {
		return 0, ErrSeatNotFound
	}
	return slotID, nil
}

// GetForUpdateTx loads the requested seats inside the caller's transaction
// with row locks (SELECT ... FOR UPDATE).  This is the serialization point
// of the whole core: two concurrent lock attempts over overlapping seat
// sets block here and are totally ordered by the database.  Rows are locked
// in primary-key order so overlapping requests cannot deadlock each other.
// Callers must compare len(result) with len(seatIDs) to detect unknown ids.
func (r *SeatRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT id, slot_id, row_label, seat_number, price_cents, status, created_at, updated_at
	      FROM seats WHERE id IN (` + placeholders(len(seatIDs)) + `) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, idArgs(seatIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.SlotID, &s.RowLabel, &s.SeatNumber, &s.PriceCents, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// BulkUpdateStatusTx flips the status of the given seats within the
// caller's transaction.  The caller is responsible for having locked the
// rows first and for keeping the reservation ledger in step.
func (r *SeatRepo) BulkUpdateStatusTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64, status string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	q := `UPDATE seats SET status = ? WHERE id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]interface{}{status}, idArgs(seatIDs)...)
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// StuckLockedSeatsTx returns the ids of seats marked LOCKED that have no
// ACTIVE reservation covering them.  Such a seat is a broken invariant,
// not a recoverable condition: the sweeper reports it
// and leaves it for operator intervention.
func (r *SeatRepo) StuckLockedSeatsTx(ctx context.Context, tx *sql.Tx) ([]uint64, error) {
	const q = `SELECT s.id FROM seats s
	           WHERE s.status = 'LOCKED'
	             AND NOT EXISTS (
	               SELECT 1 FROM reservation_seats rs
	               JOIN reservations r ON r.id = rs.reservation_id
	               WHERE rs.seat_id = s.id AND r.status = 'ACTIVE')`
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// placeholders builds a "?,?,?" list of the given length for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// idArgs converts seat ids into driver arguments for IN clauses.
func idArgs(ids []uint64) []interface{} {
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}
