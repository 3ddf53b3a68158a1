package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/vistaro/booking-service/internal/model"
)

// ReservationRepo is the reservation ledger: it tracks every hold, which
// seats are locked, by whom, since when, and until when.  It is internal to
// the lock manager, the booking finalizer and the expiry sweeper; handlers
// never touch it directly.  All mutating methods run inside a transaction
// supplied by the caller so that ledger rows and seat rows change as one
// atomic unit.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo constructs a ReservationRepo bound to the provided database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a new ACTIVE reservation and its seat set within the
// caller's transaction.  A fresh public token is generated when the
// reservation does not carry one.  On return res.ID and res.Token are
// populated; res.Status is forced to ACTIVE.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	if res.Token == "" {
		res.Token = uuid.NewString()
	}
	res.Status = model.ReservationActive
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (token, user_id, slot_id, status, expires_at) VALUES (?,?,?,?,?)`,
		res.Token, res.UserID, res.SlotID, res.Status, res.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)

	if len(res.SeatIDs) == 0 {
		return nil
	}
	q := `INSERT INTO reservation_seats (reservation_id, seat_id) VALUES `
	args := make([]interface{}, 0, len(res.SeatIDs)*2)
	for i, sid := range res.SeatIDs {
		if i > 0 {
			q += ","
		}
		q += "(?, ?)"
		args = append(args, res.ID, sid)
	}
	_, err = tx.ExecContext(ctx, q, args...)
	return err
}

// GetByToken loads a reservation by its public token, including its seat
// set.  Returns sql.ErrNoRows when the token is unknown.
func (r *ReservationRepo) GetByToken(ctx context.Context, token string) (*model.Reservation, error) {
	const q = `SELECT id, token, user_id, slot_id, status, expires_at, created_at
	           FROM reservations WHERE token = ? LIMIT 1`
	res := &model.Reservation{}
	err := r.db.QueryRowContext(ctx, q, token).
		Scan(&res.ID, &res.Token, &res.UserID, &res.SlotID, &res.Status, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	res.SeatIDs, err = r.seatIDs(ctx, nil, res.ID)
	return res, err
}

// ActiveByUserAndSlotTx returns the caller's ACTIVE reservation for a slot,
// locking the reservation row (FOR UPDATE) so a concurrent sweep, release
// or confirm serializes against the caller.  Returns nil when the user
// holds nothing ACTIVE on the slot.  At most one such reservation exists
// per user and slot; the lock manager never grants a second one.
func (r *ReservationRepo) ActiveByUserAndSlotTx(ctx context.Context, tx *sql.Tx, userID, slotID uint64) (*model.Reservation, error) {
	const q = `SELECT id, token, user_id, slot_id, status, expires_at, created_at
	           FROM reservations
	           WHERE user_id = ? AND slot_id = ? AND status = 'ACTIVE'
	           ORDER BY id DESC LIMIT 1 FOR UPDATE`
	res := &model.Reservation{}
	err := tx.QueryRowContext(ctx, q, userID, slotID).
		Scan(&res.ID, &res.Token, &res.UserID, &res.SlotID, &res.Status, &res.ExpiresAt, &res.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res.SeatIDs, err = r.seatIDs(ctx, tx, res.ID)
	return res, err
}

// ActiveCoveringSeatsTx returns every ACTIVE reservation of the user whose
// seat set intersects the given seat ids, with rows locked.  Used by
// release: a hold is indivisible, so releasing any of its seats releases
// the whole reservation.
func (r *ReservationRepo) ActiveCoveringSeatsTx(ctx context.Context, tx *sql.Tx, userID uint64, seatIDs []uint64) ([]model.Reservation, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT DISTINCT r.id, r.token, r.user_id, r.slot_id, r.status, r.expires_at, r.created_at
	      FROM reservations r
	      JOIN reservation_seats rs ON rs.reservation_id = r.id
	      WHERE r.user_id = ? AND r.status = 'ACTIVE' AND rs.seat_id IN (` + placeholders(len(seatIDs)) + `)
	      FOR UPDATE`
	args := append([]interface{}{userID}, idArgs(seatIDs)...)
	return r.scanReservations(ctx, tx, q, args...)
}

// ExpireOnSlotTx marks every ACTIVE reservation of a slot whose expiry has
// passed as EXPIRED and returns the seat ids freed.  Lazy expiry inside the
// lock/confirm transaction: a seat held by a dead reservation is available
// to the next buyer without waiting for the sweeper.
func (r *ReservationRepo) ExpireOnSlotTx(ctx context.Context, tx *sql.Tx, slotID uint64, now time.Time) ([]uint64, error) {
	const q = `SELECT id, token, user_id, slot_id, status, expires_at, created_at
	           FROM reservations
	           WHERE slot_id = ? AND status = 'ACTIVE' AND expires_at <= ?
	           FOR UPDATE`
	dead, err := r.scanReservations(ctx, tx, q, slotID, now.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	var freed []uint64
	for i := range dead {
		ok, err := r.MarkStatusTx(ctx, tx, dead[i].ID, model.ReservationActive, model.ReservationExpired)
		if err != nil {
			return nil, err
		}
		if ok {
			freed = append(freed, dead[i].SeatIDs...)
		}
	}
	return freed, nil
}

// ExpiredActiveTx returns every ACTIVE reservation across all slots whose
// expiry has passed, with rows locked.  This is the sweeper's scan.
func (r *ReservationRepo) ExpiredActiveTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Reservation, error) {
	const q = `SELECT id, token, user_id, slot_id, status, expires_at, created_at
	           FROM reservations
	           WHERE status = 'ACTIVE' AND expires_at <= ?
	           FOR UPDATE`
	return r.scanReservations(ctx, tx, q, now.UTC().Format("2006-01-02 15:04:05"))
}

// MarkStatusTx transitions a reservation from one status to another as a
// guarded compare-and-set.  It reports false when the reservation was not
// in the expected status: the caller raced with another transition and
// must treat its own as a no-op.
func (r *ReservationRepo) MarkStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to string) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// scanReservations runs a reservation query and loads each row's seat set.
func (r *ReservationRepo) scanReservations(ctx context.Context, tx *sql.Tx, q string, args ...interface{}) ([]model.Reservation, error) {
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.Token, &res.UserID, &res.SlotID, &res.Status, &res.ExpiresAt, &res.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, res)
	}
	// A mid-iteration failure must not pass for a short result set.
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].SeatIDs, err = r.seatIDs(ctx, tx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// seatIDs loads the seat set of a reservation, inside tx when one is given.
func (r *ReservationRepo) seatIDs(ctx context.Context, tx *sql.Tx, reservationID uint64) ([]uint64, error) {
	const q = `SELECT seat_id FROM reservation_seats WHERE reservation_id = ? ORDER BY seat_id`
	var rows *sql.Rows
	var err error
	if tx != nil {
		rows, err = tx.QueryContext(ctx, q, reservationID)
	} else {
		rows, err = r.db.QueryContext(ctx, q, reservationID)
	}
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
