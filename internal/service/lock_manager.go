// Package service implements the seat-reservation core: the lock manager
// state machine, the booking finalizer and the expiry sweeper.  Every
// mutation of the seat store or the reservation ledger goes through a
// single SQL transaction with row locks, so concurrent conflicting calls
// are totally ordered by the database and check-then-act sequences cannot
// interleave.
package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/vistaro/booking-service/internal/model"
	"github.com/vistaro/booking-service/internal/repository"
)

// LockManager drives seat state transitions: AVAILABLE -> LOCKED on a
// successful lock, LOCKED -> AVAILABLE on release or expiry.  (The
// LOCKED -> BOOKED transition belongs to the Finalizer.)  Locking is
// all-or-nothing over the requested seat set; when two callers race for
// overlapping seats, exactly one wins and the loser gets a
// SeatUnavailableError naming the conflicting ids.
type LockManager struct {
	db     *sql.DB
	seats  *repository.SeatRepo
	ledger *repository.ReservationRepo
	ttl    time.Duration
	now    func() time.Time
}

// NewLockManager constructs a LockManager.  ttl is the fixed hold duration;
// it is stamped on the reservation at creation and never extended.
func NewLockManager(db *sql.DB, seats *repository.SeatRepo, ledger *repository.ReservationRepo, ttl time.Duration) *LockManager {
	return &LockManager{db: db, seats: seats, ledger: ledger, ttl: ttl, now: time.Now}
}

// Lock atomically acquires a hold over the given seat set for the session.
//
// The whole check-then-flip runs in one transaction.  Row locks are taken
// in the same order everywhere in the core (reservation rows first, seat
// rows last, seat rows in id order) so a lock racing a sweep or a confirm
// over the same hold blocks instead of deadlocking: the slot is resolved
// with a plain read, dead holds on the slot are lazily expired, then the
// requested seat rows are locked (FOR UPDATE) and every one must be
// AVAILABLE or the call fails with *repository.SeatUnavailableError
// listing each conflicting seat; no partial lock is ever granted.  Calling
// Lock again for the exact seat set already held by the session's ACTIVE
// reservation is a no-op returning the existing reservation, so a UI
// re-render cannot double-charge the countdown.
func (m *LockManager) Lock(ctx context.Context, userID uint64, seatIDs []uint64) (*model.Reservation, error) {
	ids := DedupeSeatIDs(seatIDs)
	if len(ids) == 0 {
		return nil, repository.ErrEmptySeatSet
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slotID, err := m.seats.SlotForSeatsTx(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	// A hold that timed out but has not been swept yet must not block the
	// next buyer.
	freed, err := m.ledger.ExpireOnSlotTx(ctx, tx, slotID, now)
	if err != nil {
		return nil, err
	}
	if len(freed) > 0 {
		if err := m.seats.BulkUpdateStatusTx(ctx, tx, freed, model.SeatAvailable); err != nil {
			return nil, err
		}
	}

	// Re-lock idempotence: same session, same exact seat set, hold still live.
	existing, err := m.ledger.ActiveByUserAndSlotTx(ctx, tx, userID, slotID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.Expired(now) && SameSeatSet(existing.SeatIDs, ids) {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return existing, nil
	}

	seats, err := m.seats.GetForUpdateTx(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(ids) {
		return nil, repository.ErrSeatNotFound
	}
	if _, err := uniformSlot(seats); err != nil {
		return nil, err
	}

	if conflicts := ConflictingSeats(seats); len(conflicts) > 0 {
		return nil, &repository.SeatUnavailableError{SeatIDs: conflicts}
	}

	res := &model.Reservation{
		UserID:    userID,
		SlotID:    slotID,
		SeatIDs:   ids,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.ledger.CreateTx(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := m.seats.BulkUpdateStatusTx(ctx, tx, ids, model.SeatLocked); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// Release returns the seats of every ACTIVE reservation of the session that
// covers any of the given seats back to AVAILABLE.  A hold is indivisible:
// touching one of its seats releases the whole reservation.  Releasing
// seats that are not held (or already released) is a harmless no-op: the
// client calls this from several exit paths (cancel, unmount, timeout) and
// a double release must never fail.  The released reservation count is
// returned.
func (m *LockManager) Release(ctx context.Context, userID uint64, seatIDs []uint64) (int, error) {
	ids := DedupeSeatIDs(seatIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	held, err := m.ledger.ActiveCoveringSeatsTx(ctx, tx, userID, ids)
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range held {
		ok, err := m.ledger.MarkStatusTx(ctx, tx, held[i].ID, model.ReservationActive, model.ReservationReleased)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue // raced with sweep or consume; their transition stands
		}
		if err := m.seats.BulkUpdateStatusTx(ctx, tx, held[i].SeatIDs, model.SeatAvailable); err != nil {
			return 0, err
		}
		released++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return released, nil
}

// SweepExpired releases every ACTIVE reservation whose TTL has elapsed,
// exactly as Release does, and returns how many were expired.  It is the
// server-side backstop for clients that crash or never call unlock; the
// shared compare-and-set makes a sweep racing a concurrent consume or
// release a no-op.
func (m *LockManager) SweepExpired(ctx context.Context) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	dead, err := m.ledger.ExpiredActiveTx(ctx, tx, m.now().UTC())
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range dead {
		ok, err := m.ledger.MarkStatusTx(ctx, tx, dead[i].ID, model.ReservationActive, model.ReservationExpired)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if err := m.seats.BulkUpdateStatusTx(ctx, tx, dead[i].SeatIDs, model.SeatAvailable); err != nil {
			return 0, err
		}
		expired++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return expired, nil
}

// CheckConsistency returns the ids of seats stuck LOCKED without a backing
// ACTIVE reservation.  A non-empty result is a fatal invariant violation;
// the caller must alert, not repair.
func (m *LockManager) CheckConsistency(ctx context.Context) ([]uint64, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	return m.seats.StuckLockedSeatsTx(ctx, tx)
}

// IsExpired reports whether a reservation's TTL has elapsed.  Pure check
// against the manager's clock; the finalizer still rechecks inside its
// transaction before committing.
func (m *LockManager) IsExpired(res *model.Reservation) bool {
	return res.Expired(m.now().UTC())
}

// DedupeSeatIDs drops zero and duplicate ids while preserving order.
func DedupeSeatIDs(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SameSeatSet reports whether two id slices contain exactly the same seats,
// regardless of order.
func SameSeatSet(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]uint64(nil), a...)
	bs := append([]uint64(nil), b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// ConflictingSeats returns the ids of seats that are not AVAILABLE, in the
// order they were requested.
func ConflictingSeats(seats []model.Seat) []uint64 {
	var out []uint64
	for i := range seats {
		if seats[i].Status != model.SeatAvailable {
			out = append(out, seats[i].ID)
		}
	}
	return out
}

// uniformSlot returns the single slot id shared by all seats, or
// ErrMixedSlots when the set spans slots.
func uniformSlot(seats []model.Seat) (uint64, error) {
	if len(seats) == 0 {
		return 0, repository.ErrEmptySeatSet
	}
	slotID := seats[0].SlotID
	for i := range seats {
		if seats[i].SlotID != slotID {
			return 0, repository.ErrMixedSlots
		}
	}
	return slotID, nil
}
