package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/vistaro/booking-service/internal/model"
	"github.com/vistaro/booking-service/internal/repository"
)

func TestDedupeSeatIDs(t *testing.T) {
	got := DedupeSeatIDs([]uint64{3, 0, 1, 3, 2, 1})
	want := []uint64{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if out := DedupeSeatIDs([]uint64{0, 0}); len(out) != 0 {
		t.Fatalf("expected empty result for all-zero input, got %v", out)
	}
	if out := DedupeSeatIDs(nil); len(out) != 0 {
		t.Fatalf("expected empty result for nil input, got %v", out)
	}
}

func TestSameSeatSet(t *testing.T) {
	cases := []struct {
		a, b []uint64
		want bool
	}{
		{[]uint64{1, 2, 3}, []uint64{3, 2, 1}, true},
		{[]uint64{1, 2}, []uint64{1, 2, 3}, false},
		{[]uint64{1, 2, 3}, []uint64{1, 2, 4}, false},
		{nil, nil, true},
		{[]uint64{5}, []uint64{5}, true},
	}
	for _, tc := range cases {
		if got := SameSeatSet(tc.a, tc.b); got != tc.want {
			t.Errorf("SameSeatSet(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestConflictingSeats(t *testing.T) {
	seats := []model.Seat{
		{ID: 1, Status: model.SeatAvailable},
		{ID: 2, Status: model.SeatLocked},
		{ID: 3, Status: model.SeatBooked},
		{ID: 4, Status: model.SeatAvailable},
	}
	got := ConflictingSeats(seats)
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("got %v, want [2 3]", got)
	}
	if out := ConflictingSeats(seats[:1]); out != nil {
		t.Fatalf("expected nil for all-available seats, got %v", out)
	}
}

func TestUniformSlot(t *testing.T) {
	if _, err := uniformSlot(nil); err != repository.ErrEmptySeatSet {
		t.Fatalf("empty set: got %v, want ErrEmptySeatSet", err)
	}
	if _, err := uniformSlot([]model.Seat{{SlotID: 1}, {SlotID: 2}}); err != repository.ErrMixedSlots {
		t.Fatalf("mixed slots: got %v, want ErrMixedSlots", err)
	}
	slot, err := uniformSlot([]model.Seat{{SlotID: 9}, {SlotID: 9}})
	if err != nil || slot != 9 {
		t.Fatalf("got (%d, %v), want (9, nil)", slot, err)
	}
}

// ----- integration tests (require a real MySQL with the schema applied) -----

// openTestDB connects to the database named by TEST_DB_DSN.  Tests that
// call it are skipped when the variable is unset, so the unit suite stays
// runnable without infrastructure.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping database tests")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixture struct {
	db     *sql.DB
	userA  uint64
	userB  uint64
	slotID uint64
	seats  []uint64
}

// newFixture provisions a user pair, one slot and four AVAILABLE seats.
// Rows are deleted again when the test finishes.
func newFixture(t *testing.T, db *sql.DB) *fixture {
	t.Helper()
	ctx := context.Background()
	tag := fmt.Sprintf("%d", time.Now().UnixNano())

	f := &fixture{db: db}
	f.userA = insertUser(t, db, "a-"+tag+"@test.local")
	f.userB = insertUser(t, db, "b-"+tag+"@test.local")

	res, err := db.ExecContext(ctx,
		`INSERT INTO slots (event_id, venue_name, city, starts_at, ends_at) VALUES (1, ?, 'Testville', NOW(), NOW())`,
		"venue-"+tag)
	if err != nil {
		t.Fatalf("insert slot: %v", err)
	}
	sid, _ := res.LastInsertId()
	f.slotID = uint64(sid)

	for i := 0; i < 4; i++ {
		r, err := db.ExecContext(ctx,
			`INSERT INTO seats (slot_id, row_label, seat_number, price_cents, status) VALUES (?, 'A', ?, 25000, 'AVAILABLE')`,
			f.slotID, i+1)
		if err != nil {
			t.Fatalf("insert seat: %v", err)
		}
		id, _ := r.LastInsertId()
		f.seats = append(f.seats, uint64(id))
	}

	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM reservations WHERE slot_id = ?`, f.slotID)
		_, _ = db.Exec(`DELETE FROM seats WHERE slot_id = ?`, f.slotID)
		_, _ = db.Exec(`DELETE FROM slots WHERE id = ?`, f.slotID)
		_, _ = db.Exec(`DELETE FROM users WHERE id IN (?, ?)`, f.userA, f.userB)
	})
	return f
}

func insertUser(t *testing.T, db *sql.DB, email string) uint64 {
	t.Helper()
	res, err := db.Exec(
		`INSERT INTO users (email, full_name, password_hash, role) VALUES (?, 'Test User', 'x', 'CUSTOMER')`,
		email)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

func newTestManager(db *sql.DB, ttl time.Duration) *LockManager {
	return NewLockManager(db, repository.NewSeatRepo(db), repository.NewReservationRepo(db), ttl)
}

func seatStatus(t *testing.T, db *sql.DB, seatID uint64) string {
	t.Helper()
	var s string
	if err := db.QueryRow(`SELECT status FROM seats WHERE id = ?`, seatID).Scan(&s); err != nil {
		t.Fatalf("read seat status: %v", err)
	}
	return s
}

func TestLockConflictAllOrNothing(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	lm := newTestManager(db, 10*time.Minute)
	ctx := context.Background()

	if _, err := lm.Lock(ctx, f.userA, f.seats[:2]); err != nil {
		t.Fatalf("first lock: %v", err)
	}

	// Overlap on seats[1]: the whole request must fail and seats[2] must
	// stay AVAILABLE.
	_, err := lm.Lock(ctx, f.userB, []uint64{f.seats[1], f.seats[2]})
	var unavailable *repository.SeatUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("got %v, want SeatUnavailableError", err)
	}
	if len(unavailable.SeatIDs) != 1 || unavailable.SeatIDs[0] != f.seats[1] {
		t.Fatalf("conflicting ids = %v, want [%d]", unavailable.SeatIDs, f.seats[1])
	}
	if got := seatStatus(t, db, f.seats[2]); got != model.SeatAvailable {
		t.Fatalf("seat %d = %s after failed lock, want AVAILABLE", f.seats[2], got)
	}
}

func TestLockDisjointSetsBothSucceed(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	lm := newTestManager(db, 10*time.Minute)
	ctx := context.Background()

	if _, err := lm.Lock(ctx, f.userA, f.seats[:2]); err != nil {
		t.Fatalf("lock A: %v", err)
	}
	if _, err := lm.Lock(ctx, f.userB, f.seats[2:4]); err != nil {
		t.Fatalf("disjoint lock B must succeed: %v", err)
	}
}

func TestLockIdempotentRelock(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	lm := newTestManager(db, 10*time.Minute)
	ctx := context.Background()

	first, err := lm.Lock(ctx, f.userA, f.seats[:2])
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	// Same set in a different order: no new reservation, no new expiry.
	again, err := lm.Lock(ctx, f.userA, []uint64{f.seats[1], f.seats[0]})
	if err != nil {
		t.Fatalf("re-lock: %v", err)
	}
	if again.Token != first.Token {
		t.Fatalf("re-lock created a new reservation: %s != %s", again.Token, first.Token)
	}
	if !again.ExpiresAt.Equal(first.ExpiresAt) {
		t.Fatalf("re-lock moved the expiry: %s != %s", again.ExpiresAt, first.ExpiresAt)
	}

	// A different set while holding is a conflict, not an extension.
	if _, err := lm.Lock(ctx, f.userA, f.seats[1:3]); err == nil {
		t.Fatal("lock of a different overlapping set should fail")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	lm := newTestManager(db, 10*time.Minute)
	ctx := context.Background()

	if _, err := lm.Lock(ctx, f.userA, f.seats[:2]); err != nil {
		t.Fatalf("lock: %v", err)
	}
	n, err := lm.Release(ctx, f.userA, f.seats[:1]) // one seat frees the whole hold
	if err != nil || n != 1 {
		t.Fatalf("release = (%d, %v), want (1, nil)", n, err)
	}
	for _, id := range f.seats[:2] {
		if got := seatStatus(t, db, id); got != model.SeatAvailable {
			t.Fatalf("seat %d = %s after release, want AVAILABLE", id, got)
		}
	}
	// Second release of the same seats is a no-op, never an error.
	n, err = lm.Release(ctx, f.userA, f.seats[:2])
	if err != nil || n != 0 {
		t.Fatalf("double release = (%d, %v), want (0, nil)", n, err)
	}
	// Releasing seats never held is equally harmless.
	n, err = lm.Release(ctx, f.userB, f.seats)
	if err != nil || n != 0 {
		t.Fatalf("release of unheld seats = (%d, %v), want (0, nil)", n, err)
	}
}

func TestLockAfterExpiryFreesSeats(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	lm := newTestManager(db, 10*time.Minute)
	ctx := context.Background()

	if _, err := lm.Lock(ctx, f.userA, f.seats[:2]); err != nil {
		t.Fatalf("lock: %v", err)
	}
	// Jump the manager's clock past the TTL: the dead hold must not block
	// the next buyer even though the sweeper has not run.
	lm.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	res, err := lm.Lock(ctx, f.userB, f.seats[:2])
	if err != nil {
		t.Fatalf("lock after expiry: %v", err)
	}
	if res.UserID != f.userB {
		t.Fatalf("reservation owner = %d, want %d", res.UserID, f.userB)
	}
}

func TestSweepExpired(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	lm := newTestManager(db, 10*time.Minute)
	ctx := context.Background()

	if _, err := lm.Lock(ctx, f.userA, f.seats[:2]); err != nil {
		t.Fatalf("lock: %v", err)
	}
	lm.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	n, err := lm.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n < 1 {
		t.Fatalf("sweep expired %d reservations, want >= 1", n)
	}
	for _, id := range f.seats[:2] {
		if got := seatStatus(t, db, id); got != model.SeatAvailable {
			t.Fatalf("seat %d = %s after sweep, want AVAILABLE", id, got)
		}
	}
	// Sweeping again finds nothing.
	if n, err := lm.SweepExpired(ctx); err != nil || n != 0 {
		t.Fatalf("second sweep = (%d, %v), want (0, nil)", n, err)
	}

	if stuck, err := lm.CheckConsistency(ctx); err != nil || len(stuck) != 0 {
		t.Fatalf("consistency check = (%v, %v), want no stuck seats", stuck, err)
	}
}

func TestConcurrentLockSingleWinner(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	lm := newTestManager(db, 10*time.Minute)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Alternate user and request order to exercise the id-ordered
			// row locking.
			user := f.userA
			set := []uint64{f.seats[0], f.seats[1]}
			if i%2 == 1 {
				user = f.userB
				set = []uint64{f.seats[1], f.seats[0]}
			}
			_, errs[i] = lm.Lock(ctx, user, set)
		}(i)
	}
	wg.Wait()

	// Re-lock idempotence means each user may "win" repeatedly, but the two
	// users can never both hold the overlapping set.
	winners := map[uint64]bool{}
	for i, err := range errs {
		if err == nil {
			if i%2 == 1 {
				winners[f.userB] = true
			} else {
				winners[f.userA] = true
			}
		}
	}
	if len(winners) != 1 {
		t.Fatalf("both users acquired overlapping seats: %v", winners)
	}
}

func TestConcurrentSweepAndLock(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	// A negative TTL makes every hold dead on arrival, so each round has
	// an expired reservation for the sweep and the lock to fight over.
	expired := newTestManager(db, -time.Minute)
	lm := newTestManager(db, 10*time.Minute)
	ctx := context.Background()

	// Sweep and lock take rows in the same order (reservations, then
	// seats); if either side inverted it, one of the two transactions
	// would be aborted by the database and surface here as an error.
	for round := 0; round < 10; round++ {
		if _, err := expired.Lock(ctx, f.userA, f.seats[:2]); err != nil {
			t.Fatalf("round %d: seed dead hold: %v", round, err)
		}

		var wg sync.WaitGroup
		var sweepErr, lockErr error
		var res *model.Reservation
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, sweepErr = lm.SweepExpired(ctx)
		}()
		go func() {
			defer wg.Done()
			res, lockErr = lm.Lock(ctx, f.userB, f.seats[:2])
		}()
		wg.Wait()

		if sweepErr != nil {
			t.Fatalf("round %d: sweep racing lock: %v", round, sweepErr)
		}
		if lockErr != nil {
			t.Fatalf("round %d: lock racing sweep: %v", round, lockErr)
		}
		if res.UserID != f.userB {
			t.Fatalf("round %d: reservation owner = %d, want %d", round, res.UserID, f.userB)
		}
		if _, err := lm.Release(ctx, f.userB, f.seats[:2]); err != nil {
			t.Fatalf("round %d: release: %v", round, err)
		}
	}
}
