package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vistaro/booking-service/internal/model"
	"github.com/vistaro/booking-service/internal/repository"
	"github.com/vistaro/booking-service/internal/validate"
)

type fakeLocker struct {
	lockFn    func(ctx context.Context, userID uint64, seatIDs []uint64) (*model.Reservation, error)
	releaseFn func(ctx context.Context, userID uint64, seatIDs []uint64) (int, error)
}

func (f *fakeLocker) Lock(ctx context.Context, userID uint64, seatIDs []uint64) (*model.Reservation, error) {
	return f.lockFn(ctx, userID, seatIDs)
}

func (f *fakeLocker) Release(ctx context.Context, userID uint64, seatIDs []uint64) (int, error) {
	return f.releaseFn(ctx, userID, seatIDs)
}

type fakeSeatLister struct {
	seats []model.Seat
	err   error
}

func (f *fakeSeatLister) ListBySlot(ctx context.Context, slotID uint64) ([]model.Seat, error) {
	return f.seats, f.err
}

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = validate.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestGetSeatsForSlot(t *testing.T) {
	h := NewSeatHandler(&fakeSeatLister{seats: []model.Seat{
		{ID: 1, SlotID: 5, RowLabel: "A", SeatNumber: 1, PriceCents: 25000, Status: model.SeatAvailable},
		{ID: 2, SlotID: 5, RowLabel: "A", SeatNumber: 2, PriceCents: 25000, Status: model.SeatLocked},
	}}, &fakeLocker{})

	c, rec := newTestContext(t, http.MethodGet, "/api/v1/seat/slot/5", "")
	c.SetPath("/api/v1/seat/slot/:slotId")
	c.SetParamNames("slotId")
	c.SetParamValues("5")

	if err := h.GetSeatsForSlot(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	seats, ok := body["seats"].([]interface{})
	if !ok || len(seats) != 2 {
		t.Fatalf("seats = %v, want 2 entries", body["seats"])
	}
	second := seats[1].(map[string]interface{})
	if second["status"] != "LOCKED" {
		t.Fatalf("second seat status = %v, want LOCKED", second["status"])
	}
}

func TestGetSeatsForSlotUnknownSlot(t *testing.T) {
	h := NewSeatHandler(&fakeSeatLister{err: repository.ErrSlotNotFound}, &fakeLocker{})
	c, rec := newTestContext(t, http.MethodGet, "/api/v1/seat/slot/999", "")
	c.SetPath("/api/v1/seat/slot/:slotId")
	c.SetParamNames("slotId")
	c.SetParamValues("999")

	if err := h.GetSeatsForSlot(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetSeatsForSlotBadID(t *testing.T) {
	h := NewSeatHandler(&fakeSeatLister{}, &fakeLocker{})
	c, rec := newTestContext(t, http.MethodGet, "/api/v1/seat/slot/zero", "")
	c.SetPath("/api/v1/seat/slot/:slotId")
	c.SetParamNames("slotId")
	c.SetParamValues("zero")

	if err := h.GetSeatsForSlot(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLockSeatsSuccess(t *testing.T) {
	expires := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)
	locker := &fakeLocker{
		lockFn: func(ctx context.Context, userID uint64, seatIDs []uint64) (*model.Reservation, error) {
			if userID != 7 {
				t.Fatalf("userID = %d, want 7", userID)
			}
			return &model.Reservation{
				Token:     "res-token-1",
				UserID:    userID,
				SlotID:    5,
				SeatIDs:   seatIDs,
				Status:    model.ReservationActive,
				ExpiresAt: expires,
			}, nil
		},
	}
	h := NewSeatHandler(&fakeSeatLister{}, locker)

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/seat/lock", `{"seat_ids":[1,2]}`)
	c.Set("user_id", uint64(7))

	if err := h.LockSeats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["reservation_id"] != "res-token-1" {
		t.Fatalf("reservation_id = %v, want res-token-1", body["reservation_id"])
	}
	if body["expires_at"] == nil {
		t.Fatal("expires_at missing from response")
	}
}

func TestLockSeatsConflict(t *testing.T) {
	locker := &fakeLocker{
		lockFn: func(ctx context.Context, userID uint64, seatIDs []uint64) (*model.Reservation, error) {
			return nil, &repository.SeatUnavailableError{SeatIDs: []uint64{2}}
		},
	}
	h := NewSeatHandler(&fakeSeatLister{}, locker)

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/seat/lock", `{"seat_ids":[1,2]}`)
	c.Set("user_id", uint64(7))

	if err := h.LockSeats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "seat_unavailable" {
		t.Fatalf("error code = %v, want seat_unavailable", body["error"])
	}
	ids, ok := body["conflicting_seat_ids"].([]interface{})
	if !ok || len(ids) != 1 {
		t.Fatalf("conflicting_seat_ids = %v, want one id", body["conflicting_seat_ids"])
	}
}

func TestLockSeatsUnauthenticated(t *testing.T) {
	h := NewSeatHandler(&fakeSeatLister{}, &fakeLocker{})
	c, rec := newTestContext(t, http.MethodPost, "/api/v1/seat/lock", `{"seat_ids":[1]}`)

	if err := h.LockSeats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLockSeatsEmptyBody(t *testing.T) {
	h := NewSeatHandler(&fakeSeatLister{}, &fakeLocker{})
	c, _ := newTestContext(t, http.MethodPost, "/api/v1/seat/lock", `{"seat_ids":[]}`)
	c.Set("user_id", uint64(7))

	err := h.LockSeats(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("got %v, want 400 HTTPError from validation", err)
	}
}

func TestUnlockSeatsAlwaysOK(t *testing.T) {
	locker := &fakeLocker{
		releaseFn: func(ctx context.Context, userID uint64, seatIDs []uint64) (int, error) {
			return 0, nil // nothing held: still fine
		},
	}
	h := NewSeatHandler(&fakeSeatLister{}, locker)

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/seat/unlock", `{"seat_ids":[1,2]}`)
	c.Set("user_id", uint64(7))

	if err := h.UnlockSeats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["ok"] != true {
		t.Fatalf("ok = %v, want true", body["ok"])
	}
	if body["released"] != float64(0) {
		t.Fatalf("released = %v, want 0", body["released"])
	}
}
