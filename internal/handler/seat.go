package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vistaro/booking-service/internal/model"
)

// SeatLocker is the slice of the lock manager the seat handler needs.
// Lock acquires an all-or-nothing hold over a seat set; Release frees
// the caller's holds covering the given seats and reports how many
// reservations it closed.
type SeatLocker interface {
	Lock(ctx context.Context, userID uint64, seatIDs []uint64) (*model.Reservation, error)
	Release(ctx context.Context, userID uint64, seatIDs []uint64) (int, error)
}

// SeatLister reads the live seat map for one slot.
type SeatLister interface {
	ListBySlot(ctx context.Context, slotID uint64) ([]model.Seat, error)
}

// SeatHandler serves the seat map and the lock/unlock endpoints used by the
// storefront seat picker.  Lock and unlock require an authenticated user;
// the seat map is public so guests can browse availability.
type SeatHandler struct {
	Seats SeatLister
	Locks SeatLocker
}

func NewSeatHandler(seats SeatLister, locks SeatLocker) *SeatHandler {
	if seats == nil || locks == nil {
		panic("nil dependency passed to NewSeatHandler")
	}
	return &SeatHandler{Seats: seats, Locks: locks}
}

type lockReq struct {
	SeatIDs []uint64 `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
}

type seatView struct {
	ID         uint64 `json:"id"`
	RowLabel   string `json:"row_label"`
	SeatNumber uint32 `json:"seat_number"`
	PriceCents uint32 `json:"price_cents"`
	Status     string `json:"status"`
}

// GetSeatsForSlot handles GET /api/v1/seat/slot/:slotId.  It returns every
// seat of the slot with its current status.  LOCKED seats past their
// reservation's expiry still show LOCKED here; the sweeper or the next
// lock attempt will flip them back to AVAILABLE shortly.
func (h *SeatHandler) GetSeatsForSlot(c echo.Context) error {
	slotID, err := pathID(c, "slotId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seats, err := h.Seats.ListBySlot(ctx, slotID)
	if err != nil {
		return writeDomainError(c, err)
	}
	views := make([]seatView, 0, len(seats))
	for _, s := range seats {
		views = append(views, seatView{
			ID:         s.ID,
			RowLabel:   s.RowLabel,
			SeatNumber: s.SeatNumber,
			PriceCents: s.PriceCents,
			Status:     s.Status,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"slot_id": slotID,
		"seats":   views,
	})
}

// LockSeats handles POST /api/v1/seat/lock.  The whole seat set is locked
// atomically or not at all; on conflict the response lists the seat ids
// that caused the rejection.  Repeating the exact same request while the
// hold is still active returns the existing reservation unchanged.
func (h *SeatHandler) LockSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req lockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Locks.Lock(ctx, userID, req.SeatIDs)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.Token,
		"slot_id":        res.SlotID,
		"seat_ids":       res.SeatIDs,
		"expires_at":     res.ExpiresAt.UTC(),
	})
}

// UnlockSeats handles POST /api/v1/seat/unlock.  Release is idempotent:
// seats the caller no longer holds are skipped silently, and the response
// is 200 with ok=true regardless of how many holds were actually closed.
func (h *SeatHandler) UnlockSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req lockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	released, err := h.Locks.Release(ctx, userID, req.SeatIDs)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":       true,
		"released": released,
	})
}
