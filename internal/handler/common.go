package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vistaro/booking-service/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		// JWT numeric claims decode to float64.
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter; zero is rejected.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// writeDomainError maps repository and service errors onto HTTP responses.
// Each conflict and validation failure carries a stable machine-readable
// error code so the storefront can branch on it without parsing messages.
func writeDomainError(c echo.Context, err error) error {
	var unavailable *repository.SeatUnavailableError
	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":                "seat_unavailable",
			"message":              "one or more seats are no longer available",
			"conflicting_seat_ids": unavailable.SeatIDs,
		})
	case errors.Is(err, repository.ErrReservationExpired):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "reservation_expired",
			"message": "the seat hold has expired",
		})
	case errors.Is(err, repository.ErrReservationNotActive):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "reservation_not_active",
			"message": "no active seat hold for this request",
		})
	case errors.Is(err, repository.ErrSeatSetMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "seat_set_mismatch",
			"message": "requested seats do not match the held seats",
		})
	case errors.Is(err, repository.ErrEmptySeatSet):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	case errors.Is(err, repository.ErrMixedSlots):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats must belong to one slot"})
	case errors.Is(err, repository.ErrSlotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	case errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	case errors.Is(err, repository.ErrFoodNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "food not found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrInconsistentState):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
