package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vistaro/booking-service/internal/model"
	"github.com/vistaro/booking-service/internal/repository"
)

// SlotHandler serves the showtime slot catalog.  These are public reads
// and sit behind the response cache.
type SlotHandler struct {
	Slots *repository.SlotRepo
}

func NewSlotHandler(slots *repository.SlotRepo) *SlotHandler {
	if slots == nil {
		panic("nil repository passed to NewSlotHandler")
	}
	return &SlotHandler{Slots: slots}
}

type slotView struct {
	ID             uint64    `json:"id"`
	EventID        uint64    `json:"event_id"`
	VenueName      string    `json:"venue_name"`
	City           string    `json:"city"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	Format         string    `json:"format"`
	Language       string    `json:"language"`
	BasePriceCents uint32    `json:"base_price_cents"`
}

func toSlotView(s *model.Slot) slotView {
	return slotView{
		ID:             s.ID,
		EventID:        s.EventID,
		VenueName:      s.VenueName,
		City:           s.City,
		StartsAt:       s.StartsAt,
		EndsAt:         s.EndsAt,
		Format:         s.Format,
		Language:       s.Language,
		BasePriceCents: s.BasePriceCents,
	}
}

// GetByID handles GET /api/v1/eventslot/:id.
func (h *SlotHandler) GetByID(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Slots.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toSlotView(s))
}

// List handles GET /api/v1/eventslot.  Optional filters: ?eventId= and
// ?city= narrow the listing; they are mutually exclusive with eventId
// taking precedence.
func (h *SlotHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		list []model.Slot
		err  error
	)
	if raw := c.QueryParam("eventId"); raw != "" {
		eventID, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil || eventID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid eventId"})
		}
		list, err = h.Slots.ListByEvent(ctx, eventID)
	} else if city := strings.TrimSpace(c.QueryParam("city")); city != "" {
		list, err = h.Slots.ListByCity(ctx, city)
	} else {
		list, err = h.Slots.ListAll(ctx)
	}
	if err != nil {
		return writeDomainError(c, err)
	}
	views := make([]slotView, 0, len(list))
	for i := range list {
		views = append(views, toSlotView(&list[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": views})
}
