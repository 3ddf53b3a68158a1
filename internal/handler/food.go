package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vistaro/booking-service/internal/repository"
)

// FoodHandler serves the concession catalog.  Public reads, cached.
type FoodHandler struct {
	Foods *repository.FoodRepo
}

func NewFoodHandler(foods *repository.FoodRepo) *FoodHandler {
	if foods == nil {
		panic("nil repository passed to NewFoodHandler")
	}
	return &FoodHandler{Foods: foods}
}

type foodView struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	PriceCents uint32 `json:"price_cents"`
}

// GetFoodsForSlot handles GET /api/v1/food/slot/:slotId.  Only foods
// assigned to the slot are offered with it.
func (h *FoodHandler) GetFoodsForSlot(c echo.Context) error {
	slotID, err := pathID(c, "slotId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Foods.ListBySlot(ctx, slotID)
	if err != nil {
		return writeDomainError(c, err)
	}
	views := make([]foodView, 0, len(list))
	for _, f := range list {
		views = append(views, foodView{ID: f.ID, Name: f.Name, PriceCents: f.PriceCents})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"slot_id": slotID,
		"foods":   views,
	})
}

// GetByID handles GET /api/v1/food/:id.
func (h *FoodHandler) GetByID(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid food id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	f, err := h.Foods.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, foodView{ID: f.ID, Name: f.Name, PriceCents: f.PriceCents})
}

// ListAll handles GET /api/v1/food.
func (h *FoodHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Foods.ListAll(ctx)
	if err != nil {
		return writeDomainError(c, err)
	}
	views := make([]foodView, 0, len(list))
	for _, f := range list {
		views = append(views, foodView{ID: f.ID, Name: f.Name, PriceCents: f.PriceCents})
	}
	return c.JSON(http.StatusOK, echo.Map{"foods": views})
}
