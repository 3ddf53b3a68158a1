package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vistaro/booking-service/internal/model"
	"github.com/vistaro/booking-service/internal/service"
)

// BookingConfirmer is the slice of the finalizer the booking handler needs.
type BookingConfirmer interface {
	Confirm(ctx context.Context, userID uint64, in service.ConfirmInput) (*model.Booking, error)
}

// BookingReader reads persisted bookings.
type BookingReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListBySlot(ctx context.Context, slotID uint64) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
}

// BookingHandler serves booking creation and lookups.  Creation consumes
// the caller's active seat hold; lookups are scoped to the caller except
// for the admin listings.
type BookingHandler struct {
	Finalize BookingConfirmer
	Books    BookingReader
}

func NewBookingHandler(finalize BookingConfirmer, books BookingReader) *BookingHandler {
	if finalize == nil || books == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Finalize: finalize, Books: books}
}

type bookingFoodReq struct {
	FoodID   uint64 `json:"food_id" validate:"required,gt=0"`
	Quantity uint32 `json:"quantity" validate:"required,gt=0"`
}

type bookingReq struct {
	SlotID       uint64           `json:"slot_id" validate:"required,gt=0"`
	SeatIDs      []uint64         `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
	Foods        []bookingFoodReq `json:"food_items" validate:"dive"`
	OfferCode    *string          `json:"offer_code"`
	GiftCardCode *string          `json:"gift_card_code"`
	PaymentMode  string           `json:"payment_mode" validate:"required"`
}

type bookingSeatView struct {
	SeatID     uint64 `json:"seat_id"`
	RowLabel   string `json:"row_label"`
	SeatNumber uint32 `json:"seat_number"`
	PriceCents uint32 `json:"price_cents"`
}

type bookingFoodView struct {
	FoodID     uint64 `json:"food_id"`
	Name       string `json:"name"`
	Quantity   uint32 `json:"quantity"`
	PriceCents uint32 `json:"price_cents"`
}

type bookingView struct {
	ID               uint64            `json:"id"`
	Reference        string            `json:"reference"`
	UserID           uint64            `json:"user_id"`
	SlotID           uint64            `json:"slot_id"`
	Seats            []bookingSeatView `json:"seats"`
	Foods            []bookingFoodView `json:"foods"`
	OfferCode        *string           `json:"offer_code,omitempty"`
	GiftCardCode     *string           `json:"gift_card_code,omitempty"`
	PaymentMode      string            `json:"payment_mode"`
	TotalAmountCents uint64            `json:"total_amount_cents"`
	CreatedAt        time.Time         `json:"created_at"`
}

func toBookingView(b *model.Booking) bookingView {
	seats := make([]bookingSeatView, 0, len(b.Seats))
	for _, s := range b.Seats {
		seats = append(seats, bookingSeatView{
			SeatID:     s.SeatID,
			RowLabel:   s.RowLabel,
			SeatNumber: s.SeatNumber,
			PriceCents: s.PriceCents,
		})
	}
	foods := make([]bookingFoodView, 0, len(b.Foods))
	for _, f := range b.Foods {
		foods = append(foods, bookingFoodView{
			FoodID:     f.FoodID,
			Name:       f.Name,
			Quantity:   f.Quantity,
			PriceCents: f.PriceCents,
		})
	}
	return bookingView{
		ID:               b.ID,
		Reference:        b.Reference,
		UserID:           b.UserID,
		SlotID:           b.SlotID,
		Seats:            seats,
		Foods:            foods,
		OfferCode:        b.OfferCode,
		GiftCardCode:     b.GiftCardCode,
		PaymentMode:      b.PaymentMode,
		TotalAmountCents: b.TotalAmountCents,
		CreatedAt:        b.CreatedAt,
	}
}

// Create handles POST /api/v1/booking/add.  The caller must hold an active
// reservation for exactly the requested seats; the confirm runs in one
// transaction so an expired hold can never produce a booking.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	in := service.ConfirmInput{
		SlotID:       req.SlotID,
		SeatIDs:      req.SeatIDs,
		OfferCode:    req.OfferCode,
		GiftCardCode: req.GiftCardCode,
		PaymentMode:  req.PaymentMode,
	}
	for _, f := range req.Foods {
		in.Foods = append(in.Foods, service.FoodLine{FoodID: f.FoodID, Quantity: f.Quantity})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	booking, err := h.Finalize.Confirm(ctx, userID, in)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingView(booking))
}

// GetByID handles GET /api/v1/booking/:id.  Customers may only read their
// own bookings; admins may read any.
func (h *BookingHandler) GetByID(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Books.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if role, _ := c.Get("role").(string); role != "ADMIN" && b.UserID != userID {
		// Hide other users' bookings rather than admitting they exist.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	return c.JSON(http.StatusOK, toBookingView(b))
}

// ListMine handles GET /api/v1/booking.  Returns the caller's bookings,
// newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Books.ListByUser(ctx, userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": viewList(list)})
}

// ListBySlot handles GET /api/v1/booking/slot/:slotId (admin only).
func (h *BookingHandler) ListBySlot(c echo.Context) error {
	slotID, err := pathID(c, "slotId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Books.ListBySlot(ctx, slotID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": viewList(list)})
}

// ListAll handles GET /api/v1/booking/all (admin only).
func (h *BookingHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Books.ListAll(ctx)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": viewList(list)})
}

func viewList(list []model.Booking) []bookingView {
	views := make([]bookingView, 0, len(list))
	for i := range list {
		views = append(views, toBookingView(&list[i]))
	}
	return views
}
