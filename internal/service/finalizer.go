package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/vistaro/booking-service/internal/model"
	"github.com/vistaro/booking-service/internal/queue"
	"github.com/vistaro/booking-service/internal/repository"
)

// FoodLine is one requested concession item with its quantity.
type FoodLine struct {
	FoodID   uint64
	Quantity uint32
}

// ConfirmInput carries everything a booking commit needs besides the user
// identity.  Offer/gift-card codes and the payment mode are opaque
// metadata: this service records them verbatim and validates nothing about
// actual payment.
type ConfirmInput struct {
	SlotID       uint64
	SeatIDs      []uint64
	Foods        []FoodLine
	OfferCode    *string
	GiftCardCode *string
	PaymentMode  string
}

// Finalizer converts a still-valid reservation into a persisted booking.
// The commit is one atomic unit: the expiry recheck, the booking insert,
// the LOCKED -> BOOKED seat flip and the ACTIVE -> CONSUMED reservation
// flip all happen in the same transaction, under the same row locks the
// lock manager and the sweeper use.  A reservation expiring between an
// earlier check and the write can therefore never produce a booking.
type Finalizer struct {
	db      *sql.DB
	seats   *repository.SeatRepo
	ledger  *repository.ReservationRepo
	books   *repository.BookingRepo
	foods   *repository.FoodRepo
	now     func() time.Time
	publish func(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// NewFinalizer constructs a Finalizer.  publish is invoked after a
// successful commit with the booking.confirmed event; pass nil to disable
// event publication.
func NewFinalizer(db *sql.DB, seats *repository.SeatRepo, ledger *repository.ReservationRepo,
	books *repository.BookingRepo, foods *repository.FoodRepo,
	publish func(ctx context.Context, ev queue.BookingConfirmedEvent) error) *Finalizer {
	return &Finalizer{db: db, seats: seats, ledger: ledger, books: books, foods: foods, now: time.Now, publish: publish}
}

// Confirm commits a booking from the caller's ACTIVE reservation on the
// slot.
//
// Failure modes: ErrReservationNotActive when no live hold exists (or it
// was consumed/released concurrently), ErrReservationExpired when the TTL
// elapsed (in that case the expiry is applied, seats back to AVAILABLE,
// and no booking is created), and ErrSeatSetMismatch when the request does
// not name the reservation's exact seat set, since partial consumption of
// a hold is unsupported.
func (f *Finalizer) Confirm(ctx context.Context, userID uint64, in ConfirmInput) (*model.Booking, error) {
	ids := DedupeSeatIDs(in.SeatIDs)
	if len(ids) == 0 {
		return nil, repository.ErrEmptySeatSet
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := f.ledger.ActiveByUserAndSlotTx(ctx, tx, userID, in.SlotID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, repository.ErrReservationNotActive
	}

	now := f.now().UTC()
	if res.Expired(now) {
		// Apply the expiry the sweeper would: the hold is dead, its seats
		// go back on sale, and the commit is refused.
		if ok, err := f.ledger.MarkStatusTx(ctx, tx, res.ID, model.ReservationActive, model.ReservationExpired); err != nil {
			return nil, err
		} else if ok {
			if err := f.seats.BulkUpdateStatusTx(ctx, tx, res.SeatIDs, model.SeatAvailable); err != nil {
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, err
			}
			committed = true
		}
		return nil, repository.ErrReservationExpired
	}

	if !SameSeatSet(res.SeatIDs, ids) {
		return nil, repository.ErrSeatSetMismatch
	}

	seats, err := f.seats.GetForUpdateTx(ctx, tx, res.SeatIDs)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(res.SeatIDs) {
		return nil, repository.ErrSeatNotFound
	}
	for i := range seats {
		if seats[i].Status != model.SeatLocked {
			// An ACTIVE reservation whose seat is not LOCKED means the seat
			// store and the ledger disagree.  Never guess a state here.
			log.Printf("ERROR: invariant violation: seat %d is %s under active reservation %d",
				seats[i].ID, seats[i].Status, res.ID)
			return nil, repository.ErrInconsistentState
		}
	}

	foodLines, err := f.priceFoodsTx(ctx, tx, in.SlotID, in.Foods)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		UserID:           userID,
		SlotID:           in.SlotID,
		OfferCode:        in.OfferCode,
		GiftCardCode:     in.GiftCardCode,
		PaymentMode:      in.PaymentMode,
		Foods:            foodLines,
		TotalAmountCents: 0,
		CreatedAt:        now,
	}
	for i := range seats {
		booking.Seats = append(booking.Seats, model.BookingSeat{
			SeatID:     seats[i].ID,
			RowLabel:   seats[i].RowLabel,
			SeatNumber: seats[i].SeatNumber,
			PriceCents: seats[i].PriceCents,
		})
	}
	booking.TotalAmountCents = BookingTotalCents(booking.Seats, booking.Foods)

	if err := f.books.CreateTx(ctx, tx, booking); err != nil {
		return nil, err
	}
	if err := f.seats.BulkUpdateStatusTx(ctx, tx, res.SeatIDs, model.SeatBooked); err != nil {
		return nil, err
	}
	ok, err := f.ledger.MarkStatusTx(ctx, tx, res.ID, model.ReservationActive, model.ReservationConsumed)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the row between our FOR UPDATE and here; cannot happen under
		// the shared locking discipline, treat as a dead hold.
		return nil, repository.ErrReservationNotActive
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if f.publish != nil {
		ev := queue.BookingConfirmedEvent{
			BookingID:        booking.ID,
			Reference:        booking.Reference,
			UserID:           booking.UserID,
			SlotID:           booking.SlotID,
			SeatLabels:       seatLabels(booking.Seats),
			PaymentMode:      booking.PaymentMode,
			TotalAmountCents: booking.TotalAmountCents,
			ConfirmedAt:      now.Format(time.RFC3339),
		}
		// Best effort: a broker outage must not fail a committed booking.
		if err := f.publish(ctx, ev); err != nil {
			log.Printf("booking %d committed but event publish failed: %v", booking.ID, err)
		}
	}
	return booking, nil
}

// priceFoodsTx validates the requested food lines against the slot's
// assignment and prices them at current catalog prices.
func (f *Finalizer) priceFoodsTx(ctx context.Context, tx *sql.Tx, slotID uint64, lines []FoodLine) ([]model.BookingFood, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	catalog, err := f.foods.BySlotTx(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	var out []model.BookingFood
	for _, l := range lines {
		if l.Quantity == 0 {
			continue
		}
		item, ok := catalog[l.FoodID]
		if !ok {
			return nil, repository.ErrFoodNotFound
		}
		out = append(out, model.BookingFood{
			FoodID:     item.ID,
			Name:       item.Name,
			Quantity:   l.Quantity,
			PriceCents: item.PriceCents,
		})
	}
	return out, nil
}

// BookingTotalCents sums seat prices and food lines (unit price times
// quantity) in cents.  The sum is carried in uint64 so an oversized food
// quantity cannot wrap the 32-bit line math and commit a wrong total.
func BookingTotalCents(seats []model.BookingSeat, foods []model.BookingFood) uint64 {
	var total uint64
	for i := range seats {
		total += uint64(seats[i].PriceCents)
	}
	for i := range foods {
		total += uint64(foods[i].PriceCents) * uint64(foods[i].Quantity)
	}
	return total
}

func seatLabels(seats []model.BookingSeat) []string {
	out := make([]string, 0, len(seats))
	for i := range seats {
		out = append(out, seatLabel(seats[i].RowLabel, seats[i].SeatNumber))
	}
	return out
}

func seatLabel(row string, number uint32) string {
	return fmt.Sprintf("%s%d", row, number)
}
