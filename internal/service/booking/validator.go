package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/repository"
	"github.com/jwalitptl/marketplace-api/internal/service/availability"
	apperrors "github.com/jwalitptl/marketplace-api/pkg/errors"
)

// Request is one service cart line awaiting validation.
type Request struct {
	Product  *model.Product
	Quantity int
	SlotText string
}

// Booking is a validated, normalized slot claim ready for persistence.
type Booking struct {
	Product *model.Product
	Slot    time.Time
}

// Validator re-verifies requested slots against the service's declared shape
// and the latest persisted bookings. It runs synchronously inside checkout,
// before anything is written. The re-check narrows the race window between a
// buyer viewing availability and committing; the partial unique index at the
// storage layer closes it.
type Validator struct {
	bookings repository.BookingRepository
}

func NewValidator(bookings repository.BookingRepository) *Validator {
	return &Validator{bookings: bookings}
}

type slotKey struct {
	productID uuid.UUID
	slotUnix  int64
}

type dayKey struct {
	productID uuid.UUID
	day       string
}

// ValidateBatch validates every requested booking; the first violation aborts
// the whole batch. Accepted lines count against the day cap of the lines that
// follow them, so a single cart cannot overshoot a service's daily capacity
// with distinct slots. On success each request is returned with its
// normalized slot.
func (v *Validator) ValidateBatch(ctx context.Context, requests []Request) ([]Booking, error) {
	seen := make(map[slotKey]bool, len(requests))
	pending := make(map[dayKey]int)
	out := make([]Booking, 0, len(requests))

	for _, req := range requests {
		booking, err := v.validate(req)
		if err != nil {
			return nil, err
		}

		key := slotKey{productID: req.Product.ID, slotUnix: booking.Slot.Unix()}
		if seen[key] {
			return nil, apperrors.DuplicateSlot(req.Product.Title)
		}
		seen[key] = true

		dk := dayKey{productID: req.Product.ID, day: booking.Slot.Format("2006-01-02")}
		if err := v.checkCapacity(ctx, req.Product, req.Product.ServiceConfig(), booking.Slot, pending[dk]); err != nil {
			return nil, err
		}
		pending[dk]++

		out = append(out, booking)
	}
	return out, nil
}

func (v *Validator) validate(req Request) (Booking, error) {
	title := req.Product.Title

	// Services are one appointment per cart line.
	if req.Quantity != 1 {
		return Booking{}, apperrors.Validation(fmt.Sprintf("%s is a service and must be booked one appointment at a time", title), nil)
	}

	if req.SlotText == "" {
		return Booking{}, apperrors.Validation(fmt.Sprintf("an appointment time is required for %s", title), nil)
	}
	parsed, err := time.Parse(time.RFC3339, req.SlotText)
	if err != nil {
		return Booking{}, apperrors.Validation(fmt.Sprintf("invalid appointment time %q for %s", req.SlotText, title), err)
	}
	slot := availability.NormalizeSlot(parsed)

	cfg := req.Product.ServiceConfig()
	if !cfg.IsOpenOn(slot.Weekday()) {
		return Booking{}, apperrors.DayClosed(title, model.WeekdayName(slot.Weekday()))
	}

	open, close, err := cfg.WindowFor(slot)
	if err != nil {
		return Booking{}, apperrors.Validation(fmt.Sprintf("%s has invalid opening hours configured", title), err)
	}
	duration := cfg.Duration()
	if slot.Before(open) || !slot.Before(close) || slot.Add(duration).After(close) {
		return Booking{}, apperrors.OutOfWindow(title, cfg.OpenTime, cfg.CloseTime)
	}

	if slot.Sub(open)%duration != 0 {
		return Booking{}, apperrors.MisalignedSlot(title, int(duration/time.Minute))
	}

	return Booking{Product: req.Product, Slot: slot}, nil
}

// checkCapacity re-aggregates the currently persisted bookings for the slot's
// calendar day and adds the batch's own accepted bookings for that day. Both
// checks run against the same snapshot: slot exclusivity first, then the day
// cap.
func (v *Validator) checkCapacity(ctx context.Context, product *model.Product, cfg model.ServiceConfig, slot time.Time, pendingSameDay int) error {
	dayStart := time.Date(slot.Year(), slot.Month(), slot.Day(), 0, 0, 0, 0, slot.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	existing, err := v.bookings.FindActive(ctx, product.ID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to load bookings for %s: %w", product.Title, err)
	}

	open, close, err := cfg.WindowFor(slot)
	if err != nil {
		return fmt.Errorf("invalid opening hours for %s: %w", product.Title, err)
	}
	capacity := cfg.EffectiveCapacity(cfg.MaxSlots(open, close))

	total := pendingSameDay
	for _, b := range existing {
		if b.AppointmentAt == nil || !b.AppointmentStatus.Active() {
			continue
		}
		total++
		if availability.NormalizeSlot(*b.AppointmentAt).Equal(slot) {
			return apperrors.SlotTaken(product.Title)
		}
	}
	if total >= capacity {
		return apperrors.DailyCapacity(product.Title)
	}
	return nil
}
