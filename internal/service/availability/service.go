package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/repository"
	apperrors "github.com/jwalitptl/marketplace-api/pkg/errors"
)

const (
	DefaultWindowDays = 14
	MaxWindowDays     = 90
)

// Service computes the bookable calendar of a service listing. All reads go
// through the injected repositories; Compute itself is pure.
type Service struct {
	products      repository.ProductRepository
	bookings      repository.BookingRepository
	defaultWindow int
	maxWindow     int
}

// NewService builds the availability service. Zero window bounds fall back
// to the package defaults; configured bounds never exceed MaxWindowDays.
func NewService(products repository.ProductRepository, bookings repository.BookingRepository, defaultWindowDays, maxWindowDays int) *Service {
	if defaultWindowDays <= 0 {
		defaultWindowDays = DefaultWindowDays
	}
	if maxWindowDays <= 0 || maxWindowDays > MaxWindowDays {
		maxWindowDays = MaxWindowDays
	}
	return &Service{
		products:      products,
		bookings:      bookings,
		defaultWindow: defaultWindowDays,
		maxWindow:     maxWindowDays,
	}
}

func (s *Service) clampWindow(days int) int {
	if days <= 0 {
		days = s.defaultWindow
	}
	if days > s.maxWindow {
		days = s.maxWindow
	}
	return ClampWindow(days)
}

// ClampWindow bounds a requested window to [1, MaxWindowDays], defaulting
// unset values to DefaultWindowDays.
func ClampWindow(days int) int {
	if days <= 0 {
		return DefaultWindowDays
	}
	if days > MaxWindowDays {
		return MaxWindowDays
	}
	return days
}

// GetProductAvailability loads the product's config and live bookings and
// projects the day-by-day calendar starting at start.
func (s *Service) GetProductAvailability(ctx context.Context, productID uuid.UUID, start time.Time, windowDays int) (*model.AvailabilityResponse, error) {
	product, err := s.products.Get(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("product", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if !product.IsService() {
		return nil, apperrors.Validation(fmt.Sprintf("%s is not a bookable service", product.Title), nil)
	}

	windowDays = s.clampWindow(windowDays)
	cfg := product.ServiceConfig()

	from := startOfDay(start)
	to := from.AddDate(0, 0, windowDays)
	bookings, err := s.bookings.FindActive(ctx, productID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	days := Compute(cfg, bookings, start, windowDays)

	return &model.AvailabilityResponse{
		ProductID:       product.ID,
		Start:           from.Format("2006-01-02"),
		End:             from.AddDate(0, 0, windowDays-1).Format("2006-01-02"),
		DurationMinutes: int(cfg.Duration() / time.Minute),
		OpenTime:        cfg.OpenTime,
		CloseTime:       cfg.CloseTime,
		OpenDays:        cfg.OpenDays,
		Days:            days,
	}, nil
}

// dayAggregate counts a day's active bookings in total and per minute-truncated
// slot start. Slot exclusivity and the day cap are independent checks: a free
// slot can still be unavailable once the day total hits capacity.
type dayAggregate struct {
	total   int
	perSlot map[int64]int
}

// Compute projects the declared availability shape onto a date window,
// folding the given booking snapshot in. It is deterministic: the same
// config, snapshot, start and window always yield the same result.
func Compute(cfg model.ServiceConfig, bookings []*model.OrderItem, start time.Time, windowDays int) []model.DaySlot {
	windowDays = ClampWindow(windowDays)
	startDay := startOfDay(start)
	duration := cfg.Duration()

	byDay := aggregateByDay(bookings, startDay.Location())

	days := make([]model.DaySlot, 0, windowDays)
	for offset := 0; offset < windowDays; offset++ {
		day := startDay.AddDate(0, 0, offset)
		weekday := day.Weekday()

		daySlot := model.DaySlot{
			Date:    day.Format("2006-01-02"),
			Weekday: model.WeekdayName(weekday),
			IsOpen:  cfg.IsOpenOn(weekday),
			Slots:   []model.Slot{},
		}
		if !daySlot.IsOpen {
			days = append(days, daySlot)
			continue
		}

		open, close, err := cfg.WindowFor(day)
		if err != nil {
			// Unparsable open hours render the day closed rather than
			// failing the whole window.
			daySlot.IsOpen = false
			days = append(days, daySlot)
			continue
		}

		maxSlots := cfg.MaxSlots(open, close)
		capacity := cfg.EffectiveCapacity(maxSlots)

		agg := byDay[daySlot.Date]
		var dayTotal int
		if agg != nil {
			dayTotal = agg.total
		}

		// The full timetable is always emitted; capacity only governs
		// which slots remain bookable.
		for t := open; !t.Add(duration).After(close); t = t.Add(duration) {
			var booked int
			if agg != nil {
				booked = agg.perSlot[t.Unix()]
			}
			daySlot.Slots = append(daySlot.Slots, model.Slot{
				Start:       t,
				End:         t.Add(duration),
				Available:   booked == 0 && dayTotal < capacity,
				BookedCount: booked,
			})
		}

		daySlot.Capacity = capacity
		daySlot.Remaining = capacity - dayTotal
		if daySlot.Remaining < 0 {
			daySlot.Remaining = 0
		}
		days = append(days, daySlot)
	}
	return days
}

func aggregateByDay(bookings []*model.OrderItem, loc *time.Location) map[string]*dayAggregate {
	byDay := make(map[string]*dayAggregate)
	for _, b := range bookings {
		if b.AppointmentAt == nil || !b.AppointmentStatus.Active() {
			continue
		}
		slot := NormalizeSlot(b.AppointmentAt.In(loc))
		key := slot.Format("2006-01-02")
		agg := byDay[key]
		if agg == nil {
			agg = &dayAggregate{perSlot: make(map[int64]int)}
			byDay[key] = agg
		}
		agg.total++
		agg.perSlot[slot.Unix()]++
	}
	return byDay
}

// NormalizeSlot truncates a slot timestamp to the minute. The pair
// (product, normalized slot) is a booking's identity.
func NormalizeSlot(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
