package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ProductType string

const (
	ProductTypeGoods   ProductType = "goods"
	ProductTypeService ProductType = "service"
)

// MinSlotDuration is the smallest slot length a service may declare.
const MinSlotDuration = 15 * time.Minute

// weekdayNames is ordered Sunday..Saturday to match time.Weekday.
var weekdayNames = [7]string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

// WeekdayName returns the lowercase english name for a weekday.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[int(d)]
}

// Product is a marketplace listing. Service-typed products additionally carry
// the availability columns that feed the booking engine.
type Product struct {
	Base
	SellerID    uuid.UUID   `db:"seller_id" json:"seller_id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	Price       float64     `db:"price" json:"price"`
	Type        ProductType `db:"type" json:"type"`
	Stock       int         `db:"stock" json:"stock"`
	Status      string      `db:"status" json:"status"`

	OpenDays        pq.StringArray `db:"open_days" json:"open_days,omitempty"`
	OpenTime        string         `db:"open_time" json:"open_time,omitempty"`
	CloseTime       string         `db:"close_time" json:"close_time,omitempty"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes,omitempty"`
	DailyCapacity   *int           `db:"daily_capacity" json:"daily_capacity,omitempty"`
}

func (p *Product) IsService() bool {
	return p.Type == ProductTypeService
}

// ServiceConfig materializes the normalized availability rules of a
// service-typed product.
func (p *Product) ServiceConfig() ServiceConfig {
	capacity := 0
	if p.DailyCapacity != nil && *p.DailyCapacity > 0 {
		capacity = *p.DailyCapacity
	}
	return ServiceConfig{
		OpenDays:        NormalizeOpenDays(p.OpenDays),
		OpenTime:        p.OpenTime,
		CloseTime:       p.CloseTime,
		DurationMinutes: p.DurationMinutes,
		DailyCapacity:   capacity,
	}
}

// ServiceConfig is the declared shape of a bookable service.
type ServiceConfig struct {
	OpenDays        []string `json:"open_days"`
	OpenTime        string   `json:"open_time"`
	CloseTime       string   `json:"close_time"`
	DurationMinutes int      `json:"duration_minutes"`
	// DailyCapacity of zero means "as many bookings as slots fit".
	DailyCapacity int `json:"daily_capacity,omitempty"`
}

// NormalizeOpenDays lowercases, deduplicates and orders weekday names
// Sunday through Saturday, dropping anything unrecognized.
func NormalizeOpenDays(days []string) []string {
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		seen[strings.ToLower(strings.TrimSpace(d))] = true
	}
	var out []string
	for _, name := range weekdayNames {
		if seen[name] {
			out = append(out, name)
		}
	}
	return out
}

// Duration returns the slot length, clamped to the 15 minute floor.
func (c ServiceConfig) Duration() time.Duration {
	d := time.Duration(c.DurationMinutes) * time.Minute
	if d < MinSlotDuration {
		return MinSlotDuration
	}
	return d
}

// IsOpenOn reports whether the service accepts bookings on the given weekday.
func (c ServiceConfig) IsOpenOn(day time.Weekday) bool {
	name := WeekdayName(day)
	for _, d := range c.OpenDays {
		if d == name {
			return true
		}
	}
	return false
}

// WindowFor combines a calendar day with the configured open and close times.
// A close at or before open is pushed out by one slot duration, yielding a
// degenerate single-slot day rather than an empty one.
func (c ServiceConfig) WindowFor(day time.Time) (open, close time.Time, err error) {
	open, err = combineDayTime(day, c.OpenTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid open time %q: %w", c.OpenTime, err)
	}
	close, err = combineDayTime(day, c.CloseTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid close time %q: %w", c.CloseTime, err)
	}
	if !close.After(open) {
		close = open.Add(c.Duration())
	}
	return open, close, nil
}

// MaxSlots is the number of whole slots that fit in the open window.
func (c ServiceConfig) MaxSlots(open, close time.Time) int {
	return int(close.Sub(open) / c.Duration())
}

// EffectiveCapacity bounds the daily capacity by the slot count; an unset
// capacity defaults to the slot count. The result is never below one.
func (c ServiceConfig) EffectiveCapacity(maxSlots int) int {
	capacity := maxSlots
	if c.DailyCapacity > 0 && c.DailyCapacity < maxSlots {
		capacity = c.DailyCapacity
	}
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

func combineDayTime(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

// Slot is one bookable window within a day.
type Slot struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Available   bool      `json:"available"`
	BookedCount int       `json:"booked_count"`
}

// DaySlot is the computed, never persisted, per-day availability projection.
type DaySlot struct {
	Date      string `json:"date"`
	Weekday   string `json:"weekday"`
	IsOpen    bool   `json:"is_open"`
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
	Slots     []Slot `json:"slots"`
}

// AvailabilityResponse is the wire shape of an availability request.
type AvailabilityResponse struct {
	ProductID       uuid.UUID `json:"product_id"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	OpenTime        string    `json:"open_time"`
	CloseTime       string    `json:"close_time"`
	OpenDays        []string  `json:"open_days"`
	Days            []DaySlot `json:"days"`
}

// CreateProductRequest covers both goods and service listings.
type CreateProductRequest struct {
	Title           string   `json:"title" binding:"required,max=200"`
	Description     string   `json:"description" binding:"max=5000"`
	Price           float64  `json:"price" binding:"required,gte=0"`
	Type            string   `json:"type" binding:"required,oneof=goods service"`
	Stock           int      `json:"stock" binding:"gte=0"`
	OpenDays        []string `json:"open_days"`
	OpenTime        string   `json:"open_time" binding:"omitempty,hhmm"`
	CloseTime       string   `json:"close_time" binding:"omitempty,hhmm"`
	DurationMinutes int      `json:"duration_minutes"`
	DailyCapacity   *int     `json:"daily_capacity"`
}

// UpdateProductRequest applies partial updates to a listing.
type UpdateProductRequest struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price"`
	Stock           *int     `json:"stock"`
	Status          *string  `json:"status"`
	OpenDays        []string `json:"open_days"`
	OpenTime        *string  `json:"open_time"`
	CloseTime       *string  `json:"close_time"`
	DurationMinutes *int     `json:"duration_minutes"`
	DailyCapacity   *int     `json:"daily_capacity"`
}
