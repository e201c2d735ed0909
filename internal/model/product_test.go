package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOpenDays(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"orders sunday first", []string{"friday", "monday", "sunday"}, []string{"sunday", "monday", "friday"}},
		{"lowercases and trims", []string{" Monday ", "TUESDAY"}, []string{"monday", "tuesday"}},
		{"drops unknown names", []string{"monday", "caturday"}, []string{"monday"}},
		{"deduplicates", []string{"monday", "monday"}, []string{"monday"}},
		{"empty input", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeOpenDays(tt.in))
		})
	}
}

func TestDurationClampsToFloor(t *testing.T) {
	assert.Equal(t, MinSlotDuration, ServiceConfig{DurationMinutes: 0}.Duration())
	assert.Equal(t, MinSlotDuration, ServiceConfig{DurationMinutes: 5}.Duration())
	assert.Equal(t, 90*time.Minute, ServiceConfig{DurationMinutes: 90}.Duration())
}

func TestWindowForDegenerateClose(t *testing.T) {
	cfg := ServiceConfig{OpenTime: "09:00", CloseTime: "08:00", DurationMinutes: 60}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	open, close, err := cfg.WindowFor(day)
	require.NoError(t, err)
	assert.Equal(t, 9, open.Hour())
	// Close at or before open is pushed out by one slot.
	assert.Equal(t, open.Add(time.Hour), close)
}

func TestWindowForInvalidHours(t *testing.T) {
	cfg := ServiceConfig{OpenTime: "9am", CloseTime: "17:00", DurationMinutes: 60}
	_, _, err := cfg.WindowFor(time.Now())
	require.Error(t, err)
}

func TestEffectiveCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		maxSlots int
		want     int
	}{
		{"unset defaults to slot count", 0, 8, 8},
		{"capacity below slots wins", 3, 8, 3},
		{"capacity above slots ignored", 20, 8, 8},
		{"never below one", 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ServiceConfig{DailyCapacity: tt.capacity}
			assert.Equal(t, tt.want, cfg.EffectiveCapacity(tt.maxSlots))
		})
	}
}

func TestServiceConfigFromProduct(t *testing.T) {
	capacity := 5
	p := &Product{
		Type:            ProductTypeService,
		OpenDays:        []string{"Friday", "monday"},
		OpenTime:        "10:00",
		CloseTime:       "16:00",
		DurationMinutes: 30,
		DailyCapacity:   &capacity,
	}

	cfg := p.ServiceConfig()
	assert.Equal(t, []string{"monday", "friday"}, cfg.OpenDays)
	assert.Equal(t, 5, cfg.DailyCapacity)
	assert.True(t, cfg.IsOpenOn(time.Monday))
	assert.False(t, cfg.IsOpenOn(time.Sunday))
}
