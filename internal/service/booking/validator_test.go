package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/marketplace-api/internal/model"
	apperrors "github.com/jwalitptl/marketplace-api/pkg/errors"
)

type fakeBookingRepo struct {
	items []*model.OrderItem
}

func (f *fakeBookingRepo) FindActive(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]*model.OrderItem, error) {
	var out []*model.OrderItem
	for _, it := range f.items {
		if it.ProductID != productID || it.AppointmentAt == nil {
			continue
		}
		if !it.AppointmentStatus.Active() {
			continue
		}
		at := *it.AppointmentAt
		if !at.Before(from) && at.Before(to) {
			out = append(out, it)
		}
	}
	return out, nil
}

func serviceProduct(capacity int) *model.Product {
	p := &model.Product{
		SellerID:        uuid.New(),
		Title:           "Haircut",
		Type:            model.ProductTypeService,
		OpenDays:        []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		OpenTime:        "09:00",
		CloseTime:       "17:00",
		DurationMinutes: 60,
	}
	p.ID = uuid.New()
	if capacity > 0 {
		p.DailyCapacity = &capacity
	}
	return p
}

func activeBooking(productID uuid.UUID, at time.Time) *model.OrderItem {
	return &model.OrderItem{
		ProductID:         productID,
		IsService:         true,
		AppointmentAt:     &at,
		AppointmentStatus: model.AppointmentStatusRequested,
	}
}

// monday anchors slots on a known open weekday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func slotText(hour, minute int) string {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute).Format(time.RFC3339)
}

func TestValidateBatchAcceptsAlignedSlot(t *testing.T) {
	product := serviceProduct(0)
	v := NewValidator(&fakeBookingRepo{})

	out, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: slotText(10, 0)},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, monday.Add(10*time.Hour), out[0].Slot)
}

func TestValidateRejectsQuantity(t *testing.T) {
	product := serviceProduct(0)
	v := NewValidator(&fakeBookingRepo{})

	_, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 2, SlotText: slotText(10, 0)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestValidateRejectsMissingSlot(t *testing.T) {
	product := serviceProduct(0)
	v := NewValidator(&fakeBookingRepo{})

	_, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestValidateRejectsClosedDay(t *testing.T) {
	product := serviceProduct(0)
	v := NewValidator(&fakeBookingRepo{})

	saturday := monday.AddDate(0, 0, 5).Add(10 * time.Hour)
	_, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: saturday.Format(time.RFC3339)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDayClosed))
	assert.Contains(t, err.Error(), "Haircut")
}

func TestValidateRejectsOutOfWindow(t *testing.T) {
	product := serviceProduct(0)
	v := NewValidator(&fakeBookingRepo{})

	tests := []struct {
		name string
		slot string
	}{
		{"before opening", slotText(8, 0)},
		{"at close", slotText(17, 0)},
		{"after close", slotText(18, 0)},
		{"overruns close", slotText(16, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateBatch(context.Background(), []Request{
				{Product: product, Quantity: 1, SlotText: tt.slot},
			})
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeOutOfWindow))
		})
	}
}

func TestValidateRejectsMisalignedSlot(t *testing.T) {
	product := serviceProduct(0)
	v := NewValidator(&fakeBookingRepo{})

	_, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: slotText(10, 30)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeMisalignedSlot))
}

func TestValidateRejectsTakenSlot(t *testing.T) {
	product := serviceProduct(0)
	repo := &fakeBookingRepo{items: []*model.OrderItem{
		activeBooking(product.ID, monday.Add(10*time.Hour)),
	}}
	v := NewValidator(repo)

	_, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: slotText(10, 0)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeSlotTaken))

	// The same request against the same state fails identically.
	_, err2 := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: slotText(10, 0)},
	})
	require.Error(t, err2)
	assert.Equal(t, err.Error(), err2.Error())
}

func TestValidateReleasedSlotBookable(t *testing.T) {
	product := serviceProduct(0)
	at := monday.Add(10 * time.Hour)
	cancelled := activeBooking(product.ID, at)
	cancelled.AppointmentStatus = model.AppointmentStatusCancelled
	v := NewValidator(&fakeBookingRepo{items: []*model.OrderItem{cancelled}})

	out, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: slotText(10, 0)},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestValidateRejectsDailyCapacity(t *testing.T) {
	product := serviceProduct(2)
	repo := &fakeBookingRepo{items: []*model.OrderItem{
		activeBooking(product.ID, monday.Add(9*time.Hour)),
		activeBooking(product.ID, monday.Add(11*time.Hour)),
	}}
	v := NewValidator(repo)

	// 10:00 is free but the day cap of 2 is already reached.
	_, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: slotText(10, 0)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDailyCapacity))
}

func TestValidateBatchRejectsDuplicateSlots(t *testing.T) {
	product := serviceProduct(0)
	v := NewValidator(&fakeBookingRepo{})

	_, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: slotText(10, 0)},
		{Product: product, Quantity: 1, SlotText: slotText(10, 0)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDuplicateSlot))
}

func TestValidateBatchAllowsDistinctSlots(t *testing.T) {
	product := serviceProduct(0)
	v := NewValidator(&fakeBookingRepo{})

	out, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: slotText(10, 0)},
		{Product: product, Quantity: 1, SlotText: slotText(11, 0)},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestValidateBatchCountsOwnBookingsAgainstCapacity(t *testing.T) {
	product := serviceProduct(1)
	v := NewValidator(&fakeBookingRepo{})

	// Two distinct slots on the same capacity-1 day: the first accepted line
	// spends the cap, so the second must fail even with an empty calendar.
	_, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: slotText(10, 0)},
		{Product: product, Quantity: 1, SlotText: slotText(11, 0)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDailyCapacity))
	assert.Contains(t, err.Error(), "Haircut")
}

func TestValidateBatchCapacitySpansOnlySameDay(t *testing.T) {
	product := serviceProduct(1)
	v := NewValidator(&fakeBookingRepo{})

	tuesday := monday.AddDate(0, 0, 1).Add(10 * time.Hour)

	out, err := v.ValidateBatch(context.Background(), []Request{
		{Product: product, Quantity: 1, SlotText: slotText(10, 0)},
		{Product: product, Quantity: 1, SlotText: tuesday.Format(time.RFC3339)},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
