package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, http.StatusConflict, SlotTaken("Haircut").StatusCode())
	assert.Equal(t, http.StatusConflict, DailyCapacity("Haircut").StatusCode())
	assert.Equal(t, http.StatusBadRequest, DayClosed("Haircut", "sunday").StatusCode())
	assert.Equal(t, http.StatusBadRequest, StateTransition("nope").StatusCode())
	assert.Equal(t, http.StatusNotFound, NotFound("order", nil).StatusCode())
}

func TestMessagesNameTheProduct(t *testing.T) {
	assert.Contains(t, DayClosed("Haircut", "sunday").Error(), "Haircut")
	assert.Contains(t, OutOfWindow("Haircut", "09:00", "17:00").Error(), "09:00")
	assert.Contains(t, MisalignedSlot("Haircut", 60).Error(), "60-minute")
	assert.Contains(t, SlotTaken("Haircut").Error(), "Haircut")
}

func TestAsUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("checkout failed: %w", SlotTaken("Haircut"))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeSlotTaken, appErr.Code)
	assert.True(t, IsCode(wrapped, CodeSlotTaken))
	assert.False(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(errors.New("plain"), CodeSlotTaken))
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("no rows")
	err := NotFound("order", cause)
	assert.True(t, errors.Is(err, cause))
}
