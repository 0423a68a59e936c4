package agenda

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fletes-app/service-quote/internal/common/domain"
)

func TestNewDay_NormalizesSlots(t *testing.T) {
	d, err := NewDay("2026-03-10", true, []string{"14:00", "09:00", "14:00"})

	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "14:00"}, d.Slots())
}

func TestNewDay_Validation(t *testing.T) {
	_, err := NewDay("2026-3-10", true, nil)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	_, err = NewDay("2026-03-10", true, []string{"9:00"})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestTake(t *testing.T) {
	d, err := NewDay("2026-03-10", true, []string{"09:00", "11:00"})
	require.NoError(t, err)

	require.NoError(t, d.Take("09:00"))
	assert.False(t, d.Has("09:00"))
	assert.True(t, errors.Is(d.Take("09:00"), domain.ErrSlotUnavailable))
	assert.True(t, errors.Is(d.Take("10:00"), domain.ErrSlotUnavailable))
}

func TestTake_DisabledDay(t *testing.T) {
	d, err := NewDay("2026-03-10", false, []string{"09:00"})
	require.NoError(t, err)

	assert.True(t, errors.Is(d.Take("09:00"), domain.ErrSlotUnavailable))
	assert.True(t, d.Has("09:00"))
}

func TestPut_IsSetUnion(t *testing.T) {
	d, err := NewDay("2026-03-10", true, []string{"11:00"})
	require.NoError(t, err)

	d.Put("09:00")
	d.Put("09:00")

	assert.Equal(t, []string{"09:00", "11:00"}, d.Slots())
}

func TestExclude(t *testing.T) {
	d, err := NewDay("2026-03-10", true, []string{"09:00", "11:00", "15:00"})
	require.NoError(t, err)

	blocked := d.Exclude([]string{"11:00", "18:00"})

	assert.Equal(t, []string{"11:00"}, blocked)
	assert.Equal(t, []string{"09:00", "15:00"}, d.Slots())
}

func TestMonthRange(t *testing.T) {
	from, to, err := MonthRange("2028-02")
	require.NoError(t, err)
	assert.Equal(t, "2028-02-01", from)
	assert.Equal(t, "2028-02-29", to)

	_, _, err = MonthRange("2028/02")
	assert.Error(t, err)
}

func TestCalendar_TodayUsesZone(t *testing.T) {
	// 02:00 UTC is still the previous day at UTC-3.
	at := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	c := FixedCalendar(time.FixedZone("ART", -3*60*60), at)

	assert.Equal(t, "2026-03-09", c.Today())
}

func TestNewCalendar_FallsBackToFixedOffset(t *testing.T) {
	c := NewCalendar("Not/AZone")

	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, c.Location()).Zone()
	assert.Equal(t, -3*60*60, offset)
}
