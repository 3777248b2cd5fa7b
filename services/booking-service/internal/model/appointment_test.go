package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:05")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 5}, tod)
	assert.Equal(t, "09:05", tod.String())
	assert.Equal(t, 545, tod.Minutes())

	for _, bad := range []string{"9am", "24:00", "12:60", "", "12:00:00"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"01/03/2025", "2025-02-30", "2025-3-1", ""} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDayOn(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC), TimeOfDay{Hour: 14, Minute: 30}.On(day))
	assert.True(t, TimeOfDay{Hour: 9}.Before(TimeOfDay{Hour: 9, Minute: 1}))
	assert.Equal(t, TimeOfDay{Hour: 13, Minute: 15}, TimeOfDayFromMinutes(795))
}
