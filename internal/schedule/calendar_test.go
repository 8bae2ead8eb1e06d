package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateKeyRoundTripAcrossTimezones(t *testing.T) {
	// The calendar date must survive formatting in every offset; a UTC-based
	// serialization would roll the day near midnight in zones far from UTC.
	for offset := -12; offset <= 14; offset++ {
		zone := time.FixedZone(fmt.Sprintf("UTC%+d", offset), offset*3600)
		for _, clock := range []int{0, 12, 23} {
			instant := time.Date(2025, time.March, 10, clock, 30, 0, 0, zone)
			d := DateOf(instant)
			assert.Equal(t, "2025-03-10", d.String(), "offset %d hour %d", offset, clock)

			parsed, err := ParseDate(d.String())
			require.NoError(t, err)
			assert.True(t, parsed.Equal(d))
		}
	}
}

func TestParseDateRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{"", "2025-13-01", "2025-02-30", "10/03/2025", "2025-03-10T00:00:00Z"} {
		_, err := ParseDate(raw)
		assert.Error(t, err, raw)
	}
}

func TestMonthCellsFebruary2025(t *testing.T) {
	// Feb 1, 2025 is a Saturday: six leading placeholders, then 28 days.
	cells := MonthCells(2025, time.February)
	require.Len(t, cells, 6+28)

	for i := 0; i < 6; i++ {
		assert.Nil(t, cells[i])
	}
	require.NotNil(t, cells[6])
	assert.Equal(t, "2025-02-01", cells[6].String())
	assert.Equal(t, "2025-02-28", cells[len(cells)-1].String())
}

func TestMonthCellsLeapYear(t *testing.T) {
	cells := MonthCells(2024, time.February)
	// Feb 1, 2024 is a Thursday.
	require.Len(t, cells, 4+29)
	assert.Equal(t, "2024-02-29", cells[len(cells)-1].String())
}

func TestMonthCellsSundayStartHasNoPlaceholders(t *testing.T) {
	// June 1, 2025 is a Sunday.
	cells := MonthCells(2025, time.June)
	require.Len(t, cells, 30)
	require.NotNil(t, cells[0])
	assert.Equal(t, "2025-06-01", cells[0].String())
}

func TestIsPast(t *testing.T) {
	jan1 := CivilDate{Year: 2025, Month: time.January, Day: 1}

	today := CivilDate{Year: 2025, Month: time.June, Day: 1}
	assert.True(t, IsPast(jan1, today))

	today = CivilDate{Year: 2025, Month: time.January, Day: 1}
	assert.False(t, IsPast(jan1, today), "today itself is bookable")

	today = CivilDate{Year: 2024, Month: time.December, Day: 31}
	assert.False(t, IsPast(jan1, today))
}

func TestCivilDateBeforeOrdering(t *testing.T) {
	a := CivilDate{Year: 2024, Month: time.December, Day: 31}
	b := CivilDate{Year: 2025, Month: time.January, Day: 1}
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.False(t, a.Before(a))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 28, DaysIn(2025, time.February))
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 31, DaysIn(2025, time.January))
	assert.Equal(t, 30, DaysIn(2025, time.April))
}
