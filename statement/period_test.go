package statement_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/statement-viz/statement"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		raw   string
		year  int
		month int
	}{
		{"2024.12", 2024, 12},
		{"2024.3", 2024, 3},
		{"2024.03", 2024, 3},
		{"2024", 2024, 0},
		{"2024.0", 2024, 0},
		{" 2023.6 ", 2023, 6},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p, err := statement.ParsePeriod(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.year, p.Year)
			assert.Equal(t, tt.month, p.Month)
		})
	}
}

func TestParsePeriod_Invalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "2024.13", "2024.x", "-1", "2024.-1"} {
		_, err := statement.ParsePeriod(raw)
		assert.ErrorIs(t, err, statement.ErrInvalidPeriod, raw)
	}
}

func TestPeriodCompare_YearThenSubPeriod(t *testing.T) {
	p2023 := statement.MustParsePeriod("2023.12")
	p2024mar := statement.MustParsePeriod("2024.3")
	p2024dec := statement.MustParsePeriod("2024.12")

	// A float comparison would put 2024.3 after 2024.12.
	assert.Equal(t, -1, p2024mar.Compare(p2024dec))
	assert.Equal(t, 1, p2024dec.Compare(p2024mar))
	assert.Equal(t, -1, p2023.Compare(p2024mar))
	assert.Equal(t, 0, p2024dec.Compare(statement.MustParsePeriod("2024.12")))
	assert.True(t, p2023.Before(p2024dec))
	assert.True(t, p2024dec.After(p2023))

	// Distinct identifiers never tie.
	assert.NotEqual(t, 0, statement.MustParsePeriod("2024").Compare(p2024dec))
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "2024年12月期", statement.FormatLabel(statement.MustParsePeriod("2024.12")))
	assert.Equal(t, "2024年3月期", statement.FormatLabel(statement.MustParsePeriod("2024.3")))
	assert.Equal(t, "2024年12月期", statement.FormatLabel(statement.MustParsePeriod("2024")))
	assert.Equal(t, "2021年12月期", statement.MustParsePeriod("2021").Label())
}

func TestPeriod_JSONRoundTripsAsString(t *testing.T) {
	p := statement.MustParsePeriod("2024.3")
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `"2024.3"`, string(data))

	var back statement.Period
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, p.Equal(back))
}
