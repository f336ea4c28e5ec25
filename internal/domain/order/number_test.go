package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "PED-2026-0001", FormatNumber(2026, 1))
	assert.Equal(t, "PED-2026-0042", FormatNumber(2026, 42))
	assert.Equal(t, "PED-2025-9999", FormatNumber(2025, 9999))
	// Above four digits the number widens instead of wrapping.
	assert.Equal(t, "PED-2026-10000", FormatNumber(2026, 10000))
}

func TestNumberPrefix(t *testing.T) {
	assert.Equal(t, "PED-2026-%", NumberPrefix(2026))
}

func TestParseNumber(t *testing.T) {
	year, seq, err := ParseNumber("PED-2026-0042")
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 42, seq)

	year, seq, err = ParseNumber("PED-2026-10000")
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 10000, seq)

	for _, bad := range []string{
		"", "PED-2026", "ORD-2026-0001", "PED-26-0001", "PED-2026-0000", "PED-2026-00x1",
	} {
		_, _, err := ParseNumber(bad)
		assert.ErrorIs(t, err, ErrBadNumber, "input %q", bad)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, seq := range []int{1, 7, 99, 1000, 9999, 12345} {
		year, got, err := ParseNumber(FormatNumber(2026, seq))
		require.NoError(t, err)
		assert.Equal(t, 2026, year)
		assert.Equal(t, seq, got)
	}
}

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusPaid, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusPaid, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("SHIPPED")
	require.True(t, ok)
	assert.Equal(t, StatusShipped, st)

	_, ok = ParseStatus("LOST")
	assert.False(t, ok)
}
