package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeetsIncrement(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		current   float64
		increment float64
		expected  bool
	}{
		{name: "exactly_at_increment", amount: 110.00, current: 100.00, increment: 10.00, expected: true},
		{name: "one_cent_below", amount: 109.99, current: 100.00, increment: 10.00, expected: false},
		{name: "one_cent_above", amount: 110.01, current: 100.00, increment: 10.00, expected: true},
		{name: "well_above", amount: 200.00, current: 100.00, increment: 10.00, expected: true},
		// 0.1 + 0.2 != 0.3 in float64; the decimal comparison must not care.
		{name: "float_noise_boundary", amount: 0.3, current: 0.1, increment: 0.2, expected: true},
		{name: "fractional_cents_round", amount: 100.104, current: 100.00, increment: 0.10, expected: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, MeetsIncrement(tc.amount, tc.current, tc.increment))
		})
	}
}

func TestMoneyCmp(t *testing.T) {
	require.Equal(t, 0, MoneyCmp(0.1+0.2, 0.3))
	require.Equal(t, -1, MoneyCmp(109.99, 110.00))
	require.Equal(t, 1, MoneyCmp(110.01, 110.00))
	require.Equal(t, 0, MoneyCmp(100.004, 100.00))
}

func TestMinimumAcceptableBid(t *testing.T) {
	require.Equal(t, 110.00, MinimumAcceptableBid(100.00, 10.00))
	require.Equal(t, 0.3, MinimumAcceptableBid(0.1, 0.2))
}
