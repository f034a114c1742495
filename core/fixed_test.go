package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedFormatValidate(t *testing.T) {
	testCases := []struct {
		total, frac uint8
		ok          bool
	}{
		{16, 8, true},
		{12, 4, true},
		{16, 15, true},
		{0, 0, false},
		{17, 8, false},
		{16, 0, false},
		{8, 8, false},
	}
	for _, tc := range testCases {
		_, err := NewFixedFormat(tc.total, tc.frac)
		if tc.ok {
			require.NoError(t, err, "Q%d.%d", tc.total-tc.frac, tc.frac)
		} else {
			require.ErrorIs(t, err, ErrInvalidFormat, "Q%d.%d", tc.total, tc.frac)
		}
	}
}

func TestFixedFromFloat(t *testing.T) {
	testCases := []struct {
		name string
		in   float64
		code uint32
		err  error
	}{
		{"zero", 0, 0, nil},
		{"one", 1, 256, nil},
		{"fraction", 0.5, 128, nil},
		{"truncates", 1.0 / 3, 85, nil},
		{"smallest", 1.0 / 256, 1, nil},
		{"largest", 255, 65280, nil},
		{"too large", 255.5, 0, ErrOverflow},
		{"negative", -0.1, 0, ErrOverflow},
		{"nan", math.NaN(), 0, ErrOverflow},
		{"inf", math.Inf(1), 0, ErrOverflow},
		{"too small", 0.001, 0, ErrUnderflow},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, err := Q8_8.FromFloat(tc.in)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.code, code)
		})
	}
}

func TestFixedRescaleRoundsToNearest(t *testing.T) {
	testCases := []struct {
		in, out int64
	}{
		{0, 0},
		{256, 1},
		{127, 0},
		{128, 1},   // 0.5 rounds up
		{384, 2},   // 1.5 rounds up
		{-128, 0},  // -0.5 rounds toward +inf
		{-129, -1}, // just below -0.5
		{-384, -1},
		{-256, -1},
		{32767 * 256, 32767},
		{-32768 * 256, -32768},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.out, Q8_8.Rescale(tc.in), "rescale %d", tc.in)
	}
}

func TestFixedMax(t *testing.T) {
	require.Equal(t, 255.0, Q8_8.Max())
	require.Equal(t, int64(256), Q8_8.Multiplier())
	require.Equal(t, 1.5, Q8_8.ToFloat(384))
}
