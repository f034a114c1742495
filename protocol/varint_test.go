package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUvarintEncodeDecode(t *testing.T) {
	testCases := []struct {
		value   uint64
		encoded []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xAC, 0x02}},
		{math.MaxUint32, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
		{math.MaxUint64, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}},
	}

	for _, tc := range testCases {
		encoded := AppendUvarint(nil, tc.value)
		require.Equal(t, tc.encoded, encoded, "encoding of %d", tc.value)

		data := encoded
		decoded, err := DecodeUvarint(&data)
		require.NoError(t, err)
		require.Equal(t, tc.value, decoded)
		require.Empty(t, data, "decode must consume every byte of %d", tc.value)
	}
}

func TestUvarintTruncated(t *testing.T) {
	data := []byte{0x80} // continuation bit but no following byte
	_, err := DecodeUvarint(&data)
	require.ErrorIs(t, err, ErrTruncated)

	data = nil
	_, err = DecodeUvarint(&data)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestUvarintOverflow(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}
	_, err := DecodeUvarint(&data)
	require.ErrorIs(t, err, ErrInvalidVarint)
}

func TestUvarint32Range(t *testing.T) {
	data := AppendUvarint(nil, math.MaxUint32+1)
	_, err := DecodeUvarint32(&data)
	require.ErrorIs(t, err, ErrInvalidVarint)
}
