package protocol

import (
	"encoding/binary"
	"errors"
)

var (
	ErrInvalidVarint = errors.New("invalid varint encoding")
	ErrTruncated     = errors.New("truncated message")
)

// MaxVarintLen is the longest encoding of a 64-bit value
const MaxVarintLen = binary.MaxVarintLen64

// AppendUvarint appends v as a little-endian base-128 varint (seven bits per
// byte, high bit set on every byte but the last)
func AppendUvarint(dst []byte, v uint64) []byte {
	return binary.AppendUvarint(dst, v)
}

// DecodeUvarint decodes a varint from the data slice.
// The data slice is advanced past the consumed bytes.
func DecodeUvarint(data *[]byte) (uint64, error) {
	v, n := binary.Uvarint(*data)
	switch {
	case n == 0:
		return 0, ErrTruncated
	case n < 0:
		return 0, ErrInvalidVarint
	}
	*data = (*data)[n:]
	return v, nil
}

// DecodeUvarint32 decodes a varint that must fit in 32 bits
func DecodeUvarint32(data *[]byte) (uint32, error) {
	v, err := DecodeUvarint(data)
	if err != nil {
		return 0, err
	}
	if v > 0xFFFFFFFF {
		return 0, ErrInvalidVarint
	}
	return uint32(v), nil
}
