package protocol

import "errors"

var (
	ErrBufferTooSmall = errors.New("buffer too small")
	ErrInvalidFrame   = errors.New("invalid COBS frame")
)

// MaxStuffedLen returns the worst-case size of Stuff(src) for n source
// bytes, trailing delimiter included
func MaxStuffedLen(n int) int {
	return n + n/254 + 2
}

// Stuff COBS-encodes src into dst and appends the frame Delimiter.
// It returns the number of bytes written.
//
// Each block starts with a code byte holding the distance to the next zero
// (or 0xFF for a run of 254 non-zero bytes with no implied zero), so the
// encoded output never contains the delimiter.
func Stuff(dst, src []byte) (int, error) {
	if len(dst) < 1 {
		return 0, ErrBufferTooSmall
	}
	codeIdx := 0
	out := 1
	code := byte(1)

	for _, b := range src {
		if b == Delimiter {
			dst[codeIdx] = code
			if out >= len(dst) {
				return 0, ErrBufferTooSmall
			}
			codeIdx = out
			out++
			code = 1
			continue
		}
		if out >= len(dst) {
			return 0, ErrBufferTooSmall
		}
		dst[out] = b
		out++
		code++
		if code == 0xFF {
			dst[codeIdx] = code
			if out >= len(dst) {
				return 0, ErrBufferTooSmall
			}
			codeIdx = out
			out++
			code = 1
		}
	}

	dst[codeIdx] = code
	if out >= len(dst) {
		return 0, ErrBufferTooSmall
	}
	dst[out] = Delimiter
	out++
	return out, nil
}

// Unstuff decodes a COBS frame from src into dst and returns the decoded
// length. Decoding stops at the first Delimiter or at the end of src.
// dst may alias src: the write position never overtakes the read position.
func Unstuff(dst, src []byte) (int, error) {
	in := 0
	out := 0

	for in < len(src) {
		code := src[in]
		if code == Delimiter {
			break
		}
		in++

		for i := 1; i < int(code); i++ {
			if in >= len(src) || src[in] == Delimiter {
				return 0, ErrInvalidFrame
			}
			if out >= len(dst) {
				return 0, ErrBufferTooSmall
			}
			dst[out] = src[in]
			out++
			in++
		}

		// Every block except a full 254-byte run and the last block ends in
		// an implied zero.
		if code != 0xFF && in < len(src) && src[in] != Delimiter {
			if out >= len(dst) {
				return 0, ErrBufferTooSmall
			}
			dst[out] = 0
			out++
		}
	}
	return out, nil
}
