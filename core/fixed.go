package core

import (
	"errors"
	"math"
)

var (
	// ErrOverflow reports a value above the largest representable code,
	// or a negative or NaN value
	ErrOverflow = errors.New("fixed-point overflow")
	// ErrUnderflow reports a non-zero value that would round to code 0
	ErrUnderflow = errors.New("fixed-point underflow")
	// ErrInvalidFormat reports a bit layout the controller cannot use
	ErrInvalidFormat = errors.New("invalid fixed-point format")
)

// FixedFormat is an unsigned fixed-point layout: TotalBits wide, of which
// FracBits are fractional.
type FixedFormat struct {
	TotalBits uint8
	FracBits  uint8
}

// Q8_8 is the gain format used by the wheel controllers
var Q8_8 = FixedFormat{TotalBits: 16, FracBits: 8}

// MaxFixedBits bounds TotalBits so that gain × int16 products stay well
// inside int64.
const MaxFixedBits = 16

// NewFixedFormat validates and returns a layout
func NewFixedFormat(totalBits, fracBits uint8) (FixedFormat, error) {
	f := FixedFormat{TotalBits: totalBits, FracBits: fracBits}
	if err := f.Validate(); err != nil {
		return FixedFormat{}, err
	}
	return f, nil
}

// Validate checks the layout. At least one fractional bit is needed for
// round-to-nearest on rescale.
func (f FixedFormat) Validate() error {
	if f.TotalBits == 0 || f.TotalBits > MaxFixedBits {
		return ErrInvalidFormat
	}
	if f.FracBits == 0 || f.FracBits >= f.TotalBits {
		return ErrInvalidFormat
	}
	return nil
}

// Multiplier is the value of one unit: 1 << FracBits
func (f FixedFormat) Multiplier() int64 {
	return 1 << f.FracBits
}

// MaxCode is the largest raw code
func (f FixedFormat) MaxCode() uint32 {
	return 1<<f.TotalBits - 1
}

// Max is the largest whole value a code can hold; for Q8.8 it is 255.
func (f FixedFormat) Max() float64 {
	return float64(f.MaxCode() >> f.FracBits)
}

// FromFloat converts v to a raw code, truncating toward zero
func (f FixedFormat) FromFloat(v float64) (uint32, error) {
	if math.IsNaN(v) || v < 0 || v > f.Max() {
		return 0, ErrOverflow
	}
	code := uint32(v * float64(f.Multiplier()))
	if code == 0 && v != 0 {
		return 0, ErrUnderflow
	}
	return code, nil
}

// ToFloat converts a raw code back to a real value
func (f FixedFormat) ToFloat(code uint32) float64 {
	return float64(code) / float64(f.Multiplier())
}

// Rescale drops the fractional bits of v, rounding to nearest with ties
// toward positive infinity.
func (f FixedFormat) Rescale(v int64) int64 {
	scaled := v >> f.FracBits
	if v&(1<<(f.FracBits-1)) != 0 {
		scaled++
	}
	return scaled
}
