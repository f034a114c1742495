package core

import (
	"errors"
	"math"
)

// ErrInvalidRate reports a non-positive control rate
var ErrInvalidRate = errors.New("control rate must be positive")

// Bit growth of the Step intermediates, for int16 inputs and 16-bit gains:
//
//	err        int16 - int16                    int17 (int32)
//	p          gain  * int17                    int33 (int64)
//	integral   clamped                          int32 (int64 accumulator)
//	derivative (int17 - int17) - (int16-int16)  int19, clamped to int16
//	d          gain  * int16                    int32
//	p + i + d                                   int35 (int64)
const (
	integralMax   = math.MaxInt32
	integralMin   = math.MinInt32
	derivativeMax = math.MaxInt16
	derivativeMin = math.MinInt16
)

// PID is an integer PID controller with fixed-point gains. It is a plain
// stateful object: the caller owns it and steps it from one context only.
type PID struct {
	format FixedFormat

	kp, ki, kd int64
	outMin     int64
	outMax     int64

	lastSP  int16
	lastErr int32
	sum     int64
}

// NewPID returns a Q8.8 controller with zero gains and the full int16
// output range
func NewPID() *PID {
	return NewPIDFormat(Q8_8)
}

// NewPIDFormat returns a controller whose gains use format. It panics on
// an invalid format, which is a programming error.
func NewPIDFormat(format FixedFormat) *PID {
	if err := format.Validate(); err != nil {
		panic(err)
	}
	p := &PID{format: format}
	return p.WithOutputRange(math.MinInt16, math.MaxInt16)
}

// WithCoefficients converts the real gains once. ki is per second and kd
// is in seconds; both are rescaled to the step rate hz. The controller is
// left unchanged on error.
func (p *PID) WithCoefficients(kp, ki, kd, hz float64) (*PID, error) {
	if !(hz > 0) {
		return p, ErrInvalidRate
	}
	ckp, err := p.format.FromFloat(kp)
	if err != nil {
		return p, err
	}
	cki, err := p.format.FromFloat(ki / hz)
	if err != nil {
		return p, err
	}
	ckd, err := p.format.FromFloat(kd * hz)
	if err != nil {
		return p, err
	}
	p.kp, p.ki, p.kd = int64(ckp), int64(cki), int64(ckd)
	return p, nil
}

// WithOutputRange sets the output bounds in output units. Reversed bounds
// are swapped.
func (p *PID) WithOutputRange(min, max int16) *PID {
	if min > max {
		min, max = max, min
	}
	mult := p.format.Multiplier()
	p.outMin = int64(min) * mult
	p.outMax = int64(max) * mult
	return p
}

// Gains returns the raw fixed-point gain codes
func (p *PID) Gains() (kp, ki, kd uint32) {
	return uint32(p.kp), uint32(p.ki), uint32(p.kd)
}

// OutputRange returns the bounds in output units
func (p *PID) OutputRange() (min, max int16) {
	return int16(p.outMin >> p.format.FracBits), int16(p.outMax >> p.format.FracBits)
}

// Integral returns the accumulator in fixed-point units
func (p *PID) Integral() int64 {
	return p.sum
}

// Reset clears the accumulator and derivative history but keeps the
// configuration
func (p *PID) Reset() {
	p.sum = 0
	p.lastSP = 0
	p.lastErr = 0
}

// Step runs one control iteration
func (p *PID) Step(sp, fb int16) int16 {
	err := int32(sp) - int32(fb)

	var prop int64
	if p.kp != 0 {
		prop = p.kp * int64(err)
	}

	var integral int64
	if p.ki != 0 {
		p.sum = clamp64(p.sum+p.ki*int64(err), integralMin, integralMax)
		integral = p.sum
	}

	var deriv int64
	if p.kd != 0 {
		diff := (err - p.lastErr) - (int32(sp) - int32(p.lastSP))
		deriv = p.kd * int64(clamp32(diff, derivativeMin, derivativeMax))
	}
	p.lastSP = sp
	p.lastErr = err

	out := clamp64(prop+integral+deriv, p.outMin, p.outMax)
	return int16(p.format.Rescale(out))
}

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
