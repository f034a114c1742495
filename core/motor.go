package core

import "math"

// Mode selects how the undriven half of an H-bridge behaves
type Mode uint8

const (
	// ModeFree lets the motor coast: one channel is held low.
	ModeFree Mode = iota
	// ModeBrake shorts the motor: both channels sit near full scale.
	ModeBrake
)

func (m Mode) String() string {
	switch m {
	case ModeFree:
		return "free"
	case ModeBrake:
		return "brake"
	default:
		return "unknown"
	}
}

// DutyPair drives the two inputs of an H-bridge. Duties are fractions in
// [0, 1].
type DutyPair interface {
	SetDuty(duty1, duty2 float32) error
}

// MotorOutput turns a signed duty and mode into a DutyPair command
type MotorOutput struct {
	out DutyPair
}

// NewMotorOutput wraps out
func NewMotorOutput(out DutyPair) *MotorOutput {
	return &MotorOutput{out: out}
}

// Drive applies duty in [-1, 1]; the sign selects the direction. Out of
// range values are clamped and NaN is treated as zero.
func (m *MotorOutput) Drive(duty float32, mode Mode) error {
	duty = clampDuty(duty)
	switch {
	case mode == ModeBrake && duty > 0:
		return m.out.SetDuty(1, 1-duty)
	case mode == ModeBrake:
		return m.out.SetDuty(1+duty, 1)
	case duty > 0:
		return m.out.SetDuty(0, duty)
	default:
		return m.out.SetDuty(-duty, 0)
	}
}

// Free releases both channels
func (m *MotorOutput) Free() error {
	return m.Drive(0, ModeFree)
}

// Brake drives both channels to full scale
func (m *MotorOutput) Brake() error {
	return m.Drive(0, ModeBrake)
}

func clampDuty(d float32) float32 {
	if d != d {
		return 0
	}
	return float32(math.Max(-1, math.Min(1, float64(d))))
}

// TwoPinOutput is a DutyPair backed by two channels of a PWMDriver
type TwoPinOutput struct {
	driver PWMDriver
	pin1   PWMPin
	pin2   PWMPin
}

// NewTwoPinOutput configures both pins for cycleTicks and starts them at
// zero duty
func NewTwoPinOutput(driver PWMDriver, pin1, pin2 PWMPin, cycleTicks uint32) (*TwoPinOutput, error) {
	for _, pin := range []PWMPin{pin1, pin2} {
		if _, err := driver.ConfigureHardwarePWM(pin, cycleTicks); err != nil {
			return nil, err
		}
		if err := driver.SetDutyCycle(pin, 0); err != nil {
			return nil, err
		}
	}
	return &TwoPinOutput{driver: driver, pin1: pin1, pin2: pin2}, nil
}

// SetDuty scales both fractions to the driver's range
func (o *TwoPinOutput) SetDuty(duty1, duty2 float32) error {
	max := o.driver.GetMaxValue()
	if err := o.driver.SetDutyCycle(o.pin1, scaleDuty(duty1, max)); err != nil {
		return err
	}
	return o.driver.SetDutyCycle(o.pin2, scaleDuty(duty2, max))
}

// Disable returns both pins to GPIO
func (o *TwoPinOutput) Disable() error {
	if err := o.driver.DisablePWM(o.pin1); err != nil {
		return err
	}
	return o.driver.DisablePWM(o.pin2)
}

func scaleDuty(d float32, max uint32) PWMValue {
	if !(d > 0) {
		return 0
	}
	if d >= 1 {
		return PWMValue(max)
	}
	return PWMValue(d * float32(max))
}
