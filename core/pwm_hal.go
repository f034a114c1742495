package core

// PWMPin identifies a hardware pin capable of PWM output
type PWMPin uint32

// PWMValue is the duty cycle value (0 to GetMaxValue)
type PWMValue uint32

// PWMDriver is the abstract PWM interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type PWMDriver interface {
	// ConfigureHardwarePWM configures a pin for hardware PWM output.
	// Returns the actual cycle ticks used, which may be adjusted for
	// hardware constraints.
	ConfigureHardwarePWM(pin PWMPin, cycleTicks uint32) (uint32, error)

	// SetDutyCycle sets the duty from 0 (off) to GetMaxValue (fully on)
	SetDutyCycle(pin PWMPin, value PWMValue) error

	// GetMaxValue returns the maximum PWM value
	GetMaxValue() uint32

	// DisablePWM disables PWM on a pin and returns it to GPIO mode
	DisablePWM(pin PWMPin) error
}
