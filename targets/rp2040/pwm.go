//go:build rp2040

package main

import (
	"errors"
	"machine"

	"diffbot/core"
)

// PWMMax is the duty resolution exposed to core
const PWMMax = 65535

var errPinNotConfigured = errors.New("pwm pin not configured")

// pwmPeripheral is an interface for PWM hardware peripherals
// This abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// RP2040PWMDriver implements core.PWMDriver on the RP2040's 8 PWM slices
// of 2 channels each
type RP2040PWMDriver struct {
	// Configured period per slice in nanoseconds
	slices map[uint8]uint64

	// Pin to slice channel
	channels map[uint32]uint8

	peripherals map[uint8]pwmPeripheral
}

// NewRP2040PWMDriver creates a new RP2040 PWM driver
func NewRP2040PWMDriver() *RP2040PWMDriver {
	return &RP2040PWMDriver{
		slices:      make(map[uint8]uint64),
		channels:    make(map[uint32]uint8),
		peripherals: make(map[uint8]pwmPeripheral),
	}
}

// GetMaxValue returns the maximum PWM value
func (d *RP2040PWMDriver) GetMaxValue() uint32 {
	return PWMMax
}

// ConfigureHardwarePWM configures a pin for hardware PWM output.
// Both pins of one motor share a slice, so they always share a period.
func (d *RP2040PWMDriver) ConfigureHardwarePWM(pin core.PWMPin, cycleTicks uint32) (uint32, error) {
	pinNum := uint32(pin)

	// GPIO N maps to slice (N >> 1) & 7, channel N & 1
	sliceNum := uint8((pinNum >> 1) & 0x7)

	pwm, exists := d.peripherals[sliceNum]
	if !exists {
		pwm = d.getPWMPeripheral(sliceNum)
		d.peripherals[sliceNum] = pwm
	}

	// core ticks are microseconds
	period := uint64(core.TimerToUS(cycleTicks)) * 1000

	if existing, ok := d.slices[sliceNum]; !ok || existing != period {
		if err := pwm.Configure(machine.PWMConfig{Period: period}); err != nil {
			return 0, err
		}
		d.slices[sliceNum] = period
	}

	channel, err := pwm.Channel(machine.Pin(pinNum))
	if err != nil {
		return 0, err
	}
	d.channels[pinNum] = channel

	return cycleTicks, nil
}

// SetDutyCycle sets the duty from 0 (off) to PWMMax (fully on)
func (d *RP2040PWMDriver) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	pinNum := uint32(pin)

	channel, exists := d.channels[pinNum]
	if !exists {
		return errPinNotConfigured
	}
	pwm := d.peripherals[uint8((pinNum>>1)&0x7)]

	if value > PWMMax {
		value = PWMMax
	}
	top := uint64(pwm.Top())
	pwm.Set(channel, uint32(uint64(value)*top/PWMMax))
	return nil
}

// DisablePWM drives the pin low and forgets it. TinyGo has no way to hand
// the pin back to GPIO, so the slice keeps running at zero duty.
func (d *RP2040PWMDriver) DisablePWM(pin core.PWMPin) error {
	pinNum := uint32(pin)
	if err := d.SetDutyCycle(pin, 0); err != nil {
		return err
	}
	delete(d.channels, pinNum)
	return nil
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
func (d *RP2040PWMDriver) getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	default:
		// Should never happen with proper masking
		return machine.PWM0
	}
}
