// Package config describes the tunable parameters of the drive firmware.
package config

import (
	"errors"
	"fmt"

	"diffbot/core"
	"diffbot/protocol"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// PIDConfig holds the gains shared by both wheel controllers. Ki is per
// second and Kd in seconds; they are rescaled to ControlHz.
type PIDConfig struct {
	Kp     float64 `json:"kp" cbor:"1,keyasint"`
	Ki     float64 `json:"ki" cbor:"2,keyasint"`
	Kd     float64 `json:"kd" cbor:"3,keyasint"`
	OutMin int16   `json:"out_min" cbor:"4,keyasint"`
	OutMax int16   `json:"out_max" cbor:"5,keyasint"`
}

// Config is the complete firmware configuration
type Config struct {
	Baud             uint32    `json:"baud" cbor:"1,keyasint"`
	InboundCapacity  int       `json:"inbound_capacity" cbor:"2,keyasint"`
	OutboundCapacity int       `json:"outbound_capacity" cbor:"3,keyasint"`
	ScanHz           uint32    `json:"scan_hz" cbor:"4,keyasint"`
	ControlHz        uint32    `json:"control_hz" cbor:"5,keyasint"`
	PWMHz            uint32    `json:"pwm_hz" cbor:"6,keyasint"`
	PID              PIDConfig `json:"pid" cbor:"7,keyasint"`
	EncoderSeed      uint16    `json:"encoder_seed" cbor:"8,keyasint"`
	LeftTarget       int16     `json:"left_target" cbor:"9,keyasint"`
	RightTarget      int16     `json:"right_target" cbor:"10,keyasint"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Baud:             115200,
		InboundCapacity:  protocol.InboundCapacity,
		OutboundCapacity: protocol.OutboundCapacity,
		ScanHz:           1000,
		ControlHz:        100,
		PWMHz:            10000,
		PID: PIDConfig{
			Kp:     2,
			Ki:     20,
			Kd:     0.01,
			OutMin: -1000,
			OutMax: 1000,
		},
		EncoderSeed: 32768, // mid-scale of a 16-bit reading
	}
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *Config) {
	def := Default()

	if config.Baud == 0 {
		config.Baud = def.Baud
	}
	if config.InboundCapacity == 0 {
		config.InboundCapacity = def.InboundCapacity
	}
	if config.OutboundCapacity == 0 {
		config.OutboundCapacity = def.OutboundCapacity
	}
	if config.ScanHz == 0 {
		config.ScanHz = def.ScanHz
	}
	if config.ControlHz == 0 {
		config.ControlHz = def.ControlHz
	}
	if config.PWMHz == 0 {
		config.PWMHz = def.PWMHz
	}

	// Gains and range are only defaulted as a group; a partial set is
	// taken as deliberate.
	pid := &config.PID
	if pid.Kp == 0 && pid.Ki == 0 && pid.Kd == 0 {
		pid.Kp, pid.Ki, pid.Kd = def.PID.Kp, def.PID.Ki, def.PID.Kd
	}
	if pid.OutMin == 0 && pid.OutMax == 0 {
		pid.OutMin, pid.OutMax = def.PID.OutMin, def.PID.OutMax
	}
}

// Validate rejects configurations the firmware cannot run
func (c *Config) Validate() error {
	if c.Baud == 0 {
		return fmt.Errorf("%w: baud must be set", ErrInvalidConfig)
	}
	if c.InboundCapacity < protocol.FrameMax {
		return fmt.Errorf("%w: inbound capacity %d is below the frame size %d", ErrInvalidConfig, c.InboundCapacity, protocol.FrameMax)
	}
	if c.OutboundCapacity < protocol.MaxMessageFrameLen {
		return fmt.Errorf("%w: outbound capacity %d cannot hold one response", ErrInvalidConfig, c.OutboundCapacity)
	}
	if c.ScanHz == 0 || c.ControlHz == 0 || c.PWMHz == 0 {
		return fmt.Errorf("%w: rates must be non-zero", ErrInvalidConfig)
	}
	if c.ScanHz > core.TimerFreq || c.ControlHz > core.TimerFreq {
		return fmt.Errorf("%w: rates above the %d Hz timer", ErrInvalidConfig, core.TimerFreq)
	}
	if c.PID.OutMin >= c.PID.OutMax {
		return fmt.Errorf("%w: pid output range [%d, %d] is empty", ErrInvalidConfig, c.PID.OutMin, c.PID.OutMax)
	}
	if _, err := c.NewPID(); err != nil {
		return fmt.Errorf("%w: pid gains: %w", ErrInvalidConfig, err)
	}
	return nil
}

// NewPID builds a wheel controller from the configured gains and range
func (c *Config) NewPID() (*core.PID, error) {
	pid, err := core.NewPID().WithCoefficients(c.PID.Kp, c.PID.Ki, c.PID.Kd, float64(c.ControlHz))
	if err != nil {
		return nil, err
	}
	return pid.WithOutputRange(c.PID.OutMin, c.PID.OutMax), nil
}
