package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDutyPair struct {
	duty1, duty2 float32
	calls        int
	err          error
}

func (f *fakeDutyPair) SetDuty(duty1, duty2 float32) error {
	f.calls++
	f.duty1, f.duty2 = duty1, duty2
	return f.err
}

func TestMotorOutputDrive(t *testing.T) {
	testCases := []struct {
		name         string
		duty         float32
		mode         Mode
		duty1, duty2 float32
	}{
		{"free forward", 0.5, ModeFree, 0, 0.5},
		{"free reverse", -0.25, ModeFree, 0.25, 0},
		{"free stop", 0, ModeFree, 0, 0},
		{"free clamped", 2, ModeFree, 0, 1},
		{"free clamped reverse", -3, ModeFree, 1, 0},
		{"brake forward", 0.5, ModeBrake, 1, 0.5},
		{"brake reverse", -0.25, ModeBrake, 0.75, 1},
		{"brake full", 0, ModeBrake, 1, 1},
		{"brake full forward", 1, ModeBrake, 1, 0},
		{"nan", float32(math.NaN()), ModeFree, 0, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := &fakeDutyPair{}
			require.NoError(t, NewMotorOutput(out).Drive(tc.duty, tc.mode))
			require.Equal(t, tc.duty1, out.duty1)
			require.Equal(t, tc.duty2, out.duty2)
		})
	}
}

func TestMotorOutputFreeAndBrake(t *testing.T) {
	out := &fakeDutyPair{}
	m := NewMotorOutput(out)

	require.NoError(t, m.Brake())
	require.Equal(t, [2]float32{1, 1}, [2]float32{out.duty1, out.duty2})

	require.NoError(t, m.Free())
	require.Equal(t, [2]float32{0, 0}, [2]float32{out.duty1, out.duty2})

	out.err = errors.New("pwm fault")
	require.ErrorIs(t, m.Free(), out.err)
}

type fakePWM struct {
	max        uint32
	configured map[PWMPin]uint32
	values     map[PWMPin]PWMValue
	disabled   map[PWMPin]bool
}

func newFakePWM(max uint32) *fakePWM {
	return &fakePWM{
		max:        max,
		configured: make(map[PWMPin]uint32),
		values:     make(map[PWMPin]PWMValue),
		disabled:   make(map[PWMPin]bool),
	}
}

func (f *fakePWM) ConfigureHardwarePWM(pin PWMPin, cycleTicks uint32) (uint32, error) {
	f.configured[pin] = cycleTicks
	return cycleTicks, nil
}

func (f *fakePWM) SetDutyCycle(pin PWMPin, value PWMValue) error {
	f.values[pin] = value
	return nil
}

func (f *fakePWM) GetMaxValue() uint32 { return f.max }

func (f *fakePWM) DisablePWM(pin PWMPin) error {
	f.disabled[pin] = true
	return nil
}

func TestTwoPinOutput(t *testing.T) {
	pwm := newFakePWM(1000)
	out, err := NewTwoPinOutput(pwm, 4, 5, 100)
	require.NoError(t, err)
	require.Equal(t, map[PWMPin]uint32{4: 100, 5: 100}, pwm.configured)
	require.Equal(t, map[PWMPin]PWMValue{4: 0, 5: 0}, pwm.values)

	require.NoError(t, out.SetDuty(0.5, 1))
	require.Equal(t, PWMValue(500), pwm.values[4])
	require.Equal(t, PWMValue(1000), pwm.values[5])

	require.NoError(t, out.SetDuty(-0.5, 7))
	require.Equal(t, PWMValue(0), pwm.values[4])
	require.Equal(t, PWMValue(1000), pwm.values[5])

	motor := NewMotorOutput(out)
	require.NoError(t, motor.Drive(-0.25, ModeBrake))
	require.Equal(t, PWMValue(750), pwm.values[4])
	require.Equal(t, PWMValue(1000), pwm.values[5])

	require.NoError(t, out.Disable())
	require.True(t, pwm.disabled[4])
	require.True(t, pwm.disabled[5])
}
