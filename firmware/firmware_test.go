package firmware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"diffbot/config"
	"diffbot/core"
	"diffbot/protocol"
)

type fakeUART struct {
	rx    []byte
	rxErr error
	tx    []byte
}

func (u *fakeUART) TryRead() (byte, error) {
	if len(u.rx) == 0 {
		if u.rxErr != nil {
			return 0, u.rxErr
		}
		return 0, protocol.ErrWouldBlock
	}
	b := u.rx[0]
	u.rx = u.rx[1:]
	return b, nil
}

func (u *fakeUART) TryWrite(b byte) error {
	u.tx = append(u.tx, b)
	return nil
}

// responses splits and decodes everything written so far
func (u *fakeUART) responses(t *testing.T) []protocol.Response {
	t.Helper()
	var out []protocol.Response
	start := 0
	for i, b := range u.tx {
		if b != protocol.Delimiter {
			continue
		}
		resp, err := protocol.DecodeResponseFrame(append([]byte(nil), u.tx[start:i+1]...))
		require.NoError(t, err)
		out = append(out, resp)
		start = i + 1
	}
	u.tx = u.tx[start:]
	return out
}

type fakeDutyPair struct {
	duty1, duty2 float32
	err          error
}

func (f *fakeDutyPair) SetDuty(duty1, duty2 float32) error {
	f.duty1, f.duty2 = duty1, duty2
	return f.err
}

type fakeScanner struct {
	starts int
	queue  []core.DifferentialSamples[uint16]
	busy   bool
}

func (f *fakeScanner) StartScan() {
	f.starts++
	f.busy = true
}

func (f *fakeScanner) PollDone() (core.DifferentialSamples[uint16], bool) {
	if !f.busy || len(f.queue) == 0 {
		return core.DifferentialSamples[uint16]{}, false
	}
	s := f.queue[0]
	f.queue = f.queue[1:]
	f.busy = false
	return s, true
}

type rig struct {
	fw      *Firmware
	uart    *fakeUART
	left    *fakeDutyPair
	right   *fakeDutyPair
	scanner *fakeScanner
}

func newRig(t *testing.T, cfg *config.Config) *rig {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	r := &rig{
		uart:    &fakeUART{},
		left:    &fakeDutyPair{},
		right:   &fakeDutyPair{},
		scanner: &fakeScanner{},
	}
	fw, err := New(cfg, r.uart, r.left, r.right, r.scanner)
	require.NoError(t, err)
	r.fw = fw
	return r
}

func pingFrame(t *testing.T, id uint64) []byte {
	t.Helper()
	buf := make([]byte, protocol.MaxMessageFrameLen)
	n, err := protocol.EncodeRequestFrame(buf, protocol.Request{CorrelationID: id, Body: protocol.BodyPing})
	require.NoError(t, err)
	return buf[:n]
}

func TestPingEndToEnd(t *testing.T) {
	r := newRig(t, nil)

	r.uart.rx = pingFrame(t, 7)
	r.fw.SerialInterrupt()
	require.Equal(t, 1, r.fw.RunTasks())
	require.Equal(t, []protocol.Response{{CorrelationID: 7, Body: protocol.BodyPing}}, r.uart.responses(t))

	// The same id again is an independent request.
	r.uart.rx = pingFrame(t, 7)
	r.fw.SerialInterrupt()
	r.fw.RunTasks()
	require.Equal(t, []protocol.Response{{CorrelationID: 7, Body: protocol.BodyPing}}, r.uart.responses(t))

	stats := r.fw.Stats()
	require.Equal(t, uint32(2), stats.Dispatched)
	require.Equal(t, uint32(2), stats.Responses)
	require.Equal(t, uint32(8), stats.BytesIn)
	require.Equal(t, uint32(8), stats.BytesOut)
}

func TestCorruptFrameThenValidFrame(t *testing.T) {
	r := newRig(t, nil)

	r.uart.rx = append([]byte{0x05, 0x01, 0x00}, pingFrame(t, 300)...)
	r.fw.SerialInterrupt()
	r.fw.RunTasks()

	require.Equal(t, []protocol.Response{{CorrelationID: 300, Body: protocol.BodyPing}}, r.uart.responses(t))
	require.Equal(t, uint32(1), r.fw.Stats().Malformed)
}

func TestPartialFrameWaitsForDelimiter(t *testing.T) {
	r := newRig(t, nil)
	frame := pingFrame(t, 9)

	r.uart.rx = frame[:len(frame)-1]
	r.fw.SerialInterrupt()
	require.Zero(t, r.fw.RunTasks(), "no boundary, no service pass")

	r.uart.rx = frame[len(frame)-1:]
	r.fw.SerialInterrupt()
	r.fw.RunTasks()
	require.Equal(t, []protocol.Response{{CorrelationID: 9, Body: protocol.BodyPing}}, r.uart.responses(t))
}

func TestCompleteFrameFollowedByPartialFrame(t *testing.T) {
	r := newRig(t, nil)
	second := pingFrame(t, 2)

	r.uart.rx = append(pingFrame(t, 1), second[:2]...)
	r.fw.SerialInterrupt()
	require.Equal(t, 1, r.fw.RunTasks())
	require.Equal(t, []protocol.Response{{CorrelationID: 1, Body: protocol.BodyPing}}, r.uart.responses(t))

	r.uart.rx = second[2:]
	r.fw.SerialInterrupt()
	r.fw.RunTasks()
	require.Equal(t, []protocol.Response{{CorrelationID: 2, Body: protocol.BodyPing}}, r.uart.responses(t))
}

func TestUnregisteredBodyGetsNoResponse(t *testing.T) {
	r := newRig(t, nil)
	r.fw.Registry().Register(protocol.BodyPing, func(protocol.Request) (protocol.Response, bool) {
		return protocol.Response{}, false
	})

	r.uart.rx = pingFrame(t, 1)
	r.fw.SerialInterrupt()
	r.fw.RunTasks()
	require.Empty(t, r.uart.responses(t))
	require.Equal(t, uint32(1), r.fw.Stats().Dispatched)
}

func TestFatalUARTErrorHalts(t *testing.T) {
	r := newRig(t, nil)
	fault := errors.New("framing error")
	r.uart.rxErr = fault

	var halted error
	r.fw.SetHaltHandler(func(err error) { halted = err })
	r.fw.SerialInterrupt()
	require.ErrorIs(t, halted, fault)

	r.fw.SetHaltHandler(nil)
	require.Panics(t, r.fw.SerialInterrupt)
}

func TestTimersDriveScanAndControl(t *testing.T) {
	r := newRig(t, nil)
	require.NoError(t, r.fw.Start(0))
	require.Equal(t, core.ScanIdle, r.fw.Drive().State())

	scanPeriod := core.TimerFromHz(config.Default().ScanHz)
	r.fw.Tick(scanPeriod)
	require.Equal(t, 1, r.fw.RunTasks())
	require.Equal(t, core.ScanScanning, r.fw.Drive().State())
	require.Equal(t, 1, r.scanner.starts)

	r.scanner.queue = append(r.scanner.queue, core.DifferentialSamples[uint16]{})
	r.fw.Tick(2 * scanPeriod)
	r.fw.RunTasks()
	require.Equal(t, uint32(1), r.fw.Stats().Scans)
	require.Equal(t, 2, r.scanner.starts)

	ctlPeriod := core.TimerFromHz(config.Default().ControlHz)
	r.fw.Tick(ctlPeriod)
	require.Equal(t, 2, r.fw.RunTasks(), "scan and control both due")
	require.Equal(t, uint32(1), r.fw.Stats().ControlTicks)

	wake, ok := r.fw.NextWake()
	require.True(t, ok)
	require.Equal(t, ctlPeriod+scanPeriod, wake)
}

func proportionalConfig() *config.Config {
	cfg := config.Default()
	cfg.PID = config.PIDConfig{Kp: 1, OutMin: -100, OutMax: 100}
	return cfg
}

func TestControlDrivesMotorsTowardTargets(t *testing.T) {
	r := newRig(t, proportionalConfig())
	require.NoError(t, r.fw.Start(0))
	r.fw.SetTargets(10, -10)

	r.fw.Tick(core.TimerFromHz(100))
	r.fw.RunTasks()

	require.Equal(t, [2]float32{0, 0.1}, [2]float32{r.left.duty1, r.left.duty2})
	require.Equal(t, [2]float32{0.1, 0}, [2]float32{r.right.duty1, r.right.duty2})

	left, right := r.fw.Targets()
	require.Equal(t, int16(10), left)
	require.Equal(t, int16(-10), right)
}

func TestControlConsumesEncoderCounts(t *testing.T) {
	r := newRig(t, proportionalConfig())
	require.NoError(t, r.fw.Start(0))
	r.fw.SetTargets(2, 0)

	// Two forward edges on the left wheel, scanned before the control tick.
	const lo, hi = 1000, 60000
	pairs := [][2]uint16{{lo, hi}, {hi, hi}, {lo, hi}, {hi, hi}}
	for _, p := range pairs {
		r.scanner.queue = append(r.scanner.queue, core.DifferentialSamples[uint16]{
			Left:  core.SamplePair[uint16]{Ch1: p[0], Ch2: p[1]},
			Right: core.SamplePair[uint16]{Ch1: lo, Ch2: lo},
		})
	}
	now := uint32(0)
	scanPeriod := core.TimerFromHz(1000)
	for i := 0; i <= len(pairs); i++ {
		now += scanPeriod
		r.fw.Tick(now)
		r.fw.RunTasks()
	}
	require.Equal(t, int64(2), r.fw.Drive().Left.Encoder.Peek())

	r.fw.Tick(core.TimerFromHz(100))
	r.fw.RunTasks()

	// At target: zero error, zero duty, and the count has been consumed.
	require.Equal(t, [2]float32{0, 0}, [2]float32{r.left.duty1, r.left.duty2})
	require.Zero(t, r.fw.Drive().Left.Encoder.Peek())
}

func TestMotorFaultsAreCounted(t *testing.T) {
	r := newRig(t, nil)
	require.NoError(t, r.fw.Start(0))
	r.left.err = errors.New("pwm offline")

	r.fw.Tick(core.TimerFromHz(100))
	r.fw.RunTasks()
	require.Equal(t, uint32(1), r.fw.Stats().MotorFaults)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ControlHz = 0
	_, err := New(cfg, &fakeUART{}, &fakeDutyPair{}, &fakeDutyPair{}, &fakeScanner{})
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
