package sim

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"diffbot/config"
	"diffbot/core"
	"diffbot/protocol"
)

// bufferConn collects what the device writes
type bufferConn struct {
	bytes.Buffer
}

func (c *bufferConn) Close() error { return nil }

func pingFrame(t *testing.T, id uint64) []byte {
	t.Helper()
	buf := make([]byte, protocol.MaxMessageFrameLen)
	n, err := protocol.EncodeRequestFrame(buf, protocol.Request{CorrelationID: id, Body: protocol.BodyPing})
	require.NoError(t, err)
	return buf[:n]
}

func TestStepAnswersPing(t *testing.T) {
	conn := &bufferConn{}
	dev, err := New(config.Default(), conn)
	require.NoError(t, err)
	require.NoError(t, dev.Firmware().Start(0))

	dev.uart.feed(pingFrame(t, 42))
	require.NoError(t, dev.Step(0))

	resp, err := protocol.DecodeResponseFrame(conn.Bytes())
	require.NoError(t, err)
	require.Equal(t, protocol.Response{CorrelationID: 42, Body: protocol.BodyPing}, resp)
}

func TestClosedLoopFollowsTargets(t *testing.T) {
	cfg := config.Default()
	cfg.PID = config.PIDConfig{Kp: 100, OutMin: -1000, OutMax: 1000}

	dev, err := New(cfg, &bufferConn{})
	require.NoError(t, err)
	fw := dev.Firmware()
	require.NoError(t, fw.Start(0))
	fw.SetTargets(5, -5)

	scan := core.TimerFromHz(cfg.ScanHz)
	for now := uint32(0); now <= 2000*scan; now += scan {
		require.NoError(t, dev.Step(now))
	}

	left, right := dev.Plant().Speeds()
	require.Greater(t, left, 0.0)
	require.Less(t, right, 0.0)

	leftDuty, rightDuty := dev.Plant().Duties()
	require.Greater(t, leftDuty, 0.0)
	require.Less(t, rightDuty, 0.0)

	stats := fw.Stats()
	require.GreaterOrEqual(t, stats.Scans, uint32(1900))
	require.GreaterOrEqual(t, stats.ControlTicks, uint32(190))
	require.Zero(t, stats.MotorFaults)
}

func TestPlantCountsOneEdgePerTurn(t *testing.T) {
	enc := core.NewEncoder[uint16](Midpoint)
	p := NewPlant()
	require.NoError(t, p.LeftOutput().SetDuty(0, 1))

	for i := 0; i < 500; i++ {
		p.StartScan()
		s, ok := p.PollDone()
		require.True(t, ok)
		enc.Update(s.Left.Ch1, s.Left.Ch2)
	}
	left, _ := p.Speeds()
	require.InDelta(t, MaxOmega/(2*3.141592653589793), left, 0.001)

	// 500 scans settling to MaxOmega cover about 63 turns, plus the
	// crossing the wheel starts on.
	count := enc.Read()
	require.GreaterOrEqual(t, count, int64(62))
	require.LessOrEqual(t, count, int64(65))

	_, ok := p.PollDone()
	require.False(t, ok)
}

func TestRunServesPipe(t *testing.T) {
	host, device := net.Pipe()
	dev, err := New(config.Default(), device)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dev.Run(ctx) }()

	_, err = host.Write(pingFrame(t, 3))
	require.NoError(t, err)

	require.NoError(t, host.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, protocol.MaxMessageFrameLen)
	n, err := host.Read(buf)
	require.NoError(t, err)
	resp, err := protocol.DecodeResponseFrame(buf[:n])
	require.NoError(t, err)
	require.Equal(t, uint64(3), resp.CorrelationID)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	host.Close()
	device.Close()
}
