package mcu

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"diffbot/config"
	"diffbot/host/sim"
)

func connectSim(t *testing.T) *MCU {
	t.Helper()
	host, device := net.Pipe()
	dev, err := sim.New(config.Default(), device)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go dev.Run(ctx)

	m := NewMCU()
	require.NoError(t, m.ConnectPort(host))
	t.Cleanup(func() {
		cancel()
		m.Close()
		device.Close()
	})
	return m
}

func TestPingSimulatedController(t *testing.T) {
	m := connectSim(t)
	require.True(t, m.Connected())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := m.PingN(ctx, 3, time.Second, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		require.NoError(t, r.Err)
		require.Equal(t, uint64(i), r.CorrelationID)
	}

	s := Summarize(results)
	require.Equal(t, 3, s.Sent)
	require.Equal(t, 3, s.Received)
	require.Zero(t, s.Loss())
	require.LessOrEqual(t, s.Min, s.Avg)
	require.LessOrEqual(t, s.Avg, s.Max)

	require.Equal(t, uint32(3), m.Stats().Received)
}

func TestConnectTwiceFails(t *testing.T) {
	m := connectSim(t)
	a, _ := net.Pipe()
	defer a.Close()
	require.Error(t, m.ConnectPort(a))
}

func TestPingWithoutConnection(t *testing.T) {
	m := NewMCU()
	_, err := m.Ping(context.Background())
	require.Error(t, err)
	require.NoError(t, m.Close())
}

func TestSummarizeCountsLoss(t *testing.T) {
	results := []PingResult{
		{RTT: 2 * time.Millisecond},
		{Err: errors.New("timeout")},
		{RTT: 4 * time.Millisecond},
		{Err: errors.New("timeout")},
	}
	s := Summarize(results)
	require.Equal(t, Summary{
		Sent:     4,
		Received: 2,
		Min:      2 * time.Millisecond,
		Avg:      3 * time.Millisecond,
		Max:      4 * time.Millisecond,
	}, s)
	require.Equal(t, 0.5, s.Loss())
	require.Zero(t, Summarize(nil).Loss())
}
