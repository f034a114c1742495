// Package mcu is the host's connection to the controller
package mcu

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"diffbot/host/serial"
	"diffbot/protocol"
)

// MCU represents a connection to the drive controller
type MCU struct {
	// Transport layer
	transport *protocol.HostTransport

	// Underlying byte stream
	port io.ReadWriteCloser

	// Connection state
	connected bool
}

// PingResult is one timed round trip
type PingResult struct {
	CorrelationID uint64
	RTT           time.Duration
	Err           error
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{
		connected: false,
	}
}

// Connect connects to the controller via serial port
func (m *MCU) Connect(device string, baud int) error {
	cfg := serial.DefaultConfig(device)
	if baud > 0 {
		cfg.Baud = baud
	}
	return m.ConnectWithConfig(cfg)
}

// ConnectWithConfig connects with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	// Drop anything the controller sent before we were listening so the
	// reader starts on a frame boundary.
	if err := port.Flush(); err != nil {
		glog.Warningf("flush %s: %v", cfg.Device, err)
	}
	return m.ConnectPort(port)
}

// ConnectWebSocket connects through a serial-over-WebSocket bridge
func (m *MCU) ConnectWebSocket(cfg serial.WebSocketConfig) error {
	port, err := serial.OpenWebSocket(cfg)
	if err != nil {
		return err
	}
	return m.ConnectPort(port)
}

// ConnectPort attaches to an already open byte stream
func (m *MCU) ConnectPort(port io.ReadWriteCloser) error {
	if m.connected {
		return fmt.Errorf("already connected")
	}
	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.transport.SetResponseHandler(m.handleResponse)
	m.connected = true
	return nil
}

// Connected reports whether a link is open
func (m *MCU) Connected() bool {
	return m.connected
}

// Close closes the connection
func (m *MCU) Close() error {
	if !m.connected {
		return nil
	}
	m.connected = false
	return m.transport.Close()
}

// Ping performs one round trip
func (m *MCU) Ping(ctx context.Context) (PingResult, error) {
	if !m.connected {
		return PingResult{}, fmt.Errorf("not connected to controller")
	}
	start := time.Now()
	resp, err := m.transport.Ping(ctx)
	res := PingResult{CorrelationID: resp.CorrelationID, RTT: time.Since(start), Err: err}
	if err != nil {
		return res, err
	}
	glog.V(1).Infof("ping id=%d rtt=%s", res.CorrelationID, res.RTT)
	return res, nil
}

// PingN performs count round trips, each bounded by timeout, and returns
// every result. A failed ping does not stop the series.
func (m *MCU) PingN(ctx context.Context, count int, timeout, interval time.Duration) ([]PingResult, error) {
	if !m.connected {
		return nil, fmt.Errorf("not connected to controller")
	}
	results := make([]PingResult, 0, count)
	for i := 0; i < count; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(interval):
			}
		}
		pctx, cancel := context.WithTimeout(ctx, timeout)
		res, _ := m.Ping(pctx)
		cancel()
		results = append(results, res)
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}

// Stats returns the host-side frame counters
func (m *MCU) Stats() protocol.HostStats {
	if m.transport == nil {
		return protocol.HostStats{}
	}
	return m.transport.Stats()
}

func (m *MCU) handleResponse(resp protocol.Response) {
	glog.Warningf("late or unsolicited response id=%d body=%s", resp.CorrelationID, resp.Body)
}

// Summary aggregates a ping series
type Summary struct {
	Sent     int
	Received int
	Min      time.Duration
	Avg      time.Duration
	Max      time.Duration
}

// Summarize computes round trip statistics over results
func Summarize(results []PingResult) Summary {
	s := Summary{Sent: len(results)}
	var total time.Duration
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if s.Received == 0 || r.RTT < s.Min {
			s.Min = r.RTT
		}
		if r.RTT > s.Max {
			s.Max = r.RTT
		}
		total += r.RTT
		s.Received++
	}
	if s.Received > 0 {
		s.Avg = total / time.Duration(s.Received)
	}
	return s
}

// Loss returns the fraction of pings without an answer
func (s Summary) Loss() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Sent-s.Received) / float64(s.Sent)
}
