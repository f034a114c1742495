package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	"diffbot/host/mcu"
	"diffbot/protocol"
)

// ReportTopic is the topic link reports are published on
const ReportTopic = "link/report"

// Pinger is the part of the controller connection the monitor uses
type Pinger interface {
	Ping(ctx context.Context) (mcu.PingResult, error)
	Stats() protocol.HostStats
}

// Report is one link health sample
type Report struct {
	Time      time.Time `json:"time"`
	Seq       uint64    `json:"seq"`
	OK        bool      `json:"ok"`
	RTTMicros int64     `json:"rtt_us,omitempty"`
	Error     string    `json:"error,omitempty"`
	Sent      uint64    `json:"sent"`
	Lost      uint64    `json:"lost"`
	Received  uint32    `json:"received"`
	Malformed uint32    `json:"malformed"`
	Unmatched uint32    `json:"unmatched"`
}

// Monitor pings the controller periodically and publishes a Report after
// every ping
type Monitor struct {
	Pinger    Pinger
	Publisher Publisher
	Interval  time.Duration
	Timeout   time.Duration

	seq  uint64
	lost uint64
	now  func() time.Time
}

// NewMonitor creates a monitor with a one second interval
func NewMonitor(p Pinger, pub Publisher) *Monitor {
	return &Monitor{
		Pinger:    p,
		Publisher: pub,
		Interval:  time.Second,
		Timeout:   500 * time.Millisecond,
		now:       time.Now,
	}
}

// Sample pings once and publishes the result
func (m *Monitor) Sample(ctx context.Context) (Report, error) {
	pctx, cancel := context.WithTimeout(ctx, m.Timeout)
	res, err := m.Pinger.Ping(pctx)
	cancel()

	m.seq++
	r := Report{Time: m.now(), Seq: m.seq, Sent: m.seq}
	if err != nil {
		m.lost++
		r.Error = err.Error()
	} else {
		r.OK = true
		r.RTTMicros = res.RTT.Microseconds()
	}
	r.Lost = m.lost
	stats := m.Pinger.Stats()
	r.Received, r.Malformed, r.Unmatched = stats.Received, stats.Malformed, stats.Unmatched

	payload, err := json.Marshal(r)
	if err != nil {
		return r, err
	}
	return r, m.Publisher.Publish(ReportTopic, payload)
}

// Run samples every Interval until ctx is done. Publish failures are
// logged and do not stop the monitor.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		if r, err := m.Sample(ctx); err != nil {
			glog.Warningf("report %d: %v", r.Seq, err)
		} else if !r.OK {
			glog.V(1).Infof("ping %d failed: %s", r.Seq, r.Error)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
