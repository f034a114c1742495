package sim

import (
	"math"
	"sync"

	"diffbot/core"
)

// Plant parameters. A wheel at full duty advances MaxOmega radians of
// encoder phase per scan; one full turn of phase is one encoder count.
// MaxOmega stays under a sixth of a turn so channel 2 is still near its
// peak when the first sample after a channel 1 crossing is taken.
const (
	MaxOmega  = 0.8
	Midpoint  = 32768
	Amplitude = 20000
	// Fraction of the velocity error closed on every scan
	Response = 0.2
)

// wheelModel is a first order motor with a sine/cosine encoder
type wheelModel struct {
	duty  float64
	omega float64
	phase float64
}

func (w *wheelModel) advance() core.SamplePair[uint16] {
	w.omega += (w.duty*MaxOmega - w.omega) * Response
	w.phase = math.Mod(w.phase+w.omega, 2*math.Pi)
	return core.SamplePair[uint16]{
		Ch1: level(math.Sin(w.phase)),
		Ch2: level(math.Cos(w.phase)),
	}
}

func level(v float64) uint16 {
	return uint16(Midpoint + Amplitude*v)
}

// Plant simulates both wheels. It is the scanner and both duty pairs the
// firmware drives.
type Plant struct {
	mu      sync.Mutex
	left    wheelModel
	right   wheelModel
	pending bool
}

// NewPlant creates a plant with both wheels at rest
func NewPlant() *Plant {
	return &Plant{}
}

// LeftOutput returns the left wheel's duty pair
func (p *Plant) LeftOutput() core.DutyPair { return dutyPair{p, &p.left} }

// RightOutput returns the right wheel's duty pair
func (p *Plant) RightOutput() core.DutyPair { return dutyPair{p, &p.right} }

// StartScan begins a conversion
func (p *Plant) StartScan() {
	p.mu.Lock()
	p.pending = true
	p.mu.Unlock()
}

// PollDone completes the pending conversion, advancing both wheels by one
// scan period
func (p *Plant) PollDone() (core.DifferentialSamples[uint16], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pending {
		return core.DifferentialSamples[uint16]{}, false
	}
	p.pending = false
	return core.DifferentialSamples[uint16]{
		Left:  p.left.advance(),
		Right: p.right.advance(),
	}, true
}

// Speeds returns each wheel's velocity in encoder counts per scan
func (p *Plant) Speeds() (left, right float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.left.omega / (2 * math.Pi), p.right.omega / (2 * math.Pi)
}

// Duties returns the effective duty applied to each wheel
func (p *Plant) Duties() (left, right float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.left.duty, p.right.duty
}

type dutyPair struct {
	p *Plant
	w *wheelModel
}

// SetDuty applies the bridge inputs. The second input drives forward.
func (d dutyPair) SetDuty(duty1, duty2 float32) error {
	d.p.mu.Lock()
	d.w.duty = float64(duty2 - duty1)
	d.p.mu.Unlock()
	return nil
}
