//go:build rp2040

package main

import (
	"device/rp"
	"machine"

	"diffbot/core"
)

// scanChannels is the number of external ADC inputs sampled per scan:
// left ch1, left ch2, right ch1, right ch2 on ADC0..ADC3 (GPIO26..29)
const scanChannels = 4

// adcScanner implements core.AnalogScanner with the RP2040 ADC in
// round-robin mode. Each scan converts the four inputs into the FIFO; the
// completed set is copied into the front buffer while the next scan fills
// the FIFO again.
type adcScanner struct {
	buffers [2][scanChannels]uint16
	front   int
	started bool
}

func newADCScanner() *adcScanner {
	machine.InitADC()
	for _, pin := range []machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3} {
		adc := machine.ADC{Pin: pin}
		adc.Configure(machine.ADCConfig{})
	}

	// FIFO on, no DMA, 12-bit results
	rp.ADC.FCS.Set(rp.ADC_FCS_EN)
	return &adcScanner{}
}

// StartScan drains anything left in the FIFO, resets the round robin to
// ADC0 and starts free-running conversions.
func (s *adcScanner) StartScan() {
	rp.ADC.CS.ClearBits(rp.ADC_CS_START_MANY)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
	}
	for s.fifoLevel() > 0 {
		rp.ADC.FIFO.Get()
	}

	rp.ADC.CS.ReplaceBits(0, rp.ADC_CS_AINSEL_Msk, 0)
	rp.ADC.CS.ReplaceBits((1<<scanChannels-1)<<rp.ADC_CS_RROBIN_Pos, rp.ADC_CS_RROBIN_Msk, 0)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_MANY)
	s.started = true
}

// PollDone returns the next completed scan without blocking
func (s *adcScanner) PollDone() (core.DifferentialSamples[uint16], bool) {
	if !s.started || s.fifoLevel() < scanChannels {
		return core.DifferentialSamples[uint16]{}, false
	}
	rp.ADC.CS.ClearBits(rp.ADC_CS_START_MANY)
	s.started = false

	back := 1 - s.front
	for i := range s.buffers[back] {
		// Scale 12-bit results to the full 16-bit sample range
		s.buffers[back][i] = uint16(rp.ADC.FIFO.Get()&0xFFF) << 4
	}
	s.front = back

	b := &s.buffers[s.front]
	return core.DifferentialSamples[uint16]{
		Left:  core.SamplePair[uint16]{Ch1: b[0], Ch2: b[1]},
		Right: core.SamplePair[uint16]{Ch1: b[2], Ch2: b[3]},
	}, true
}

func (s *adcScanner) fifoLevel() uint32 {
	return (rp.ADC.FCS.Get() & rp.ADC_FCS_LEVEL_Msk) >> rp.ADC_FCS_LEVEL_Pos
}
