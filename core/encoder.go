package core

// Sample is a raw analog reading type
type Sample interface {
	~int8 | ~int16 | ~int32 | ~uint8 | ~uint16 | ~uint32
}

func average[S Sample](a, b S) S {
	return S((int64(a) + int64(b)) / 2)
}

// MinMax tracks the observed range of one analog channel and classifies
// samples against its midpoint. The range only ever widens.
type MinMax[S Sample] struct {
	min  S
	max  S
	zero S
}

// NewMinMax seeds the range with a single point
func NewMinMax[S Sample](zero S) MinMax[S] {
	return MinMax[S]{min: zero, max: zero, zero: zero}
}

// Update widens the range to include v if needed and reports whether v is
// above the threshold
func (m *MinMax[S]) Update(v S) bool {
	if v < m.min || v > m.max {
		if v < m.min {
			m.min = v
		}
		if v > m.max {
			m.max = v
		}
		m.zero = average(m.min, m.max)
	}
	return v > m.zero
}

// Threshold returns the current midpoint
func (m *MinMax[S]) Threshold() S { return m.zero }

// Range returns the observed bounds
func (m *MinMax[S]) Range() (min, max S) { return m.min, m.max }

// Encoder recovers rotation from two phase-shifted analog channels. On each
// rising edge of channel 1 the level of channel 2 gives the direction.
type Encoder[S Sample] struct {
	in1 MinMax[S]
	in2 MinMax[S]

	prev    bool
	delta   int64
	samples uint64
}

// NewEncoder creates an encoder whose channels both start at zero
func NewEncoder[S Sample](zero S) *Encoder[S] {
	return &Encoder[S]{
		in1: NewMinMax(zero),
		in2: NewMinMax(zero),
	}
}

// Update feeds one sample pair
func (e *Encoder[S]) Update(ch1, ch2 S) {
	e.samples++
	next := e.in1.Update(ch1)
	if !e.prev && next {
		if e.in2.Update(ch2) {
			e.delta++
		} else {
			e.delta--
		}
	}
	e.prev = next
}

// Read returns the accumulated count and resets it
func (e *Encoder[S]) Read() int64 {
	d := e.delta
	e.delta = 0
	return d
}

// Peek returns the accumulated count
func (e *Encoder[S]) Peek() int64 {
	return e.delta
}

// Samples returns how many pairs have been fed
func (e *Encoder[S]) Samples() uint64 {
	return e.samples
}

// Thresholds returns the current midpoint of each channel
func (e *Encoder[S]) Thresholds() (ch1, ch2 S) {
	return e.in1.Threshold(), e.in2.Threshold()
}
