package core

// ScanState is the state of the asynchronous analog scan
type ScanState uint8

const (
	// ScanUninitialized: the scanner has not been armed; Poll does nothing.
	ScanUninitialized ScanState = iota
	// ScanIdle: armed, the next Poll starts a scan.
	ScanIdle
	// ScanScanning: a transfer is in flight.
	ScanScanning
)

func (s ScanState) String() string {
	switch s {
	case ScanUninitialized:
		return "uninitialized"
	case ScanIdle:
		return "idle"
	case ScanScanning:
		return "scanning"
	default:
		return "unknown"
	}
}

// SamplePair is one reading of both encoder channels of a wheel
type SamplePair[S Sample] struct {
	Ch1 S
	Ch2 S
}

// DifferentialSamples is one completed scan of all four channels
type DifferentialSamples[S Sample] struct {
	Left  SamplePair[S]
	Right SamplePair[S]
}

// AnalogScanner starts a background conversion of all four channels and
// reports when it has finished. PollDone must not block.
type AnalogScanner[S Sample] interface {
	StartScan()
	PollDone() (DifferentialSamples[S], bool)
}

// Wheel is one side of the drive
type Wheel[S Sample] struct {
	Out     *MotorOutput
	Encoder *Encoder[S]
}

// Differential owns both wheels and the scan state machine that feeds
// their encoders
type Differential[S Sample] struct {
	Left  Wheel[S]
	Right Wheel[S]

	input AnalogScanner[S]
	state ScanState
	scans uint32
}

// NewDifferential builds a drive in the Uninitialized state. seed is the
// initial threshold of every encoder channel.
func NewDifferential[S Sample](left, right DutyPair, input AnalogScanner[S], seed S) *Differential[S] {
	return &Differential[S]{
		Left:  Wheel[S]{Out: NewMotorOutput(left), Encoder: NewEncoder(seed)},
		Right: Wheel[S]{Out: NewMotorOutput(right), Encoder: NewEncoder(seed)},
		input: input,
	}
}

// Arm moves an uninitialized scanner to Idle. It has no effect in any
// other state.
func (d *Differential[S]) Arm() {
	if d.state == ScanUninitialized {
		d.state = ScanIdle
	}
}

// State returns the scan state
func (d *Differential[S]) State() ScanState {
	return d.state
}

// Scans returns the number of completed scans
func (d *Differential[S]) Scans() uint32 {
	return d.scans
}

// Poll advances the scan state machine. A completed scan is returned
// exactly once and the next scan is started before returning.
func (d *Differential[S]) Poll() (DifferentialSamples[S], bool) {
	switch d.state {
	case ScanIdle:
		d.input.StartScan()
		d.state = ScanScanning
	case ScanScanning:
		samples, ok := d.input.PollDone()
		if !ok {
			break
		}
		d.input.StartScan()
		d.scans++
		return samples, true
	}
	return DifferentialSamples[S]{}, false
}

// Update polls the scanner and feeds any completed samples to the
// encoders. It reports whether samples were consumed.
func (d *Differential[S]) Update() bool {
	samples, ok := d.Poll()
	if !ok {
		return false
	}
	d.Left.Encoder.Update(samples.Left.Ch1, samples.Left.Ch2)
	d.Right.Encoder.Update(samples.Right.Ch1, samples.Right.Ch2)
	return true
}

// Free lets both wheels coast
func (d *Differential[S]) Free() error {
	if err := d.Left.Out.Free(); err != nil {
		return err
	}
	return d.Right.Out.Free()
}

// Brake brakes both wheels
func (d *Differential[S]) Brake() error {
	if err := d.Left.Out.Brake(); err != nil {
		return err
	}
	return d.Right.Out.Brake()
}
