// Package firmware wires the serial link, the task queue, the timer
// schedule and the differential drive into the controller's main loop.
// It is hardware independent: targets hand it a UART, two duty pairs and an
// analog scanner.
package firmware

import (
	"math"

	"diffbot/config"
	"diffbot/core"
	"diffbot/protocol"
)

// UART is the serial peripheral as seen from interrupt context
type UART interface {
	protocol.ByteSource
	protocol.ByteSink
}

// Deferred tasks, highest priority first
const (
	TaskService core.TaskID = iota
	TaskScan
	TaskControl
)

// Stats is a snapshot of the firmware counters
type Stats struct {
	protocol.ServiceStats
	BytesIn      uint32
	BytesOut     uint32
	Scans        uint32
	ControlTicks uint32
	MotorFaults  uint32
}

// Firmware is the composition root. SerialInterrupt and Tick run in
// interrupt context; everything else runs from RunTasks.
type Firmware struct {
	cfg *config.Config

	uart      UART
	transport *protocol.Transport
	service   *protocol.Service
	registry  *Registry

	tasks core.TaskQueue
	sched core.Scheduler

	drive     *core.Differential[uint16]
	left      wheel
	right     wheel
	dutyScale float32

	scanTimer    core.Timer
	scanPeriod   uint32
	controlTimer core.Timer
	controlTicks uint32
	ctlPeriod    uint32

	motorFaults uint32
	lastService protocol.ServiceStats
}

// wheel is one closed velocity loop
type wheel struct {
	id      uint8
	pid     *core.PID
	target  int16
	encoder *core.Encoder[uint16]
	out     *core.MotorOutput
}

// New builds the firmware from a validated configuration
func New(cfg *config.Config, uart UART, left, right core.DutyPair, scanner core.AnalogScanner[uint16]) (*Firmware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	leftPID, err := cfg.NewPID()
	if err != nil {
		return nil, err
	}
	rightPID, err := cfg.NewPID()
	if err != nil {
		return nil, err
	}

	fw := &Firmware{
		cfg:        cfg,
		uart:       uart,
		registry:   NewRegistry(),
		drive:      core.NewDifferential(left, right, scanner, cfg.EncoderSeed),
		scanPeriod: core.TimerFromHz(cfg.ScanHz),
		ctlPeriod:  core.TimerFromHz(cfg.ControlHz),
		dutyScale: float32(math.Max(
			math.Abs(float64(cfg.PID.OutMin)),
			math.Abs(float64(cfg.PID.OutMax)),
		)),
	}
	fw.transport, fw.service = protocol.NewLink(cfg.InboundCapacity, cfg.OutboundCapacity)
	fw.left = wheel{id: 0, pid: leftPID, target: cfg.LeftTarget, encoder: fw.drive.Left.Encoder, out: fw.drive.Left.Out}
	fw.right = wheel{id: 1, pid: rightPID, target: cfg.RightTarget, encoder: fw.drive.Right.Encoder, out: fw.drive.Right.Out}

	fw.registry.Register(protocol.BodyPing, HandlePing)

	fw.tasks.Register(TaskService, fw.serviceTask)
	fw.tasks.Register(TaskScan, fw.scanTask)
	fw.tasks.Register(TaskControl, fw.controlTask)

	fw.scanTimer.Handler = fw.scanEvent
	fw.controlTimer.Handler = fw.controlEvent
	return fw, nil
}

// Registry returns the request handler registry
func (fw *Firmware) Registry() *Registry {
	return fw.registry
}

// Drive returns the differential drive
func (fw *Firmware) Drive() *core.Differential[uint16] {
	return fw.drive
}

// SetHaltHandler replaces the fatal UART error handler
func (fw *Firmware) SetHaltHandler(h protocol.HaltHandler) {
	fw.transport.SetHaltHandler(h)
}

// Start arms the scanner, frees both motors and schedules the periodic
// scan and control timers relative to now
func (fw *Firmware) Start(now uint32) error {
	if err := fw.drive.Free(); err != nil {
		return err
	}
	fw.drive.Arm()

	fw.scanTimer.WakeTime = now + fw.scanPeriod
	fw.sched.ScheduleTimer(&fw.scanTimer)
	fw.controlTimer.WakeTime = now + fw.ctlPeriod
	fw.sched.ScheduleTimer(&fw.controlTimer)

	core.DebugAsync("firmware started")
	return nil
}

// SerialInterrupt services the UART. Call it from the RX/TX interrupt.
// Any delimiter read pends the service task, including one followed by the
// start of the next frame.
func (fw *Firmware) SerialInterrupt() {
	seen := fw.transport.Delimiters()
	if fw.transport.ReadNonblocking(fw.uart) || fw.transport.Delimiters() != seen {
		fw.tasks.Pend(TaskService)
	}
	fw.transport.WriteNonblocking(fw.uart)
}

// Tick runs due timers. Call it from the timer interrupt or the main loop.
func (fw *Firmware) Tick(now uint32) {
	fw.sched.ProcessTimers(now)
}

// NextWake returns when Tick next has work to do
func (fw *Firmware) NextWake() (uint32, bool) {
	return fw.sched.NextWake()
}

// RunTasks runs all pending deferred work and reports how many tasks ran
func (fw *Firmware) RunTasks() int {
	return fw.tasks.RunPending()
}

// PendService requests a service pass even without a frame boundary
func (fw *Firmware) PendService() {
	fw.tasks.Pend(TaskService)
}

// SetTargets changes the wheel velocity setpoints, in encoder counts per
// control period. Call it from task context.
func (fw *Firmware) SetTargets(left, right int16) {
	fw.left.target = left
	fw.right.target = right
}

// Targets returns the wheel setpoints
func (fw *Firmware) Targets() (left, right int16) {
	return fw.left.target, fw.right.target
}

// Stats returns a snapshot of the counters
func (fw *Firmware) Stats() Stats {
	return Stats{
		ServiceStats: fw.service.Stats(),
		BytesIn:      fw.transport.BytesIn(),
		BytesOut:     fw.transport.BytesOut(),
		Scans:        fw.drive.Scans(),
		ControlTicks: fw.controlTicks,
		MotorFaults:  fw.motorFaults,
	}
}

func (fw *Firmware) scanEvent(t *core.Timer) uint8 {
	fw.tasks.Pend(TaskScan)
	t.WakeTime += fw.scanPeriod
	return core.SF_RESCHEDULE
}

func (fw *Firmware) controlEvent(t *core.Timer) uint8 {
	fw.tasks.Pend(TaskControl)
	t.WakeTime += fw.ctlPeriod
	return core.SF_RESCHEDULE
}

func (fw *Firmware) serviceTask() {
	fw.service.DrainAndDispatch(fw.registry.Dispatch)
	fw.recordServiceEvents()

	// Kick the transmitter: the TX interrupt only fires while bytes are
	// moving, so the first byte of a response is written from here.
	state := core.DisableInterrupts()
	fw.transport.WriteNonblocking(fw.uart)
	core.RestoreInterrupts(state)
}

func (fw *Firmware) recordServiceEvents() {
	now := core.GetTime()
	cur := fw.service.Stats()
	prev := fw.lastService
	fw.lastService = cur

	if cur.Dispatched != prev.Dispatched {
		core.RecordEvent(core.EvtFrame, 0, now, cur.Dispatched-prev.Dispatched, cur.Dispatched)
	}
	if cur.Malformed != prev.Malformed {
		core.RecordEvent(core.EvtFrameMalformed, 0, now, cur.Malformed-prev.Malformed, cur.Malformed)
	}
	if cur.Oversized != prev.Oversized {
		core.RecordEvent(core.EvtFrameOversized, 0, now, cur.Oversized-prev.Oversized, cur.Oversized)
	}
	if cur.ResponsesDropped != prev.ResponsesDropped {
		core.RecordEvent(core.EvtResponseDropped, 0, now, cur.ResponsesDropped-prev.ResponsesDropped, cur.ResponsesDropped)
		core.DebugAsync("response dropped: outbound queue full")
	}
}

func (fw *Firmware) scanTask() {
	if fw.drive.Update() {
		core.RecordEvent(core.EvtScanDone, 0, core.GetTime(), fw.drive.Scans(), 0)
	}
}

func (fw *Firmware) controlTask() {
	fw.controlTicks++
	fw.stepWheel(&fw.left)
	fw.stepWheel(&fw.right)
}

// stepWheel consumes the wheel's encoder count, steps its controller and
// drives the motor in Free mode with the scaled output
func (fw *Firmware) stepWheel(w *wheel) {
	fb := clampInt16(w.encoder.Read())
	out := w.pid.Step(w.target, fb)
	duty := float32(out) / fw.dutyScale

	core.RecordEvent(core.EvtControlTick, w.id, core.GetTime(), uint32(uint16(fb)), uint32(uint16(out)))
	if err := w.out.Drive(duty, core.ModeFree); err != nil {
		fw.motorFaults++
		core.RecordEvent(core.EvtMotorFault, w.id, core.GetTime(), fw.motorFaults, 0)
		core.DebugAsync("motor drive failed: " + err.Error())
	}
}

func clampInt16(v int64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
