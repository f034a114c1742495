package core

import "strconv"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures an event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	ID        uint8  // Wheel, task or queue the event belongs to
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtFrame           = 1 // request frame dispatched
	EvtFrameMalformed  = 2 // frame failed to decode
	EvtFrameOversized  = 3 // frame discarded for length
	EvtResponseDropped = 4 // no outbound room for a response
	EvtScanDone        = 5 // analog scan completed
	EvtControlTick     = 6 // wheel controller stepped
	EvtMotorFault      = 7 // PWM write failed
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event ring buffer (non-blocking, for post-mortem)
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8        // Next write position
	timingEnabled  bool  = true // Always capture events

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugEnabled && debugChan != nil {
		select {
		case debugChan <- msg:
		default:
			// Channel full, drop message (non-blocking)
		}
	}
}

// SetTimingEnabled turns event capture on or off. Capture is on by default.
func SetTimingEnabled(enabled bool) {
	timingEnabled = enabled
}

// RecordEvent captures an event in the ring buffer.
// Always non-blocking and allocation free.
func RecordEvent(eventType, id uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		ID:        id,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// TimingEvents returns the recorded events, oldest first
func TimingEvents() []TimingEvent {
	events := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

func eventName(eventType uint8) string {
	switch eventType {
	case EvtFrame:
		return "FRAME"
	case EvtFrameMalformed:
		return "FRAME_BAD"
	case EvtFrameOversized:
		return "FRAME_LONG"
	case EvtResponseDropped:
		return "RESP_DROP!"
	case EvtScanDone:
		return "SCAN"
	case EvtControlTick:
		return "CONTROL"
	case EvtMotorFault:
		return "MOTOR_FAULT!"
	default:
		return "UNKNOWN"
	}
}

// DumpTimingRing outputs the event ring buffer (call on shutdown/error)
// This should be called after stopping time-critical code
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		debugPrintln("[TIMING] " + eventName(evt.EventType) +
			" id=" + strconv.Itoa(int(evt.ID)) +
			" clock=" + strconv.FormatUint(uint64(evt.Clock), 10) +
			" v1=" + strconv.FormatUint(uint64(evt.Value1), 10) +
			" v2=" + strconv.FormatUint(uint64(evt.Value2), 10))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
}
