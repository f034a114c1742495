// Package protocol implements the serial request/response link between the
// host and the drive controller: bounded byte queues, COBS framing, the
// message codec, and the interrupt-side Transport / task-side Service pair.
package protocol

// Version represents the diffbot firmware version
const Version = "0.1.0"

// Link constants
const (
	// Delimiter terminates every frame on the wire. COBS stuffing guarantees
	// it never appears inside a frame.
	Delimiter = 0x00

	FrameMax = 512 // Maximum stuffed frame size, delimiter included

	InboundCapacity  = 512 // Inbound queue (overwrite-oldest)
	OutboundCapacity = 512 // Outbound queue (reject-when-full)
)
