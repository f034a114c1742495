package protocol

import (
	"errors"
	"sync/atomic"
)

// ErrWouldBlock is returned by a ByteSource or ByteSink that cannot make
// progress right now. Any other error from the hardware is fatal.
var ErrWouldBlock = errors.New("would block")

// ByteSource is the receive side of the serial peripheral
type ByteSource interface {
	// TryRead returns the next received byte, ErrWouldBlock when the
	// receive register is empty, or a fatal error
	TryRead() (byte, error)
}

// ByteSink is the transmit side of the serial peripheral
type ByteSink interface {
	// TryWrite hands b to the transmit register, returning ErrWouldBlock
	// when it is busy, or a fatal error
	TryWrite(b byte) error
}

// HaltHandler is called with the hardware error that desynchronized the link.
// It must not return.
type HaltHandler func(err error)

// Transport moves bytes between the serial peripheral and the link queues.
// It runs in interrupt context: every call is bounded by the queue sizes and
// the peripheral FIFO depth, and it never blocks or allocates.
type Transport struct {
	requests  QueueProducer // inbound, overwrite-oldest
	responses QueueConsumer // outbound, reject-when-full

	halt HaltHandler

	bytesIn    uint32 // atomic
	bytesOut   uint32 // atomic
	delimiters uint32 // atomic
}

func defaultHalt(err error) {
	panic("serial link halted: " + err.Error())
}

// SetHaltHandler replaces the fatal error handler (panic by default)
func (t *Transport) SetHaltHandler(h HaltHandler) {
	if h == nil {
		h = defaultHalt
	}
	t.halt = h
}

// ReadNonblocking drains the receive register into the inbound queue. It
// returns true iff the last byte queued was the frame delimiter. A read that
// ends mid-frame may still have completed earlier frames; Delimiters tells
// the two apart.
func (t *Transport) ReadNonblocking(src ByteSource) bool {
	boundary := false
	for {
		b, err := src.TryRead()
		if err != nil {
			if err == ErrWouldBlock {
				break
			}
			t.halt(err)
			return false
		}
		t.requests.PushBack(b)
		atomic.AddUint32(&t.bytesIn, 1)
		boundary = b == Delimiter
		if boundary {
			atomic.AddUint32(&t.delimiters, 1)
		}
	}
	return boundary
}

// WriteNonblocking feeds queued response bytes to the transmit register until
// the queue empties or the register reports ErrWouldBlock. A byte leaves the
// queue only after the sink accepted it.
func (t *Transport) WriteNonblocking(dst ByteSink) {
	for {
		b, ok := t.responses.PeekFront()
		if !ok {
			return
		}
		if err := dst.TryWrite(b); err != nil {
			if err == ErrWouldBlock {
				return
			}
			t.halt(err)
			return
		}
		t.responses.PopFront()
		atomic.AddUint32(&t.bytesOut, 1)
	}
}

// Pending returns the number of response bytes waiting for the transmitter
func (t *Transport) Pending() int {
	return t.responses.Len()
}

// BytesIn returns the number of bytes received so far
func (t *Transport) BytesIn() uint32 {
	return atomic.LoadUint32(&t.bytesIn)
}

// Delimiters returns the number of frame delimiters received so far
func (t *Transport) Delimiters() uint32 {
	return atomic.LoadUint32(&t.delimiters)
}

// BytesOut returns the number of bytes transmitted so far
func (t *Transport) BytesOut() uint32 {
	return atomic.LoadUint32(&t.bytesOut)
}
