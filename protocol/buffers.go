package protocol

import "sync/atomic"

// QueueMode selects what PushBack does on a full queue
type QueueMode uint8

const (
	// RejectWhenFull refuses the new byte so the producer can retry later
	RejectWhenFull QueueMode = iota
	// OverwriteOldest evicts the oldest byte to keep the stream moving
	OverwriteOldest
)

// ByteQueue is a fixed-capacity ring buffer shared by exactly one producer
// and one consumer, which may run in different interrupt priorities.
//
// head and tail run modulo 2*capacity so a full queue is distinguishable from
// an empty one without a spare slot. Only the consumer advances head, except
// in OverwriteOldest mode where the producer may evict with a CAS; the
// consumer also commits its pop with a CAS and retries if it lost that race.
// An evicting producer may rewrite the slot a consumer is reading, so slots
// are accessed atomically.
type ByteQueue struct {
	buf  []atomic.Uint32
	mode QueueMode

	head    atomic.Uint32 // next slot to read
	tail    atomic.Uint32 // next slot to write
	evicted atomic.Uint32 // bytes lost to OverwriteOldest
}

// NewByteQueue creates a queue holding up to capacity bytes
func NewByteQueue(capacity int, mode QueueMode) *ByteQueue {
	if capacity <= 0 {
		panic("protocol: queue capacity must be positive")
	}
	return &ByteQueue{
		buf:  make([]atomic.Uint32, capacity),
		mode: mode,
	}
}

// Cap returns the queue capacity
func (q *ByteQueue) Cap() int {
	return len(q.buf)
}

// Mode returns the full-queue policy
func (q *ByteQueue) Mode() QueueMode {
	return q.mode
}

func (q *ByteQueue) next(i uint32) uint32 {
	i++
	if i == uint32(2*len(q.buf)) {
		return 0
	}
	return i
}

func (q *ByteQueue) distance(head, tail uint32) int {
	n := int(tail) - int(head)
	if n < 0 {
		n += 2 * len(q.buf)
	}
	return n
}

func (q *ByteQueue) slot(i uint32) int {
	return int(i) % len(q.buf)
}

// PushBack appends a byte. It returns false only for a full RejectWhenFull
// queue; an OverwriteOldest queue always accepts, dropping its oldest byte.
// Producer side only.
func (q *ByteQueue) PushBack(b byte) bool {
	t := q.tail.Load()
	for {
		h := q.head.Load()
		if q.distance(h, t) < len(q.buf) {
			break
		}
		if q.mode == RejectWhenFull {
			return false
		}
		// A consumer pop racing this CAS frees the slot just as well.
		if q.head.CompareAndSwap(h, q.next(h)) {
			q.evicted.Add(1)
			break
		}
	}
	q.buf[q.slot(t)].Store(uint32(b))
	q.tail.Store(q.next(t))
	return true
}

// PopFront removes and returns the oldest byte. Consumer side only.
func (q *ByteQueue) PopFront() (byte, bool) {
	for {
		h := q.head.Load()
		if h == q.tail.Load() {
			return 0, false
		}
		b := byte(q.buf[q.slot(h)].Load())
		if q.head.CompareAndSwap(h, q.next(h)) {
			return b, true
		}
	}
}

// PeekFront returns the oldest byte without removing it. Consumer side only.
func (q *ByteQueue) PeekFront() (byte, bool) {
	h := q.head.Load()
	if h == q.tail.Load() {
		return 0, false
	}
	return byte(q.buf[q.slot(h)].Load()), true
}

// Drain discards up to n bytes from the front and returns how many were
// removed. Consumer side only.
func (q *ByteQueue) Drain(n int) int {
	removed := 0
	for removed < n {
		if _, ok := q.PopFront(); !ok {
			break
		}
		removed++
	}
	return removed
}

// Len returns the number of queued bytes
func (q *ByteQueue) Len() int {
	return q.distance(q.head.Load(), q.tail.Load())
}

// Free returns the number of bytes that can be pushed without rejection
func (q *ByteQueue) Free() int {
	return len(q.buf) - q.Len()
}

// IsEmpty returns true if the queue holds no bytes
func (q *ByteQueue) IsEmpty() bool {
	return q.head.Load() == q.tail.Load()
}

// Evicted returns how many bytes OverwriteOldest has dropped so far
func (q *ByteQueue) Evicted() uint32 {
	return q.evicted.Load()
}

// Split hands out the two roles of the queue. Each handle must stay with a
// single execution context for the lifetime of the queue.
func (q *ByteQueue) Split() (QueueProducer, QueueConsumer) {
	return QueueProducer{q: q}, QueueConsumer{q: q}
}

// QueueProducer is the write-only half of a ByteQueue
type QueueProducer struct {
	q *ByteQueue
}

func (p QueueProducer) PushBack(b byte) bool { return p.q.PushBack(b) }
func (p QueueProducer) Len() int             { return p.q.Len() }
func (p QueueProducer) Free() int            { return p.q.Free() }
func (p QueueProducer) Cap() int             { return p.q.Cap() }

// QueueConsumer is the read-only half of a ByteQueue
type QueueConsumer struct {
	q *ByteQueue
}

func (c QueueConsumer) PopFront() (byte, bool)  { return c.q.PopFront() }
func (c QueueConsumer) PeekFront() (byte, bool) { return c.q.PeekFront() }
func (c QueueConsumer) Drain(n int) int         { return c.q.Drain(n) }
func (c QueueConsumer) Len() int                { return c.q.Len() }
func (c QueueConsumer) IsEmpty() bool           { return c.q.IsEmpty() }
