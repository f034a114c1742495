package core

import (
	"math/bits"
	"sync/atomic"
)

// TaskID names a deferred task. Lower ids run first.
type TaskID uint8

// MaxTasks is the number of distinct task ids
const MaxTasks = 32

// TaskQueue is the interrupt-to-task mailbox. Interrupt handlers call Pend,
// which only sets a bit; the main loop calls RunPending to run the work.
// Pending the same task twice before it runs coalesces into one run.
type TaskQueue struct {
	pending atomic.Uint32
	tasks   [MaxTasks]func()
}

// Register installs fn for id, replacing any previous task. Call it before
// interrupts that pend id are enabled.
func (q *TaskQueue) Register(id TaskID, fn func()) {
	if id >= MaxTasks {
		panic("task id out of range")
	}
	q.tasks[id] = fn
}

// Pend marks id runnable. Safe from interrupt context.
func (q *TaskQueue) Pend(id TaskID) {
	bit := uint32(1) << (id % MaxTasks)
	for {
		old := q.pending.Load()
		if old&bit != 0 || q.pending.CompareAndSwap(old, old|bit) {
			return
		}
	}
}

// Pending reports whether any task is waiting
func (q *TaskQueue) Pending() bool {
	return q.pending.Load() != 0
}

// RunPending runs pending tasks, always choosing the lowest pending id
// next, until none remain. Tasks pended while it runs are picked up in the
// same call. It returns the number of tasks run.
func (q *TaskQueue) RunPending() int {
	ran := 0
	for {
		id, ok := q.take()
		if !ok {
			return ran
		}
		if fn := q.tasks[id]; fn != nil {
			fn()
		}
		ran++
	}
}

// take clears and returns the lowest pending id
func (q *TaskQueue) take() (TaskID, bool) {
	for {
		old := q.pending.Load()
		if old == 0 {
			return 0, false
		}
		lowest := old & -old
		if q.pending.CompareAndSwap(old, old&^lowest) {
			return TaskID(bits.TrailingZeros32(lowest)), true
		}
	}
}
