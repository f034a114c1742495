package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps timers sorted by wake time. A handler that returns
// SF_RESCHEDULE must advance its own WakeTime first.
type Scheduler struct {
	timerList   *Timer
	currentTime uint32
}

// ScheduleTimer adds a timer to the schedule
func (s *Scheduler) ScheduleTimer(t *Timer) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	t.Next = nil
	s.insertTimer(t)
}

// insertTimer inserts a timer in sorted order by WakeTime.
// Timers with equal wake times run in insertion order.
func (s *Scheduler) insertTimer(t *Timer) {
	if s.timerList == nil || before(t.WakeTime, s.timerList.WakeTime) {
		t.Next = s.timerList
		s.timerList = t
		return
	}

	current := s.timerList
	for current.Next != nil && !before(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// CancelTimer removes t if it is scheduled
func (s *Scheduler) CancelTimer(t *Timer) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	for p := &s.timerList; *p != nil; p = &(*p).Next {
		if *p == t {
			*p = t.Next
			t.Next = nil
			return
		}
	}
}

// NextWake returns the wake time of the earliest timer
func (s *Scheduler) NextWake() (uint32, bool) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	if s.timerList == nil {
		return 0, false
	}
	return s.timerList.WakeTime, true
}

// ProcessTimers runs every timer due at now and returns how many ran
func (s *Scheduler) ProcessTimers(now uint32) int {
	s.currentTime = now
	return s.TimerDispatch()
}

// TimerDispatch processes due timers
func (s *Scheduler) TimerDispatch() int {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	ran := 0
	for s.timerList != nil && !before(s.currentTime, s.timerList.WakeTime) {
		timer := s.timerList
		s.timerList = timer.Next
		timer.Next = nil // Clear Next pointer to avoid circular references

		result := timer.Handler(timer)
		ran++

		if result == SF_RESCHEDULE {
			s.insertTimer(timer)
		}
	}
	return ran
}

// before compares tick counts across wraparound
func before(a, b uint32) bool {
	return int32(a-b) < 0
}
