package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsDueTimersInOrder(t *testing.T) {
	var s Scheduler
	var order []int

	mk := func(id int, wake uint32) *Timer {
		return &Timer{WakeTime: wake, Handler: func(*Timer) uint8 {
			order = append(order, id)
			return SF_DONE
		}}
	}
	s.ScheduleTimer(mk(3, 300))
	s.ScheduleTimer(mk(1, 100))
	s.ScheduleTimer(mk(2, 200))
	s.ScheduleTimer(mk(4, 200))

	require.Equal(t, 0, s.ProcessTimers(50))
	require.Equal(t, 3, s.ProcessTimers(200))
	require.Equal(t, []int{1, 2, 4}, order)

	wake, ok := s.NextWake()
	require.True(t, ok)
	require.Equal(t, uint32(300), wake)

	require.Equal(t, 1, s.ProcessTimers(1000))
	_, ok = s.NextWake()
	require.False(t, ok)
}

func TestSchedulerReschedule(t *testing.T) {
	var s Scheduler
	fired := 0
	timer := &Timer{WakeTime: 100, Handler: func(t *Timer) uint8 {
		fired++
		t.WakeTime += 100
		return SF_RESCHEDULE
	}}
	s.ScheduleTimer(timer)

	s.ProcessTimers(100)
	s.ProcessTimers(150)
	s.ProcessTimers(200)
	require.Equal(t, 2, fired)

	// Catches up on missed periods in one call.
	s.ProcessTimers(500)
	require.Equal(t, 5, fired)
}

func TestSchedulerWraparound(t *testing.T) {
	var s Scheduler
	var order []string
	s.ScheduleTimer(&Timer{WakeTime: 10, Handler: func(*Timer) uint8 {
		order = append(order, "after wrap")
		return SF_DONE
	}})
	s.ScheduleTimer(&Timer{WakeTime: 0xFFFFFFF0, Handler: func(*Timer) uint8 {
		order = append(order, "before wrap")
		return SF_DONE
	}})

	// 0xFFFFFFF0 wakes first even though it is numerically larger.
	s.ProcessTimers(0xFFFFFFF8)
	require.Equal(t, []string{"before wrap"}, order)
	s.ProcessTimers(20)
	require.Equal(t, []string{"before wrap", "after wrap"}, order)
}

func TestSchedulerCancel(t *testing.T) {
	var s Scheduler
	fired := false
	timer := &Timer{WakeTime: 10, Handler: func(*Timer) uint8 {
		fired = true
		return SF_DONE
	}}
	s.ScheduleTimer(timer)
	s.CancelTimer(timer)
	s.ProcessTimers(100)
	require.False(t, fired)
}

func TestTimerConversions(t *testing.T) {
	require.Equal(t, uint32(1000), TimerFromHz(1000))
	require.Equal(t, uint32(0), TimerFromHz(0))
	require.Equal(t, uint32(250), TimerFromUS(250))
	require.Equal(t, uint32(4000000000), TimerToUS(4000000000))

	SetTime(1234)
	require.Equal(t, uint32(1234), GetTime())
}
