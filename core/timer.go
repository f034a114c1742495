package core

// Timer frequencies for common MCUs
const (
	TimerFreq = 1000000 // 1MHz, microsecond ticks
)

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}

// TimerFromHz returns the period of a rate in timer ticks
func TimerFromHz(hz uint32) uint32 {
	if hz == 0 {
		return 0
	}
	return TimerFreq / hz
}
