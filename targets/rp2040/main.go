//go:build rp2040

package main

import (
	"machine"
	"time"

	"diffbot/config"
	"diffbot/core"
	"diffbot/firmware"
)

// Motor wiring: each H-bridge uses both channels of one PWM slice
const (
	leftPin1  core.PWMPin = 2
	leftPin2  core.PWMPin = 3
	rightPin1 core.PWMPin = 4
	rightPin2 core.PWMPin = 5
)

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	core.SetDebugWriter(func(s string) { println(s) })
	core.InitAsyncDebug()

	cfg := config.Default()

	uart, err := newSerialPort(machine.UART0, cfg.Baud, machine.UART0_TX_PIN, machine.UART0_RX_PIN)
	if err != nil {
		halt(err)
	}

	pwm := NewRP2040PWMDriver()
	cycle := core.TimerFromHz(cfg.PWMHz)
	left, err := core.NewTwoPinOutput(pwm, leftPin1, leftPin2, cycle)
	if err != nil {
		halt(err)
	}
	right, err := core.NewTwoPinOutput(pwm, rightPin1, rightPin2, cycle)
	if err != nil {
		halt(err)
	}

	fw, err := firmware.New(cfg, uart, left, right, newADCScanner())
	if err != nil {
		halt(err)
	}
	fw.SetHaltHandler(func(err error) {
		left.Disable()
		right.Disable()
		halt(err)
	})

	UpdateSystemTime()
	if err := fw.Start(core.GetTime()); err != nil {
		halt(err)
	}

	for {
		fw.SerialInterrupt()

		UpdateSystemTime()
		fw.Tick(core.GetTime())

		fw.RunTasks()

		// Yield to the debug writer and the machine package's goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// halt logs the reason, dumps the event ring and parks the controller
func halt(err error) {
	core.SetDebugEnabled(true)
	core.DebugPrintln("halt: " + err.Error())
	core.DumpTimingRing()
	for {
		time.Sleep(time.Second)
	}
}
