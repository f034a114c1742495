// Package sim runs the controller firmware on the host against a simulated
// drive, so the link and the control loops can be exercised without
// hardware.
package sim

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"diffbot/config"
	"diffbot/core"
	"diffbot/firmware"
	"diffbot/protocol"
)

// StepInterval is the main loop period of Run
const StepInterval = time.Millisecond

func init() {
	// The event ring is process-wide and several simulated controllers may
	// run at once.
	core.SetTimingEnabled(false)
}

// Device is a simulated controller attached to one byte stream
type Device struct {
	fw    *firmware.Firmware
	plant *Plant
	uart  *pipeUART
	conn  io.ReadWriteCloser

	haltErr error
}

// New builds a simulated controller speaking on conn
func New(cfg *config.Config, conn io.ReadWriteCloser) (*Device, error) {
	plant := NewPlant()
	uart := &pipeUART{}
	fw, err := firmware.New(cfg, uart, plant.LeftOutput(), plant.RightOutput(), plant)
	if err != nil {
		return nil, err
	}
	d := &Device{fw: fw, plant: plant, uart: uart, conn: conn}
	fw.SetHaltHandler(func(err error) {
		d.haltErr = err
	})
	return d, nil
}

// Firmware returns the simulated firmware
func (d *Device) Firmware() *firmware.Firmware {
	return d.fw
}

// Plant returns the simulated drive
func (d *Device) Plant() *Plant {
	return d.plant
}

// Step runs one main loop pass at time now, in timer ticks
func (d *Device) Step(now uint32) error {
	d.fw.SerialInterrupt()
	d.fw.Tick(now)
	d.fw.RunTasks()
	d.fw.SerialInterrupt()
	if d.haltErr != nil {
		return fmt.Errorf("firmware halted: %w", d.haltErr)
	}
	if out := d.uart.takeTX(); len(out) > 0 {
		if _, err := d.conn.Write(out); err != nil {
			return err
		}
	}
	return nil
}

// Run reads conn and steps the firmware in real time until ctx is done or
// conn fails
func (d *Device) Run(ctx context.Context) error {
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := d.conn.Read(buf)
			if n > 0 {
				d.uart.feed(buf[:n])
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	start := time.Now()
	if err := d.fw.Start(0); err != nil {
		return err
	}
	glog.V(1).Info("simulated controller running")

	ticker := time.NewTicker(StepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err == io.EOF {
				return nil
			}
			return err
		case <-ticker.C:
		}
		// Timer ticks are microseconds and wrap like the hardware counter.
		now := uint32(time.Since(start).Microseconds())
		if err := d.Step(now); err != nil {
			return err
		}
	}
}

// pipeUART buffers bytes between the host stream and the firmware
type pipeUART struct {
	mu sync.Mutex
	rx []byte
	tx []byte
}

func (u *pipeUART) feed(p []byte) {
	u.mu.Lock()
	u.rx = append(u.rx, p...)
	u.mu.Unlock()
}

func (u *pipeUART) takeTX() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := u.tx
	u.tx = nil
	return out
}

func (u *pipeUART) TryRead() (byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.rx) == 0 {
		return 0, protocol.ErrWouldBlock
	}
	b := u.rx[0]
	u.rx = u.rx[1:]
	return b, nil
}

func (u *pipeUART) TryWrite(b byte) error {
	u.mu.Lock()
	u.tx = append(u.tx, b)
	u.mu.Unlock()
	return nil
}
