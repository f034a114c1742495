//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// ErrNoDevice is returned by Open when the config names no device
var ErrNoDevice = errors.New("no serial device given")

// NativePort is the controller's USB CDC or UART link on this machine
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens the controller's serial device. ReadTimeout bounds each Read so
// the reader goroutine can notice a closed link.
func Open(cfg *Config) (Port, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, ErrNoDevice
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open controller link %s: %w", cfg.Device, err)
	}

	return &NativePort{port: port, cfg: cfg}, nil
}

// Read returns raw link bytes; frames may span calls
func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write sends encoded frames to the controller
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close releases the device. Closing twice is harmless.
func (p *NativePort) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

// Flush discards unread input so a fresh exchange starts on a frame
// boundary
func (p *NativePort) Flush() error {
	return p.port.Flush()
}
