//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"

	"diffbot/protocol"
)

var errUARTFault = errors.New("uart receive fault")

// rxErrors are the sticky receive status flags that mean bytes were lost
const rxErrors = rp.UART0_UARTRSR_OE | rp.UART0_UARTRSR_BE | rp.UART0_UARTRSR_FE

// serialPort adapts a TinyGo UART to the non-blocking byte source and sink
// the link expects. Received bytes are buffered by the machine package's RX
// interrupt; transmission writes the data register directly while the TX
// FIFO has room.
type serialPort struct {
	uart *machine.UART
}

func newSerialPort(uart *machine.UART, baud uint32, tx, rx machine.Pin) (*serialPort, error) {
	err := uart.Configure(machine.UARTConfig{
		BaudRate: baud,
		TX:       tx,
		RX:       rx,
	})
	if err != nil {
		return nil, err
	}
	return &serialPort{uart: uart}, nil
}

// TryRead returns the next buffered byte or ErrWouldBlock
func (p *serialPort) TryRead() (byte, error) {
	if p.uart.Bus.UARTRSR.Get()&rxErrors != 0 {
		return 0, errUARTFault
	}
	if p.uart.Buffered() == 0 {
		return 0, protocol.ErrWouldBlock
	}
	return p.uart.ReadByte()
}

// TryWrite pushes b into the TX FIFO or returns ErrWouldBlock when full
func (p *serialPort) TryWrite(b byte) error {
	if p.uart.Bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFF) {
		return protocol.ErrWouldBlock
	}
	p.uart.Bus.UARTDR.Set(uint32(b))
	return nil
}
