package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeUART is an in-memory serial peripheral. rx is drained by TryRead;
// TryWrite accepts up to txRoom bytes before reporting ErrWouldBlock.
type fakeUART struct {
	rx      []byte
	rxErr   error
	tx      []byte
	txRoom  int
	txErr   error
	txCalls int
}

func (u *fakeUART) TryRead() (byte, error) {
	if len(u.rx) == 0 {
		if u.rxErr != nil {
			return 0, u.rxErr
		}
		return 0, ErrWouldBlock
	}
	b := u.rx[0]
	u.rx = u.rx[1:]
	return b, nil
}

func (u *fakeUART) TryWrite(b byte) error {
	u.txCalls++
	if u.txErr != nil {
		return u.txErr
	}
	if u.txRoom == 0 {
		return ErrWouldBlock
	}
	u.txRoom--
	u.tx = append(u.tx, b)
	return nil
}

func TestTransportReadSignalsBoundary(t *testing.T) {
	testCases := []struct {
		name       string
		rx         []byte
		boundary   bool
		delimiters uint32
	}{
		{"nothing", nil, false, 0},
		{"partial frame", []byte{0x02, 0x07}, false, 0},
		{"complete frame", []byte{0x02, 0x07, 0x01, 0x00}, true, 1},
		{"delimiter then more", []byte{0x00, 0x02}, false, 1},
		{"lone delimiter", []byte{0x00}, true, 1},
		{"frame then partial frame", []byte{0x02, 0x07, 0x01, 0x00, 0x02, 0x08}, false, 1},
		{"two frames", []byte{0x01, 0x00, 0x01, 0x00}, true, 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			transport, service := NewLink(16, 16)
			uart := &fakeUART{rx: append([]byte(nil), tc.rx...)}

			require.Equal(t, tc.boundary, transport.ReadNonblocking(uart))
			require.Empty(t, uart.rx, "transport must drain the receive register")
			require.Equal(t, len(tc.rx), service.requests.Len())
			require.Equal(t, uint32(len(tc.rx)), transport.BytesIn())
			require.Equal(t, tc.delimiters, transport.Delimiters())
		})
	}
}

func TestTransportReadOverwritesOldest(t *testing.T) {
	transport, service := NewLink(4, 16)
	uart := &fakeUART{rx: []byte{1, 2, 3, 4, 5, 6}}
	transport.ReadNonblocking(uart)

	var got []byte
	for {
		b, ok := service.requests.PopFront()
		if !ok {
			break
		}
		got = append(got, b)
	}
	require.Equal(t, []byte{3, 4, 5, 6}, got)
}

func TestTransportWriteStopsOnWouldBlock(t *testing.T) {
	transport, service := NewLink(16, 16)
	for _, b := range []byte{1, 2, 3, 4, 5} {
		service.responses.PushBack(b)
	}

	uart := &fakeUART{txRoom: 2}
	transport.WriteNonblocking(uart)
	require.Equal(t, []byte{1, 2}, uart.tx)
	require.Equal(t, 3, transport.Pending(), "rejected byte must stay queued")

	uart.txRoom = 10
	transport.WriteNonblocking(uart)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, uart.tx)
	require.Zero(t, transport.Pending())
	require.Equal(t, uint32(5), transport.BytesOut())
}

func TestTransportWriteEmptyQueue(t *testing.T) {
	transport, _ := NewLink(16, 16)
	uart := &fakeUART{txRoom: 10}
	transport.WriteNonblocking(uart)
	require.Zero(t, uart.txCalls)
}

func TestTransportFatalErrorsHalt(t *testing.T) {
	fault := errors.New("framing error")

	t.Run("read", func(t *testing.T) {
		transport, _ := NewLink(16, 16)
		require.Panics(t, func() {
			transport.ReadNonblocking(&fakeUART{rxErr: fault})
		})
	})

	t.Run("write", func(t *testing.T) {
		transport, service := NewLink(16, 16)
		service.responses.PushBack(1)
		require.Panics(t, func() {
			transport.WriteNonblocking(&fakeUART{txErr: fault})
		})
	})

	t.Run("custom handler", func(t *testing.T) {
		transport, _ := NewLink(16, 16)
		var halted error
		transport.SetHaltHandler(func(err error) { halted = err })
		require.False(t, transport.ReadNonblocking(&fakeUART{rx: []byte{0x00}, rxErr: fault}))
		require.ErrorIs(t, halted, fault)
	})
}
