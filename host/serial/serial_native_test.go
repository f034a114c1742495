//go:build !wasm

package serial_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"diffbot/host/serial"
)

func TestOpenRequiresDevice(t *testing.T) {
	_, err := serial.Open(nil)
	require.ErrorIs(t, err, serial.ErrNoDevice)

	_, err = serial.Open(serial.DefaultConfig(""))
	require.ErrorIs(t, err, serial.ErrNoDevice)
}

func TestOpenMissingDeviceNamesLink(t *testing.T) {
	dev := t.TempDir() + "/ttyDIFFBOT"
	_, err := serial.Open(serial.DefaultConfig(dev))
	require.Error(t, err)
	require.Contains(t, err.Error(), "controller link "+dev)
}
