package main

import (
	"context"
	"fmt"
	"net"

	"diffbot/config"
	"diffbot/host/mcu"
	"diffbot/host/serial"
	"diffbot/host/sim"
)

// openMCU connects using the persistent connection flags. The returned
// cleanup closes the connection and anything started for it.
func openMCU() (*mcu.MCU, string, func(), error) {
	m := mcu.NewMCU()
	switch {
	case useSim:
		host, device := net.Pipe()
		dev, err := sim.New(config.Default(), device)
		if err != nil {
			return nil, "", nil, err
		}
		ctx, cancel := context.WithCancel(context.Background())
		go dev.Run(ctx)
		if err := m.ConnectPort(host); err != nil {
			cancel()
			return nil, "", nil, err
		}
		return m, "simulated controller", func() {
			cancel()
			m.Close()
			device.Close()
		}, nil

	case wsURL != "":
		cfg := serial.WebSocketConfig{
			URL:           wsURL,
			Username:      wsUsername,
			SkipSSLVerify: wsNoSSLVerify,
		}
		if wsUsername != "" {
			password, err := serial.GetPassword()
			if err != nil {
				return nil, "", nil, err
			}
			cfg.Password = password
		}
		if err := m.ConnectWebSocket(cfg); err != nil {
			return nil, "", nil, err
		}
		return m, "WebSocket " + wsURL, func() { m.Close() }, nil

	case portName != "":
		if err := m.Connect(portName, baudRate); err != nil {
			return nil, "", nil, err
		}
		return m, fmt.Sprintf("serial %s @ %d baud", portName, baudRate), func() { m.Close() }, nil
	}
	return nil, "", nil, fmt.Errorf("one of --port, --url or --sim is required")
}
