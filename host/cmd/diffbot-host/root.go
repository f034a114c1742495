package main

import (
	"flag"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"diffbot/protocol"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// In-process simulated controller
	useSim bool
)

var rootCmd = &cobra.Command{
	Use:   "diffbot-host",
	Short: "Host tool for the differential drive controller",
	Long: `diffbot-host - talk to the differential drive controller.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]
  Simulated: --sim (runs the controller firmware in this process)

For WebSocket authentication, the password is read from the DIFFBOT_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:       protocol.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().BoolVar(&useSim, "sim", false, "Connect to an in-process simulated controller")

	// glog flags (-v, --logtostderr, ...); cobra merges pflag.CommandLine
	// into every command's flag set.
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
