package main

import (
	"net/http"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"diffbot/host/serial"
	"diffbot/host/sim"
)

var (
	simListen   string
	simPath     string
	simConfig   string
	simUsername string
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Serve simulated controllers over a WebSocket bridge",
	Long: `Run the controller firmware against a simulated drive and expose it as a
serial-over-WebSocket bridge. Every client gets a fresh controller.

With --auth-user set, clients must authenticate with HTTP Basic auth; the
password is read from DIFFBOT_PASSWORD or prompted for.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if simConfig != "" {
			files = append(files, simConfig)
		}
		cfg, err := loadConfigArg(files)
		if err != nil {
			return err
		}

		server := sim.NewServer(cfg)
		if simUsername != "" {
			password, err := serial.GetPassword()
			if err != nil {
				return err
			}
			server.Username, server.Password = simUsername, password
		}

		mux := http.NewServeMux()
		mux.Handle(simPath, server)
		glog.Infof("serving simulated controller on ws://%s%s", simListen, simPath)
		return http.ListenAndServe(simListen, mux)
	},
}

func init() {
	rootCmd.AddCommand(simCmd)
	simCmd.Flags().StringVar(&simListen, "listen", "localhost:8080", "Listen address")
	simCmd.Flags().StringVar(&simPath, "path", "/serial", "WebSocket path")
	simCmd.Flags().StringVar(&simConfig, "config", "", "Controller configuration file (JSON or CBOR)")
	simCmd.Flags().StringVar(&simUsername, "auth-user", "", "Require HTTP Basic auth with this username")
}
