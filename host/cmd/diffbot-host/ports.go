package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"diffbot/host/serial"
)

var usbOnly bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serial.ListPorts()
		if err != nil {
			return err
		}
		shown := 0
		for _, p := range ports {
			if usbOnly && !p.IsUSB {
				continue
			}
			fmt.Println(p)
			shown++
		}
		if shown == 0 {
			fmt.Println(labelStyle.Render("no serial ports found"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().BoolVar(&usbOnly, "usb", false, "Only list USB devices")
}
