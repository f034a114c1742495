// diffbot-host talks to the drive controller over serial or a WebSocket
// bridge
package main

import (
	"os"

	"github.com/golang/glog"
)

func main() {
	defer glog.Flush()
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
