package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/spf13/cobra"

	"diffbot/host/mcu"
)

const mcuKey = "$mcu"

var shellCmd = &cobra.Command{
	Use:   "shell [command...]",
	Short: "Interactive shell on one connection",
	Long: `Open one connection and run commands against it interactively. Arguments,
if given, are run as a single shell command instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, info, closeFn, err := openMCU()
		if err != nil {
			return err
		}
		defer closeFn()

		sh := newShell(m)
		if len(args) > 0 {
			return sh.Process(args...)
		}
		sh.Println(titleStyle.Render("diffbot shell") + " " + labelStyle.Render(info))
		sh.Run()
		sh.Close()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func newShell(m *mcu.MCU) *ishell.Shell {
	sh := ishell.New()
	sh.Set(mcuKey, m)
	sh.SetPrompt("diffbot > ")
	sh.AddCmd(&shellPingCmd)
	sh.AddCmd(&shellStatsCmd)
	return sh
}

func mcuFrom(c *ishell.Context) *mcu.MCU {
	return c.Get(mcuKey).(*mcu.MCU)
}

var shellPingCmd = ishell.Cmd{
	Name:    "ping",
	Aliases: []string{"p"},
	Help:    "ping [count] - send Ping requests",
	Func: func(c *ishell.Context) {
		count := 1
		if len(c.Args) > 0 {
			n, err := strconv.Atoi(c.Args[0])
			if err != nil || n < 1 {
				c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
				return
			}
			count = n
		}
		results, err := mcuFrom(c).PingN(context.Background(), count, time.Second, 0)
		for i, r := range results {
			c.Println(formatPingResult(i+1, count, r))
		}
		if err != nil {
			c.Err(err)
			return
		}
		if count > 1 {
			c.Println(formatSummary(mcu.Summarize(results)))
		}
	},
}

var shellStatsCmd = ishell.Cmd{
	Name: "stats",
	Help: "show host frame counters",
	Func: func(c *ishell.Context) {
		s := mcuFrom(c).Stats()
		c.Printf("received=%d malformed=%d unmatched=%d\n", s.Received, s.Malformed, s.Unmatched)
	},
}
