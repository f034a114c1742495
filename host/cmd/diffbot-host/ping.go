package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"diffbot/host/mcu"
)

var (
	pingCount    int
	pingTimeout  time.Duration
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send Ping requests and report round trip times",
	Long: `Send Ping requests and wait for the echoed correlation id.

Exit codes:
  0 - All pings answered
  1 - One or more pings failed or timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 3, "Number of pings to send")
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", time.Second, "Timeout for each ping")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", 100*time.Millisecond, "Delay between pings")
}

func runPing(cmd *cobra.Command, args []string) error {
	m, info, closeFn, err := openMCU()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Connection error: "+err.Error()))
		os.Exit(2)
	}
	defer closeFn()

	fmt.Println(titleStyle.Render("diffbot ping"))
	fmt.Printf("%s %s\n\n", labelStyle.Render("Connection:"), info)

	results, err := m.PingN(cmd.Context(), pingCount, pingTimeout, pingInterval)
	for i, r := range results {
		fmt.Println(formatPingResult(i+1, pingCount, r))
	}
	if err != nil && err != context.Canceled {
		return err
	}

	s := mcu.Summarize(results)
	fmt.Printf("\n--- ping statistics ---\n%s\n", formatSummary(s))
	if stats := m.Stats(); stats.Malformed > 0 || stats.Unmatched > 0 {
		fmt.Println(warningStyle.Render(fmt.Sprintf("%d malformed, %d unmatched frames", stats.Malformed, stats.Unmatched)))
	}

	if s.Received < s.Sent {
		closeFn()
		os.Exit(1)
	}
	return nil
}

func formatPingResult(n, total int, r mcu.PingResult) string {
	prefix := fmt.Sprintf("Ping %d/%d: ", n, total)
	if r.Err != nil {
		return prefix + errorStyle.Render("FAILED: "+r.Err.Error())
	}
	return prefix + okStyle.Render(fmt.Sprintf("id=%d rtt=%v", r.CorrelationID, r.RTT.Round(time.Microsecond)))
}

func formatSummary(s mcu.Summary) string {
	line := fmt.Sprintf("%d pings sent, %d responses received, %.0f%% loss", s.Sent, s.Received, s.Loss()*100)
	if s.Received > 0 {
		line += fmt.Sprintf("\nrtt min/avg/max = %v/%v/%v",
			s.Min.Round(time.Microsecond), s.Avg.Round(time.Microsecond), s.Max.Round(time.Microsecond))
	}
	return line
}
