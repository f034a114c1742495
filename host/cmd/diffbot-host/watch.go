package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"diffbot/host/mcu"
	"diffbot/host/telemetry"
	"diffbot/protocol"
)

const watchHistory = 10

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of link round trips and frame counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, info, closeFn, err := openMCU()
		if err != nil {
			return err
		}
		defer closeFn()

		p := tea.NewProgram(newWatchModel(m, info, watchInterval), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 500*time.Millisecond, "Ping interval")
}

// Messages
type pingDoneMsg struct {
	result mcu.PingResult
	stats  protocol.HostStats
}
type pingDueMsg time.Time

type watchModel struct {
	pinger   telemetry.Pinger
	info     string
	interval time.Duration
	timeout  time.Duration

	spinner  spinner.Model
	waiting  bool
	recent   []mcu.PingResult
	summary  mcu.Summary
	total    time.Duration
	stats    protocol.HostStats
	quitting bool
}

func newWatchModel(p telemetry.Pinger, info string, interval time.Duration) watchModel {
	return watchModel{
		pinger:   p,
		info:     info,
		interval: interval,
		timeout:  time.Second,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.ping())
}

func (m watchModel) ping() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		res, _ := m.pinger.Ping(ctx)
		return pingDoneMsg{result: res, stats: m.pinger.Stats()}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pingDoneMsg:
		m.waiting = false
		m.record(msg.result)
		m.stats = msg.stats
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg { return pingDueMsg(t) })

	case pingDueMsg:
		m.waiting = true
		return m, m.ping()
	}
	return m, nil
}

func (m *watchModel) record(r mcu.PingResult) {
	m.recent = append(m.recent, r)
	if len(m.recent) > watchHistory {
		m.recent = m.recent[len(m.recent)-watchHistory:]
	}

	s := &m.summary
	s.Sent++
	if r.Err != nil {
		return
	}
	if s.Received == 0 || r.RTT < s.Min {
		s.Min = r.RTT
	}
	if r.RTT > s.Max {
		s.Max = r.RTT
	}
	s.Received++
	m.total += r.RTT
	s.Avg = m.total / time.Duration(s.Received)
}

func (m watchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("diffbot watch"))
	b.WriteString("  " + labelStyle.Render(m.info))
	if m.waiting {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	s := m.summary
	counters := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%s %d", labelStyle.Render("sent      "), s.Sent),
		fmt.Sprintf("%s %d", labelStyle.Render("received  "), s.Received),
		fmt.Sprintf("%s %.1f%%", labelStyle.Render("loss      "), s.Loss()*100),
		fmt.Sprintf("%s %v / %v / %v", labelStyle.Render("rtt       "),
			s.Min.Round(time.Microsecond), s.Avg.Round(time.Microsecond), s.Max.Round(time.Microsecond)),
		fmt.Sprintf("%s %d", labelStyle.Render("malformed "), m.stats.Malformed),
		fmt.Sprintf("%s %d", labelStyle.Render("unmatched "), m.stats.Unmatched),
	)

	lines := make([]string, 0, len(m.recent))
	for i := len(m.recent) - 1; i >= 0; i-- {
		r := m.recent[i]
		if r.Err != nil {
			lines = append(lines, errorStyle.Render("lost: "+r.Err.Error()))
			continue
		}
		lines = append(lines, okStyle.Render(fmt.Sprintf("id=%-6d %v", r.CorrelationID, r.RTT.Round(time.Microsecond))))
	}
	if len(lines) == 0 {
		lines = append(lines, labelStyle.Render("waiting for first ping"))
	}
	history := lipgloss.JoinVertical(lipgloss.Left, lines...)

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxStyle.Render(counters), boxStyle.Render(history)))
	b.WriteString("\n" + labelStyle.Render("q to quit") + "\n")
	return b.String()
}
