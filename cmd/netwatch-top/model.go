package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"netwatch.dev/netwatch/internal/scan"
	"netwatch.dev/netwatch/internal/store"
)

const refreshInterval = 2 * time.Second

type endpointsMsg []store.EndpointRow
type scanMsg scan.Snapshot
type errMsg struct{ err error }
type tickMsg time.Time

type model struct {
	backend *backend

	table     table.Model
	endpoints []store.EndpointRow
	scanState scan.Snapshot
	lastErr   error

	width, height int
}

func newModel(b *backend) model {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Type", Width: 12},
		{Title: "Vendor", Width: 16},
		{Title: "Status", Width: 8},
		{Title: "Last Seen", Width: 14},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(colorDeep).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(colorIce).Background(colorDeep).Bold(false)
	t.SetStyles(s)

	return model{backend: b, table: t}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetchEndpoints, m.fetchScan, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) fetchEndpoints() tea.Msg {
	rows, err := m.backend.Endpoints()
	if err != nil {
		return errMsg{err}
	}
	return endpointsMsg(rows)
}

func (m model) fetchScan() tea.Msg {
	snap, err := m.backend.ScanStatus()
	if err != nil {
		return errMsg{err}
	}
	return scanMsg(snap)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, tea.Batch(m.fetchEndpoints, m.fetchScan)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 7)

	case tickMsg:
		return m, tea.Batch(m.fetchEndpoints, m.fetchScan, tick())

	case endpointsMsg:
		m.endpoints = msg
		m.lastErr = nil
		m.table.SetRows(rowsFor(msg))

	case scanMsg:
		m.scanState = scan.Snapshot(msg)
		m.lastErr = nil

	case errMsg:
		m.lastErr = msg.err
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func rowsFor(rows []store.EndpointRow) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		name := r.Name
		if r.CustomName != "" {
			name = r.CustomName
		}
		status := "offline"
		if r.Online {
			status = "online"
		}
		out[i] = table.Row{name, r.DeviceType, r.Vendor, status, humanize.Time(r.LastSeenAt)}
	}
	return out
}

func (m model) View() string {
	header := styleHeader.Render("NETWATCH TOP     [q] quit  [r] refresh")

	var status string
	switch {
	case m.lastErr != nil:
		status = styleStatusBad.Render(fmt.Sprintf("error: %v", m.lastErr))
	case m.scanState.Running:
		status = styleStatusGood.Render(fmt.Sprintf("scanning: %s %d%%  discovered %d", m.scanState.CurrentPhase, m.scanState.ProgressPercent, m.scanState.DiscoveredCount))
	case !m.scanState.LastScanTime.IsZero():
		status = styleMuted.Render("last scan " + humanize.Time(m.scanState.LastScanTime))
	default:
		status = styleMuted.Render("no scan run yet")
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		styleCard.Render(m.table.View()),
		styleSubtitle.Render(fmt.Sprintf("%d endpoints", len(m.endpoints))),
		status,
	)
	return styleApp.Render(body)
}
