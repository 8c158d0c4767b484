package main

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"fleet_console/internal/api"
	"fleet_console/internal/config"
	"fleet_console/internal/domain"
	"fleet_console/internal/view"
)

var pageNames = []string{"Overview", "Clusters", "Routes", "Drivers", "Workflow"}

type embeddedConsole struct {
	cmd *exec.Cmd
}

func main() {
	root := &cobra.Command{
		Use:           "monitor",
		Short:         "Terminal dashboard for the delivery console",
		RunE:          runMonitor,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Flags().String("config", "", "path to config.toml (default: ~/.fleet_console/config.toml)")
	root.Flags().String("addr", "", "console base URL override")
	root.Flags().Duration("interval", 0, "workflow refresh interval override")
	root.Flags().Bool("live", true, "follow the websocket event stream instead of polling the workflow")
	root.Flags().Bool("embedded", false, "start the console server in the same monitor process lifecycle")
	root.Flags().String("console-bin", "", "path to console binary (optional in embedded mode)")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor failed: %v\n", err)
		os.Exit(1)
	}
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	addrFlag, _ := cmd.Flags().GetString("addr")
	intervalFlag, _ := cmd.Flags().GetDuration("interval")
	live, _ := cmd.Flags().GetBool("live")
	embedded, _ := cmd.Flags().GetBool("embedded")
	consoleBin, _ := cmd.Flags().GetString("console-bin")

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	addr := strings.TrimSpace(addrFlag)
	if addr == "" {
		addr = cfg.Monitor.Addr
	}
	interval := intervalFlag
	if interval <= 0 {
		interval = time.Duration(cfg.Monitor.IntervalMS) * time.Millisecond
	}

	c := newClient(addr)
	if embedded {
		proc, err := startEmbeddedConsole(addr, consoleBin, configPath)
		if err != nil {
			return fmt.Errorf("start embedded console: %w", err)
		}
		defer proc.Stop()
	}
	if err := waitHealth(c, 30*time.Second); err != nil {
		return fmt.Errorf("console health check failed: %w", err)
	}

	data, err := c.dataset()
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	script, err := c.script()
	if err != nil {
		return fmt.Errorf("load script: %w", err)
	}

	m := newMonitor(c, script, interval)
	m.renderDataset(data)
	return m.run(live)
}

type monitor struct {
	client   *client
	script   domain.Script
	interval time.Duration

	app   *tview.Application
	pages *tview.Pages
	page  int

	statsView    *tview.TextView
	trackingView *tview.TextView
	slotsView    *tview.TextView
	trendView    *tview.TextView
	clusterTable *tview.Table
	routeTable   *tview.Table
	routeTrack   *tview.TextView
	driverTable  *tview.Table
	utilView     *tview.TextView
	agentsView   *tview.TextView
	timelineView *tview.TextView
	commsView    *tview.TextView
	runsView     *tview.TextView
	playerView   *tview.TextView
	statusView   *tview.TextView
}

func newMonitor(c *client, script domain.Script, interval time.Duration) *monitor {
	m := &monitor{
		client:   c,
		script:   script,
		interval: interval,
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
	}

	m.statsView = textView("Stats")
	m.trackingView = textView("Live tracking")
	m.slotsView = textView("Orders by time slot")
	m.trendView = textView("Weekly trend")
	m.clusterTable = tableView("Clusters")
	m.routeTable = tableView("Routes")
	m.routeTrack = textView("Tracking")
	m.driverTable = tableView("Drivers")
	m.utilView = textView("Driver utilization")
	m.agentsView = textView("Agent network")
	m.timelineView = textView("Workflow execution")
	m.commsView = textView("Inter-agent communication")
	m.runsView = textView("Recorded runs")
	m.playerView = textView("Player")
	m.statusView = textView("Status")

	overviewTop := tview.NewFlex().
		AddItem(m.statsView, 0, 1, false).
		AddItem(m.slotsView, 0, 2, false)
	overview := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(overviewTop, 0, 1, false).
		AddItem(m.trendView, 0, 1, false).
		AddItem(m.trackingView, 0, 1, false)

	routes := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.routeTable, 0, 2, true).
		AddItem(m.routeTrack, 0, 1, false)

	drivers := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.driverTable, 0, 2, true).
		AddItem(m.utilView, 0, 1, false)

	workflowRight := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.timelineView, 0, 3, false).
		AddItem(m.commsView, 0, 2, false)
	workflowLeft := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.agentsView, 0, 2, false).
		AddItem(m.runsView, 0, 1, false)
	workflow := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.playerView, 3, 0, false).
		AddItem(tview.NewFlex().
			AddItem(workflowLeft, 0, 1, false).
			AddItem(workflowRight, 0, 2, false), 0, 1, false)

	m.pages.AddPage(pageNames[0], overview, true, true)
	m.pages.AddPage(pageNames[1], m.clusterTable, true, false)
	m.pages.AddPage(pageNames[2], routes, true, false)
	m.pages.AddPage(pageNames[3], drivers, true, false)
	m.pages.AddPage(pageNames[4], workflow, true, false)
	return m
}

func (m *monitor) run(live bool) error {
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.pages, 0, 1, true).
		AddItem(m.statusView, 3, 0, false)
	m.setStatusUI(m.help())

	m.app.SetInputCapture(m.handleKey)

	done := make(chan struct{})
	defer close(done)
	go m.pollLoop(done)
	if live {
		go m.streamLoop(done)
	}

	if err := m.app.SetRoot(root, true).EnableMouse(true).Run(); err != nil {
		return err
	}
	return nil
}

func (m *monitor) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyF10:
		m.app.Stop()
		return nil
	case tcell.KeyF5:
		go m.refreshAll()
		m.setStatusUI("Manual refresh")
		return nil
	case tcell.KeyTAB:
		m.showPage((m.page + 1) % len(pageNames))
		return nil
	case tcell.KeyBacktab:
		m.showPage((m.page + len(pageNames) - 1) % len(pageNames))
		return nil
	case tcell.KeyRune:
	default:
		return event
	}

	switch r := event.Rune(); r {
	case '1', '2', '3', '4', '5':
		m.showPage(int(r - '1'))
		return nil
	case 's':
		go m.control("start")
		return nil
	case 'p':
		go m.control("pause")
		return nil
	case 'r':
		go m.control("reset")
		return nil
	case 'n':
		go m.control("advance")
		return nil
	case 'q':
		m.app.Stop()
		return nil
	}
	return event
}

func (m *monitor) showPage(i int) {
	m.page = i
	m.pages.SwitchToPage(pageNames[i])
	m.setStatusUI(m.help())
}

func (m *monitor) help() string {
	var tabs []string
	for i, name := range pageNames {
		if i == m.page {
			tabs = append(tabs, fmt.Sprintf("[::r] %d %s [::-]", i+1, name))
		} else {
			tabs = append(tabs, fmt.Sprintf(" %d %s ", i+1, name))
		}
	}
	return strings.Join(tabs, "") + "  | s start, p pause, r reset, n next, F5 refresh, F10 quit | " + m.client.baseURL
}

func (m *monitor) pollLoop(done <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refreshWorkflow()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.refreshWorkflow()
		}
	}
}

// streamLoop follows the event feed and reconnects after a pause when it drops.
func (m *monitor) streamLoop(done <-chan struct{}) {
	for {
		err := m.client.stream(done, func(frame api.Frame) {
			if frame.Snapshot == nil {
				return
			}
			snap := *frame.Snapshot
			m.app.QueueUpdateDraw(func() {
				m.renderWorkflow(snap)
			})
		})
		select {
		case <-done:
			return
		case <-time.After(2 * time.Second):
		}
		if err != nil {
			m.setStatusAsync("event stream: " + err.Error())
		}
	}
}

func (m *monitor) refreshAll() {
	data, err := m.client.dataset()
	if err != nil {
		m.setStatusAsync("load dataset: " + err.Error())
	} else {
		m.app.QueueUpdateDraw(func() {
			m.renderDataset(data)
		})
	}
	m.refreshWorkflow()
}

func (m *monitor) refreshWorkflow() {
	snap, err := m.client.snapshot()
	if err != nil {
		m.setStatusAsync("load workflow: " + err.Error())
		return
	}
	runs, runsErr := m.client.runs(10)
	m.app.QueueUpdateDraw(func() {
		m.renderWorkflow(snap)
		if runsErr != nil {
			m.runsView.SetText("[gray]" + runsErr.Error() + "[-]")
		} else {
			m.runsView.SetText(view.RunsText(runs, time.Now()))
		}
	})
}

func (m *monitor) control(action string) {
	snap, err := m.client.control(action)
	if err != nil {
		m.setStatusAsync(action + " failed: " + err.Error())
		return
	}
	m.app.QueueUpdateDraw(func() {
		m.renderWorkflow(snap)
		m.statusView.SetText(m.help())
	})
}

// renderDataset must run on the UI goroutine or before the app starts.
func (m *monitor) renderDataset(data domain.Dataset) {
	now := time.Now()
	m.statsView.SetText(view.StatsText(data.Stats, data.GeneratedAt, now))
	m.slotsView.SetText(view.TimeSlotChart(data.Charts.OrdersByTimeSlot))
	m.trendView.SetText(view.TrendChart(data.Charts.WeeklyTrend))
	tracking := view.TrackingText(data.Tracking, now)
	m.trackingView.SetText(tracking)
	m.routeTrack.SetText(tracking)
	m.utilView.SetText(view.UtilizationChart(data.Charts.DriverUtilization))
	fillTable(m.clusterTable, view.ClusterTable(data.Clusters))
	fillTable(m.routeTable, view.RouteTable(data.Routes))
	fillTable(m.driverTable, view.DriverTable(data.Drivers))
}

func (m *monitor) renderWorkflow(snap domain.PlayerSnapshot) {
	m.playerView.SetText(view.PlayerStatus(snap))
	m.agentsView.SetText(view.AgentNetwork(m.script, snap))
	m.timelineView.SetText(view.StageTimeline(m.script, snap))
	m.commsView.SetText(view.CommunicationLog(m.script, snap))
	m.commsView.ScrollToEnd()
}

func (m *monitor) setStatusUI(msg string) {
	m.statusView.SetText(msg)
}

func (m *monitor) setStatusAsync(msg string) {
	m.app.QueueUpdateDraw(func() {
		m.statusView.SetText(msg)
	})
}

func fillTable(table *tview.Table, t view.Table) {
	table.Clear()
	for i, h := range t.Headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, row := range t.Rows {
		color := tcell.ColorDefault
		if i < len(t.Colors) && t.Colors[i] != "" {
			color = tcell.GetColor(t.Colors[i])
		}
		for j, cell := range row {
			c := tview.NewTableCell(cell)
			if j == 0 {
				c.SetTextColor(color)
			}
			table.SetCell(i+1, j, c)
		}
	}
}

func textView(title string) *tview.TextView {
	v := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	v.SetTitle(title).SetBorder(true)
	return v
}

func tableView(title string) *tview.Table {
	t := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	t.SetTitle(title).SetBorder(true)
	return t
}

func startEmbeddedConsole(addr string, consoleBinary string, configPath string) (*embeddedConsole, error) {
	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	port := parsed.Port()
	if port == "" {
		return nil, fmt.Errorf("addr must include explicit port, got %q", addr)
	}
	args := []string{"serve", "--addr", ":" + port, "--log", "warn"}
	if strings.TrimSpace(configPath) != "" {
		args = append(args, "--config", configPath)
	}

	var cmd *exec.Cmd
	if strings.TrimSpace(consoleBinary) != "" {
		cmd = exec.Command(consoleBinary, args...)
	} else {
		self, err := os.Executable()
		if err == nil {
			sibling := filepath.Join(filepath.Dir(self), "console")
			if fileExists(sibling) {
				cmd = exec.Command(sibling, args...)
			}
		}
		if cmd == nil {
			cmd = exec.Command("go", append([]string{"run", "./cmd/console"}, args...)...)
			cwd, _ := os.Getwd()
			cmd.Dir = cwd
		}
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start console process: %w", err)
	}
	return &embeddedConsole{cmd: cmd}, nil
}

func (e *embeddedConsole) Stop() {
	if e == nil || e.cmd == nil || e.cmd.Process == nil {
		return
	}
	_ = e.cmd.Process.Kill()
	_, _ = e.cmd.Process.Wait()
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
