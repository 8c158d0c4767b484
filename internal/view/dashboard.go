// Package view renders dashboard data as tview-tagged text and table rows.
// Nothing here touches the terminal, so the monitor and tests share it.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"fleet_console/internal/domain"
	"fleet_console/internal/metrics"
)

const barWidth = 30

type Table struct {
	Headers []string
	Rows    [][]string
	// Colors holds one tview color per row, empty for the default.
	Colors []string
}

func StatsText(stats domain.Stats, generatedAt, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[::b]Pending orders[::-]     %s\n", humanize.Comma(int64(stats.PendingOrders)))
	fmt.Fprintf(&b, "[::b]Active clusters[::-]    %d\n", stats.ActiveClusters)
	fmt.Fprintf(&b, "[::b]Active routes[::-]      %d\n", stats.ActiveRoutes)
	fmt.Fprintf(&b, "[::b]Available drivers[::-]  %d / %d\n", stats.AvailableDrivers, stats.TotalDrivers)
	fmt.Fprintf(&b, "[::b]Completed today[::-]    %s\n", humanize.Comma(int64(stats.CompletedDeliveries)))
	fmt.Fprintf(&b, "[::b]Avg delivery time[::-]  %d min\n", stats.AvgDeliveryTime)
	fmt.Fprintf(&b, "[::b]Efficiency[::-]         %d%%\n", stats.EfficiencyScore)
	if !generatedAt.IsZero() {
		fmt.Fprintf(&b, "\n[gray]generated %s[-]", humanize.RelTime(generatedAt, now, "ago", "from now"))
	}
	return b.String()
}

func ClusterTable(clusters []domain.Cluster) Table {
	t := Table{Headers: []string{"Cluster", "Orders", "Window", "Volume", "Weight", "Duration", "Centroid"}}
	for i, c := range clusters {
		t.Rows = append(t.Rows, []string{
			c.ID,
			fmt.Sprintf("%d", c.OrderCount),
			c.TimeWindow,
			fmt.Sprintf("%.2f m3", c.TotalVolume),
			fmt.Sprintf("%s kg", humanize.FormatFloat("#,###.#", c.TotalWeight)),
			fmt.Sprintf("%d min", c.EstimatedDuration),
			fmt.Sprintf("%.4f, %.4f", c.CentroidLat, c.CentroidLon),
		})
		t.Colors = append(t.Colors, metrics.ClusterColor(i))
	}
	return t
}

func RouteTable(routes []domain.Route) Table {
	t := Table{Headers: []string{"Route", "Driver", "Vehicle", "Status", "Stops", "Distance", "Duration", "Progress"}}
	for _, r := range routes {
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.DriverName,
			r.VehicleType,
			string(r.Status),
			fmt.Sprintf("%d", r.DeliveryCount),
			fmt.Sprintf("%.1f km", r.TotalDistance),
			fmt.Sprintf("%d min", r.EstimatedDuration),
			Bar(r.Progress, 100, 10) + fmt.Sprintf(" %3.0f%%", r.Progress),
		})
		t.Colors = append(t.Colors, metrics.StatusColor(string(r.Status)))
	}
	return t
}

func DriverTable(drivers []domain.Driver) Table {
	t := Table{Headers: []string{"Driver", "Name", "Status", "Vehicle", "Load vol", "Load kg", "Today", "Rating"}}
	for _, d := range drivers {
		t.Rows = append(t.Rows, []string{
			d.ID,
			d.Name,
			string(d.Status),
			d.VehicleType,
			fmt.Sprintf("%.1f/%.0f", d.CurrentLoadVolume, d.VehicleCapacityVolume),
			fmt.Sprintf("%.0f/%.0f", d.CurrentLoadWeight, d.VehicleCapacityWeight),
			fmt.Sprintf("%d", d.DeliveriesToday),
			fmt.Sprintf("%.1f", d.Rating),
		})
		t.Colors = append(t.Colors, metrics.StatusColor(string(d.Status)))
	}
	return t
}

// TrackingText lists live positions ordered by route id.
func TrackingText(tracking map[string]domain.Tracking, now time.Time) string {
	if len(tracking) == 0 {
		return "No active routes"
	}
	ids := make([]string, 0, len(tracking))
	for id := range tracking {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		tr := tracking[id]
		fmt.Fprintf(&b, "[%s]%s[-] %s  %.4f, %.4f  %s %3.0f%%  next=%s  eta %s\n",
			metrics.StatusColor(tr.Status),
			tr.RouteID,
			tr.DriverID,
			tr.CurrentLat,
			tr.CurrentLon,
			Bar(tr.Progress, 100, 10),
			tr.Progress,
			tr.NextDelivery,
			humanize.RelTime(tr.ETA, now, "ago", "from now"),
		)
	}
	return b.String()
}

func TimeSlotChart(counts []domain.TimeSlotCount) string {
	if len(counts) == 0 {
		return "No orders"
	}
	peak := 0
	for _, c := range counts {
		peak = max(peak, c.Orders)
	}
	var b strings.Builder
	for _, c := range counts {
		fmt.Fprintf(&b, "%-12s [%s]%s[-] %d\n", c.TimeSlot, metrics.TimeSlotColor(c.TimeSlot), Bar(float64(c.Orders), float64(peak), barWidth), c.Orders)
	}
	return b.String()
}

func UtilizationChart(items []domain.DriverUtilization) string {
	if len(items) == 0 {
		return "No drivers"
	}
	var b strings.Builder
	for _, u := range items {
		fmt.Fprintf(&b, "%-10s vol [#8884d8]%s[-] %3d%%\n", u.Name, Bar(float64(u.VolumeUtilization), 100, barWidth/2), u.VolumeUtilization)
		fmt.Fprintf(&b, "%-10s kg  [#82ca9d]%s[-] %3d%%\n", "", Bar(float64(u.WeightUtilization), 100, barWidth/2), u.WeightUtilization)
	}
	return b.String()
}

func TrendChart(days []domain.DailyTrend) string {
	if len(days) == 0 {
		return "No trend"
	}
	peak := 0
	for _, d := range days {
		peak = max(peak, d.Deliveries)
	}
	var b strings.Builder
	for _, d := range days {
		fmt.Fprintf(&b, "%-4s %s %3d  eff %d%%\n", d.Day, Bar(float64(d.Deliveries), float64(peak), barWidth), d.Deliveries, d.Efficiency)
	}
	return b.String()
}

// Bar draws value/limit as a fixed-width block bar, clamped to [0, width].
func Bar(value, limit float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if limit > 0 && value > 0 {
		filled = int(value / limit * float64(width))
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
