package metrics

import (
	"math"
	"math/rand/v2"
	"strings"

	"fleet_console/internal/domain"
)

// OrdersByTimeSlot counts orders per delivery window in slot order. Windows
// with no orders are left out.
func OrdersByTimeSlot(orders []domain.Order) []domain.TimeSlotCount {
	counts := make(map[string]int, len(TimeSlots))
	var extra []string
	for _, o := range orders {
		if _, seen := counts[o.TimeSlot]; !seen && !isKnownSlot(o.TimeSlot) {
			extra = append(extra, o.TimeSlot)
		}
		counts[o.TimeSlot]++
	}

	out := make([]domain.TimeSlotCount, 0, len(counts))
	for _, slot := range append(append([]string{}, TimeSlots...), extra...) {
		if n := counts[slot]; n > 0 {
			out = append(out, domain.TimeSlotCount{TimeSlot: slot, Orders: n})
		}
	}
	return out
}

// DriverUtilization reports load as a rounded percentage of capacity for the
// first limit drivers, labelled by first name.
func DriverUtilization(drivers []domain.Driver, limit int) []domain.DriverUtilization {
	if limit <= 0 || limit > len(drivers) {
		limit = len(drivers)
	}
	out := make([]domain.DriverUtilization, 0, limit)
	for _, d := range drivers[:limit] {
		out = append(out, domain.DriverUtilization{
			Name:              firstName(d.Name),
			VolumeUtilization: percent(d.CurrentLoadVolume, d.VehicleCapacityVolume),
			WeightUtilization: percent(d.CurrentLoadWeight, d.VehicleCapacityWeight),
		})
	}
	return out
}

// WeeklyTrend is independent random data, one row per weekday.
func WeeklyTrend(rng *rand.Rand) []domain.DailyTrend {
	out := make([]domain.DailyTrend, len(Weekdays))
	for i, day := range Weekdays {
		out[i] = domain.DailyTrend{
			Day:        day,
			Deliveries: intIn(rng, 80, 129),
			Efficiency: intIn(rng, 75, 94),
		}
	}
	return out
}

func percent(v, capacity float64) int {
	if capacity <= 0 {
		return 0
	}
	return int(math.Round(v / capacity * 100))
}

func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}

func isKnownSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}
