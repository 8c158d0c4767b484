package metrics

import (
	"fmt"
	"math/rand/v2"
	"time"

	"fleet_console/internal/domain"
)

const (
	BaseLatitude  = 40.7589
	BaseLongitude = -73.9851

	driverCapacityVolume = 10
	driverCapacityWeight = 1000
)

var (
	TimeSlots    = []string{"09:00-11:00", "11:00-13:00", "13:00-15:00", "15:00-17:00", "17:00-19:00", "19:00-21:00"}
	PackageSizes = []string{"Small", "Medium", "Large"}
	Priorities   = []string{"High", "Medium", "Low"}
	VehicleTypes = []string{"Van", "Truck", "Motorcycle"}
	DriverNames  = []string{
		"Alice Johnson", "Bob Smith", "Carol Brown", "David Wilson", "Eva Davis",
		"Frank Miller", "Grace Lee", "Henry Chen", "Iris Garcia", "Jack Taylor",
	}
	Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

	orderStatuses  = []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusAssigned, domain.OrderStatusInTransit, domain.OrderStatusDelivered}
	routeStatuses  = []domain.RouteStatus{domain.RouteStatusPlanning, domain.RouteStatusActive, domain.RouteStatusCompleted}
	driverStatuses = []domain.DriverStatus{domain.DriverStatusAvailable, domain.DriverStatusOnRoute, domain.DriverStatusBreak, domain.DriverStatusOffline}
)

type Sizes struct {
	Orders   int
	Clusters int
	Routes   int
	Drivers  int
}

func (s Sizes) withDefaults() Sizes {
	if s.Orders <= 0 {
		s.Orders = 50
	}
	if s.Clusters <= 0 {
		s.Clusters = 8
	}
	if s.Routes <= 0 {
		s.Routes = 6
	}
	if s.Drivers <= 0 {
		s.Drivers = 10
	}
	return s
}

// NewRand returns a generator seeded with seed, or with the clock when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Generate builds the full dashboard dataset in one pass. Nothing in it is
// recomputed afterwards.
func Generate(rng *rand.Rand, sizes Sizes, now time.Time) domain.Dataset {
	sizes = sizes.withDefaults()
	orders := GenerateOrders(rng, sizes.Orders)
	clusters := GenerateClusters(rng, sizes.Clusters)
	routes := GenerateRoutes(rng, sizes.Routes)
	drivers := GenerateDrivers(rng, sizes.Drivers)
	return domain.Dataset{
		Orders:   orders,
		Clusters: clusters,
		Routes:   routes,
		Drivers:  drivers,
		Stats:    ComputeStats(rng, orders, clusters, routes, drivers),
		Tracking: GenerateTracking(rng, routes, sizes.Orders, now),
		Charts: domain.Charts{
			OrdersByTimeSlot:  OrdersByTimeSlot(orders),
			DriverUtilization: DriverUtilization(drivers, 6),
			WeeklyTrend:       WeeklyTrend(rng),
		},
		GeneratedAt: now,
	}
}

func GenerateOrders(rng *rand.Rand, n int) []domain.Order {
	out := make([]domain.Order, n)
	for i := range out {
		out[i] = domain.Order{
			ID:          fmt.Sprintf("ORD-%03d", i+1),
			Latitude:    jitter(rng, BaseLatitude, 0.1),
			Longitude:   jitter(rng, BaseLongitude, 0.1),
			TimeSlot:    pick(rng, TimeSlots),
			PackageSize: pick(rng, PackageSizes),
			Priority:    pick(rng, Priorities),
			Volume:      uniform(rng, 0.1, 0.6),
			Weight:      uniform(rng, 1, 11),
			Status:      pick(rng, orderStatuses),
		}
	}
	return out
}

func GenerateClusters(rng *rand.Rand, n int) []domain.Cluster {
	out := make([]domain.Cluster, n)
	for i := range out {
		out[i] = domain.Cluster{
			ID:                fmt.Sprintf("CLU-%02d", i+1),
			CentroidLat:       jitter(rng, BaseLatitude, 0.08),
			CentroidLon:       jitter(rng, BaseLongitude, 0.08),
			OrderCount:        intIn(rng, 3, 10),
			TimeWindow:        pick(rng, TimeSlots),
			TotalVolume:       uniform(rng, 2, 7),
			TotalWeight:       uniform(rng, 20, 70),
			EstimatedDuration: intIn(rng, 30, 89),
		}
	}
	return out
}

// GenerateRoutes assigns drivers DRV-01.. in order; names wrap when more
// routes than known drivers are requested.
func GenerateRoutes(rng *rand.Rand, n int) []domain.Route {
	out := make([]domain.Route, n)
	for i := range out {
		out[i] = domain.Route{
			ID:                fmt.Sprintf("RTE-%02d", i+1),
			DriverID:          fmt.Sprintf("DRV-%02d", i+1),
			DriverName:        DriverNames[i%len(DriverNames)],
			TotalDistance:     uniform(rng, 20, 70),
			EstimatedDuration: intIn(rng, 60, 239),
			DeliveryCount:     intIn(rng, 5, 16),
			Status:            pick(rng, routeStatuses),
			Progress:          rng.Float64(),
			VehicleType:       pick(rng, VehicleTypes),
		}
	}
	return out
}

func GenerateDrivers(rng *rand.Rand, n int) []domain.Driver {
	out := make([]domain.Driver, n)
	for i := range out {
		out[i] = domain.Driver{
			ID:                    fmt.Sprintf("DRV-%02d", i+1),
			Name:                  DriverNames[i%len(DriverNames)],
			Status:                pick(rng, driverStatuses),
			CurrentLoadVolume:     uniform(rng, 0, 8),
			VehicleCapacityVolume: driverCapacityVolume,
			CurrentLoadWeight:     uniform(rng, 0, 800),
			VehicleCapacityWeight: driverCapacityWeight,
			DeliveriesToday:       intIn(rng, 0, 14),
			Rating:                uniform(rng, 4.0, 5.0),
			VehicleType:           pick(rng, VehicleTypes),
		}
	}
	return out
}

// ComputeStats counts from the generated records. Completed deliveries,
// average delivery time and efficiency score are drawn independently and are
// not derived from any record.
func ComputeStats(rng *rand.Rand, orders []domain.Order, clusters []domain.Cluster, routes []domain.Route, drivers []domain.Driver) domain.Stats {
	stats := domain.Stats{
		ActiveClusters: len(clusters),
		TotalDrivers:   len(drivers),
	}
	for _, o := range orders {
		if o.Status == domain.OrderStatusPending {
			stats.PendingOrders++
		}
	}
	for _, r := range routes {
		if r.Status == domain.RouteStatusActive {
			stats.ActiveRoutes++
		}
	}
	for _, d := range drivers {
		if d.Status == domain.DriverStatusAvailable {
			stats.AvailableDrivers++
		}
	}
	stats.CompletedDeliveries = intIn(rng, 200, 349)
	stats.AvgDeliveryTime = intIn(rng, 25, 54)
	stats.EfficiencyScore = intIn(rng, 80, 99)
	return stats
}

// GenerateTracking produces one snapshot per active route. Values are drawn
// once and never refreshed.
func GenerateTracking(rng *rand.Rand, routes []domain.Route, orderCount int, now time.Time) map[string]domain.Tracking {
	if orderCount <= 0 {
		orderCount = 50
	}
	out := make(map[string]domain.Tracking)
	for _, r := range routes {
		if r.Status != domain.RouteStatusActive {
			continue
		}
		out[r.ID] = domain.Tracking{
			RouteID:      r.ID,
			DriverID:     r.DriverID,
			CurrentLat:   jitter(rng, BaseLatitude, 0.1),
			CurrentLon:   jitter(rng, BaseLongitude, 0.1),
			Progress:     rng.Float64(),
			Status:       string(domain.OrderStatusInTransit),
			NextDelivery: fmt.Sprintf("ORD-%03d", intIn(rng, 1, orderCount)),
			ETA:          now.Add(time.Duration(rng.Int64N(int64(2 * time.Hour)))),
		}
	}
	return out
}

func jitter(rng *rand.Rand, base, span float64) float64 {
	return base + (rng.Float64()-0.5)*span
}

// uniform draws from [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// intIn draws from [lo, hi] inclusive.
func intIn(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

func pick[T any](rng *rand.Rand, values []T) T {
	return values[rng.IntN(len(values))]
}
