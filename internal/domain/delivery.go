package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusAssigned  OrderStatus = "Assigned"
	OrderStatusInTransit OrderStatus = "In Transit"
	OrderStatusDelivered OrderStatus = "Delivered"
)

type RouteStatus string

const (
	RouteStatusPlanning  RouteStatus = "Planning"
	RouteStatusActive    RouteStatus = "Active"
	RouteStatusCompleted RouteStatus = "Completed"
)

type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "Available"
	DriverStatusOnRoute   DriverStatus = "On Route"
	DriverStatusBreak     DriverStatus = "Break"
	DriverStatusOffline   DriverStatus = "Offline"
)

type Order struct {
	ID          string      `json:"order_id"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	TimeSlot    string      `json:"delivery_time_slot"`
	PackageSize string      `json:"package_size"`
	Priority    string      `json:"priority"`
	Volume      float64     `json:"volume"`
	Weight      float64     `json:"weight"`
	Status      OrderStatus `json:"status"`
}

type Cluster struct {
	ID                string  `json:"cluster_id"`
	CentroidLat       float64 `json:"centroid_lat"`
	CentroidLon       float64 `json:"centroid_lon"`
	OrderCount        int     `json:"order_count"`
	TimeWindow        string  `json:"time_window"`
	TotalVolume       float64 `json:"total_volume"`
	TotalWeight       float64 `json:"total_weight"`
	EstimatedDuration int     `json:"estimated_duration"`
}

type Route struct {
	ID                string      `json:"route_id"`
	DriverID          string      `json:"driver_id"`
	DriverName        string      `json:"driver_name"`
	TotalDistance     float64     `json:"total_distance"`
	EstimatedDuration int         `json:"estimated_duration"`
	DeliveryCount     int         `json:"delivery_count"`
	Status            RouteStatus `json:"status"`
	Progress          float64     `json:"progress"`
	VehicleType       string      `json:"vehicle_type"`
}

type Driver struct {
	ID                    string       `json:"driver_id"`
	Name                  string       `json:"name"`
	Status                DriverStatus `json:"status"`
	CurrentLoadVolume     float64      `json:"current_load_volume"`
	VehicleCapacityVolume float64      `json:"vehicle_capacity_volume"`
	CurrentLoadWeight     float64      `json:"current_load_weight"`
	VehicleCapacityWeight float64      `json:"vehicle_capacity_weight"`
	DeliveriesToday       int          `json:"deliveries_today"`
	Rating                float64      `json:"rating"`
	VehicleType           string       `json:"vehicle_type"`
}

type Stats struct {
	PendingOrders       int `json:"pending_orders"`
	ActiveClusters      int `json:"active_clusters"`
	ActiveRoutes        int `json:"active_routes"`
	AvailableDrivers    int `json:"available_drivers"`
	TotalDrivers        int `json:"total_drivers"`
	CompletedDeliveries int `json:"completed_deliveries"`
	AvgDeliveryTime     int `json:"avg_delivery_time"`
	EfficiencyScore     int `json:"efficiency_score"`
}

type Tracking struct {
	RouteID      string    `json:"route_id"`
	DriverID     string    `json:"driver_id"`
	CurrentLat   float64   `json:"current_latitude"`
	CurrentLon   float64   `json:"current_longitude"`
	Progress     float64   `json:"progress"`
	Status       string    `json:"status"`
	NextDelivery string    `json:"next_delivery"`
	ETA          time.Time `json:"eta"`
}

type TimeSlotCount struct {
	TimeSlot string `json:"time_slot"`
	Orders   int    `json:"orders"`
}

type DriverUtilization struct {
	Name              string `json:"name"`
	VolumeUtilization int    `json:"volume_utilization"`
	WeightUtilization int    `json:"weight_utilization"`
}

type DailyTrend struct {
	Day        string `json:"day"`
	Deliveries int    `json:"deliveries"`
	Efficiency int    `json:"efficiency"`
}

type Charts struct {
	OrdersByTimeSlot  []TimeSlotCount     `json:"orders_by_time_slot"`
	DriverUtilization []DriverUtilization `json:"driver_utilization"`
	WeeklyTrend       []DailyTrend        `json:"weekly_trend"`
}

type Dataset struct {
	Orders      []Order             `json:"orders"`
	Clusters    []Cluster           `json:"clusters"`
	Routes      []Route             `json:"routes"`
	Drivers     []Driver            `json:"drivers"`
	Stats       Stats               `json:"stats"`
	Tracking    map[string]Tracking `json:"tracking"`
	Charts      Charts              `json:"charts"`
	GeneratedAt time.Time           `json:"generated_at"`
}
