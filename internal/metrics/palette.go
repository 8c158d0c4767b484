package metrics

const fallbackColor = "#999999"

var clusterColors = []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FECA57", "#FF9FF3"}

var timeSlotColors = map[string]string{
	"09:00-11:00": "#FF6B6B",
	"11:00-13:00": "#4ECDC4",
	"13:00-15:00": "#45B7D1",
	"15:00-17:00": "#96CEB4",
	"17:00-19:00": "#FECA57",
	"19:00-21:00": "#FF9FF3",
}

var statusColors = map[string]string{
	"Pending":    "#FFA500",
	"Assigned":   "#4169E1",
	"Active":     "#32CD32",
	"In Transit": "#FF69B4",
	"Completed":  "#228B22",
	"Available":  "#32CD32",
	"On Route":   "#FF69B4",
	"Break":      "#FFA500",
	"Offline":    "#808080",
}

func ClusterColor(index int) string {
	if index < 0 {
		index = -index
	}
	return clusterColors[index%len(clusterColors)]
}

func TimeSlotColor(slot string) string {
	if c, ok := timeSlotColors[slot]; ok {
		return c
	}
	return fallbackColor
}

func StatusColor(status string) string {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return fallbackColor
}
