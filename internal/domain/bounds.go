package domain

import "sort"

// Bounds holds the lat/lon extrema of one group's grid.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether (lat, lon) lies inside the bounds, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// GroupBounds maps a group name to the extrema of its annual grid.
type GroupBounds map[string]Bounds

// Names returns the group names in sorted order.
func (g GroupBounds) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FjordGate pairs a fjord with the gate used for its flux calculations.
type FjordGate struct {
	FjordID string `json:"fjord_id"`
	GateID  string `json:"gate_id"`
}
