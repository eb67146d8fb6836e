package domain

// PanelPosition places a region in a multi-panel figure: the zero-based
// panel index and the subplot letter printed in its corner.
type PanelPosition struct {
	Index  int    `json:"index" yaml:"index"`
	Letter string `json:"letter" yaml:"letter"`
}

// RegionNamesMap returns the region id to name table used for figure titles.
// A fresh map is built on every call.
func RegionNamesMap() map[int]string {
	return map[int]string{
		0: "Kangerdlugssuaq",
		1: "Storstrommen",
		2: "Zachariae",
		3: "Qannaq",
		4: "Kakivfaat",
		5: "Upernavik",
		6: "Ummannaq",
		7: "Torsukataq",
	}
}

// RegionPosition returns the region id to figure panel table.
func RegionPosition() map[int]PanelPosition {
	return map[int]PanelPosition{
		1: {Index: 3, Letter: "a"},
		2: {Index: 2, Letter: "f"},
		3: {Index: 4, Letter: "b"},
		4: {Index: 1, Letter: "g"},
		5: {Index: 5, Letter: "c"},
		6: {Index: 0, Letter: "h"},
		7: {Index: 6, Letter: "d"},
		8: {Index: 7, Letter: "j"},
	}
}

// GLExtents4326 returns the Greenland map extent in EPSG:4326 degrees.
//
// The values are consumed as [lon0, lon1, lat0, lat1] by the map renderer.
func GLExtents4326() []float64 {
	return []float64{-59, -29, 58, 85}
}

// Extent is a lon/lat box.
type Extent struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// GreenlandExtent returns GLExtents4326 as an Extent.
func GreenlandExtent() Extent {
	e := GLExtents4326()
	return Extent{MinLon: e[0], MaxLon: e[1], MinLat: e[2], MaxLat: e[3]}
}
