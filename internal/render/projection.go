// Package render draws fjord and region outlines on a stereographic map of
// Greenland and writes the figure as PNG or WebP.
package render

import (
	"math"

	"go.ngs.io/fjord-atlas/internal/domain"
)

const earthRadiusM = 6378137.0

// Stereographic is a spherical stereographic projection.
type Stereographic struct {
	CentralLon float64
	CentralLat float64
}

// GreenlandStereographic is the projection used for every Greenland map:
// centred on the pole, with -45° longitude pointing down the page.
func GreenlandStereographic() Stereographic {
	return Stereographic{CentralLon: -45, CentralLat: 90}
}

// Forward projects lon/lat degrees to map metres. The antipode of the centre
// is not representable and yields infinities.
func (s Stereographic) Forward(lon, lat float64) (x, y float64) {
	phi := lat * math.Pi / 180
	phi0 := s.CentralLat * math.Pi / 180
	dl := (lon - s.CentralLon) * math.Pi / 180

	sinPhi, cosPhi := math.Sincos(phi)
	sinPhi0, cosPhi0 := math.Sincos(phi0)
	cosDl := math.Cos(dl)

	k := 2 * earthRadiusM / (1 + sinPhi0*sinPhi + cosPhi0*cosPhi*cosDl)
	x = k * cosPhi * math.Sin(dl)
	y = k * (cosPhi0*sinPhi - sinPhi0*cosPhi*cosDl)
	return x, y
}

// projectedBox returns the map-metre bounding box of a lon/lat extent,
// sampling its edges since meridians and parallels curve under the projection.
func (s Stereographic) projectedBox(e domain.Extent) (minX, minY, maxX, maxY float64) {
	const steps = 64
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	add := func(lon, lat float64) {
		x, y := s.Forward(lon, lat)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	for i := 0; i <= steps; i++ {
		f := float64(i) / steps
		lon := e.MinLon + f*(e.MaxLon-e.MinLon)
		lat := e.MinLat + f*(e.MaxLat-e.MinLat)
		add(lon, e.MinLat)
		add(lon, e.MaxLat)
		add(e.MinLon, lat)
		add(e.MaxLon, lat)
	}
	return minX, minY, maxX, maxY
}
