// Package geometry provides the polygon simplifications applied to fjord
// outlines before they are stored or drawn.
package geometry

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/planar"
	"github.com/peterstace/simplefeatures/geom"
)

// ConvexHull returns the smallest convex polygon containing every vertex of
// every ring of p. The result has a single closed, counter-clockwise ring that
// starts at the lowest-x (then lowest-y) vertex and carries no collinear
// vertices, so ConvexHull(ConvexHull(p)) equals ConvexHull(p).
//
// Fewer than three non-collinear points yield the distinct extreme points as
// a closed ring; an empty polygon yields an empty polygon.
func ConvexHull(p orb.Polygon) (orb.Polygon, error) {
	return hull(vertices(p))
}

// HullOfMulti is ConvexHull over every polygon of a multipolygon, as used for
// outlines split into several islands.
func HullOfMulti(mp orb.MultiPolygon) (orb.Polygon, error) {
	return hull(vertices(mp))
}

// hull runs the convex hull on the vertex cloud. Vertices are passed as a
// multipoint so self-intersecting source rings cannot fail validation.
func hull(pts orb.MultiPoint) (orb.Polygon, error) {
	if len(pts) == 0 {
		return orb.Polygon{}, nil
	}

	data, err := wkb.Marshal(pts)
	if err != nil {
		return nil, fmt.Errorf("encode vertices: %w", err)
	}
	g, err := geom.UnmarshalWKB(data)
	if err != nil {
		return nil, fmt.Errorf("decode vertices: %w", err)
	}
	out, err := wkb.Unmarshal(g.ConvexHull().AsBinary())
	if err != nil {
		return nil, fmt.Errorf("decode hull: %w", err)
	}

	switch h := out.(type) {
	case orb.Polygon:
		if len(h) > 0 {
			ring := canonicalRing(h[0])
			if !IsConvex(ring) {
				return nil, fmt.Errorf("hull ring is not convex: %v", ring)
			}
			return orb.Polygon{ring}, nil
		}
	case orb.LineString:
		// Collinear input: keep the two extremes.
		ends := uniquePoints(h)
		return orb.Polygon{closeRing([]orb.Point{ends[0], ends[len(ends)-1]})}, nil
	case orb.Point:
		return orb.Polygon{{h, h}}, nil
	}
	return nil, fmt.Errorf("unexpected hull type %s", out.GeoJSONType())
}

// canonicalRing orients r counter-clockwise, drops collinear vertices and
// rotates it to start at the lowest-x (then lowest-y) vertex.
func canonicalRing(r orb.Ring) orb.Ring {
	pts := append([]orb.Point(nil), r...)
	if len(pts) > 1 && pts[0].Equal(pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	if closeRing(pts).Orientation() == orb.CW {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	kept := make([]orb.Point, 0, len(pts))
	for i, p := range pts {
		prev := pts[(i+len(pts)-1)%len(pts)]
		next := pts[(i+1)%len(pts)]
		if cross(prev, p, next) != 0 {
			kept = append(kept, p)
		}
	}

	start := 0
	for i, p := range kept {
		if lessXY(p, kept[start]) {
			start = i
		}
	}
	return closeRing(append(kept[start:], kept[:start]...))
}

// Centroid returns the area centroid of a polygon or multipolygon.
// Degenerate geometries fall back to the mean of their vertices.
func Centroid(g orb.Geometry) orb.Point {
	pts := vertices(g)
	if len(pts) == 0 {
		return orb.Point{}
	}
	if c, area := planar.CentroidArea(g); area != 0 {
		return c
	}
	var sx, sy float64
	for _, pt := range pts {
		sx += pt[0]
		sy += pt[1]
	}
	return orb.Point{sx / float64(len(pts)), sy / float64(len(pts))}
}

// vertices flattens the rings of a polygon or multipolygon.
func vertices(g orb.Geometry) orb.MultiPoint {
	var pts orb.MultiPoint
	switch g := g.(type) {
	case orb.Polygon:
		for _, r := range g {
			pts = append(pts, r...)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			for _, r := range p {
				pts = append(pts, r...)
			}
		}
	}
	return pts
}

// IsConvex reports whether a closed ring turns in one direction only.
func IsConvex(r orb.Ring) bool {
	pts := []orb.Point(r)
	if len(pts) > 1 && pts[0].Equal(pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return false
	}
	sign := 0
	for i := range pts {
		c := cross(pts[i], pts[(i+1)%len(pts)], pts[(i+2)%len(pts)])
		switch {
		case c > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case c < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return sign != 0
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func lessXY(a, b orb.Point) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

func uniquePoints(points []orb.Point) []orb.Point {
	pts := append([]orb.Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool { return lessXY(pts[i], pts[j]) })
	out := pts[:0]
	for i, p := range pts {
		if i == 0 || !p.Equal(pts[i-1]) {
			out = append(out, p)
		}
	}
	return out
}

func closeRing(pts []orb.Point) orb.Ring {
	r := append(orb.Ring(nil), pts...)
	return append(r, pts[0])
}
