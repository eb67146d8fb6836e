package domain

import (
	"sort"

	"github.com/paulmach/orb"
)

// Common attribute columns found in the fjord and region master shapefiles.
const (
	ColumnID       = "id"
	ColumnFjordID  = "fjordID"
	ColumnGateIDs  = "gatesIDs"
	ColumnGroup    = "group"
	ColumnLatOrder = "latorder"
	ColumnGlaciers = "glaciers"
)

// Feature is one row of a polygon table: a fjord or region outline with its
// attribute columns. Geometry is an orb.Polygon, or an orb.MultiPolygon for
// outlines made of several islands.
type Feature struct {
	Attributes map[string]string
	Geometry   orb.Geometry
}

// Polygons returns the polygons making up the geometry.
func (f Feature) Polygons() []orb.Polygon {
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return g
	}
	return nil
}

// Empty reports whether the feature has no vertices, as for null shapes.
func (f Feature) Empty() bool {
	for _, p := range f.Polygons() {
		for _, r := range p {
			if len(r) > 0 {
				return false
			}
		}
	}
	return true
}

// Attr returns the attribute value for column, or "" when absent.
func (f Feature) Attr(column string) string {
	return f.Attributes[column]
}

// PolygonTable is an ordered set of features sharing the same column layout.
// Identifier values are unique by convention only.
type PolygonTable struct {
	Columns  []string
	Features []Feature
}

// Len returns the number of rows.
func (t *PolygonTable) Len() int {
	return len(t.Features)
}

// HasColumn reports whether the table carries the named attribute column.
func (t *PolygonTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Find returns the first feature whose column equals value.
func (t *PolygonTable) Find(column, value string) (Feature, bool) {
	for _, f := range t.Features {
		if f.Attributes[column] == value {
			return f, true
		}
	}
	return Feature{}, false
}

// Filter returns a new table holding only the features accepted by keep.
func (t *PolygonTable) Filter(keep func(Feature) bool) *PolygonTable {
	out := &PolygonTable{Columns: append([]string(nil), t.Columns...)}
	for _, f := range t.Features {
		if keep(f) {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// Groups returns the distinct values of the group column in sorted order.
func (t *PolygonTable) Groups() []string {
	seen := make(map[string]bool)
	for _, f := range t.Features {
		if g := f.Attributes[ColumnGroup]; g != "" {
			seen[g] = true
		}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Bound returns the bounding box of every geometry in the table, and false
// when the table holds no geometry.
func (t *PolygonTable) Bound() (orb.Bound, bool) {
	var (
		b  orb.Bound
		ok bool
	)
	for _, f := range t.Features {
		if f.Empty() {
			continue
		}
		fb := f.Geometry.Bound()
		if !ok {
			b, ok = fb, true
			continue
		}
		b = b.Union(fb)
	}
	return b, ok
}
