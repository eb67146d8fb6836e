// Package shapefile loads fjord and region outlines from ESRI shapefiles,
// either plain .shp files or zip archives holding one.
package shapefile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"

	"go.ngs.io/fjord-atlas/internal/domain"
	"go.ngs.io/fjord-atlas/internal/geometry"
)

// ErrUnsupportedShape is returned for records that carry no area or line geometry.
var ErrUnsupportedShape = errors.New("unsupported shape type")

// Options controls how a shapefile is turned into a polygon table.
type Options struct {
	// Hull replaces every geometry with its convex hull.
	Hull bool
}

// LoadFjordPolygons reads the fjord master shapefile and simplifies each
// outline to its convex hull.
func LoadFjordPolygons(path string) (*domain.PolygonTable, error) {
	return Load(path, Options{Hull: true})
}

// LoadRegionPolygons reads the extended region shapefile unchanged.
func LoadRegionPolygons(path string) (*domain.PolygonTable, error) {
	return Load(path, Options{})
}

// LoadGDF reads any shapefile and simplifies each outline to its convex hull.
func LoadGDF(path string) (*domain.PolygonTable, error) {
	return Load(path, Options{Hull: true})
}

// LoadLines reads polyline or polygon shapes as line strings, for overlays
// such as coastlines.
func LoadLines(path string) ([]orb.LineString, error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	var lines []orb.LineString
	for r.Next() {
		_, s := r.Shape()
		lines = append(lines, shapeLines(s)...)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}

// Load reads the shapefile at path into a polygon table.
func Load(path string, opts Options) (*domain.PolygonTable, error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	fields := r.Fields()
	table := &domain.PolygonTable{Columns: make([]string, len(fields))}
	for i, f := range fields {
		table.Columns[i] = fieldName(f)
	}

	for r.Next() {
		n, s := r.Shape()
		g, err := shapePolygon(s, opts.Hull)
		if err != nil {
			return nil, fmt.Errorf("record %d of %s: %w", n, path, err)
		}
		attrs := make(map[string]string, len(fields))
		for i, col := range table.Columns {
			attrs[col] = strings.TrimSpace(r.Attribute(n, i))
		}
		table.Features = append(table.Features, domain.Feature{Attributes: attrs, Geometry: g})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Int("features", table.Len()).
		Bool("hull", opts.Hull).
		Msg("Loaded polygons")

	return table, nil
}

// reader unifies the plain and zipped go-shp readers.
type reader interface {
	Next() bool
	Shape() (int, shp.Shape)
	Fields() []shp.Field
	Attribute(row, field int) string
	Err() error
	Close() error
}

type fileReader struct{ *shp.Reader }

func (r fileReader) Attribute(row, field int) string { return r.ReadAttribute(row, field) }

type zipReader struct{ *shp.ZipReader }

func (r zipReader) Attribute(_ int, field int) string { return r.ZipReader.Attribute(field) }

func open(path string) (reader, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		zr, err := shp.OpenZip(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open zipped shapefile %s: %w", path, err)
		}
		return zipReader{zr}, nil
	}
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	return fileReader{r}, nil
}

func fieldName(f shp.Field) string {
	return strings.TrimRight(f.String(), "\x00 ")
}

// parts splits a go-shp point list at the part offsets.
func parts(offsets []int32, points []shp.Point) [][]shp.Point {
	out := make([][]shp.Point, 0, len(offsets))
	for i, start := range offsets {
		end := int32(len(points))
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		out = append(out, points[start:end])
	}
	return out
}

func toRing(pts []shp.Point) orb.Ring {
	ring := make(orb.Ring, len(pts))
	for i, p := range pts {
		ring[i] = orb.Point{p.X, p.Y}
	}
	if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}

// shapePolygon converts a polygon record. Shapefile outer rings are clockwise
// and each is followed by its counter-clockwise holes; both are reversed to
// orb's convention. Records with several outer rings become multipolygons.
// With hull set, every part is replaced by the hull of all parts.
func shapePolygon(s shp.Shape, hull bool) (orb.Geometry, error) {
	var rings []orb.Ring
	switch g := s.(type) {
	case *shp.Polygon:
		for _, part := range parts(g.Parts, g.Points) {
			rings = append(rings, toRing(part))
		}
	case *shp.PolygonZ:
		for _, part := range parts(g.Parts, g.Points) {
			rings = append(rings, toRing(part))
		}
	case *shp.PolygonM:
		for _, part := range parts(g.Parts, g.Points) {
			rings = append(rings, toRing(part))
		}
	case *shp.Null:
		return orb.Polygon{}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedShape, s)
	}

	polys := assemble(rings)
	if hull {
		return geometry.HullOfMulti(polys)
	}
	if len(polys) == 1 {
		return polys[0], nil
	}
	return polys, nil
}

// assemble groups rings by winding: a clockwise ring starts a new polygon,
// a counter-clockwise ring is a hole of the current one. A leading
// counter-clockwise ring is taken as an outer ring written with the wrong
// winding.
func assemble(rings []orb.Ring) orb.MultiPolygon {
	var polys orb.MultiPolygon
	for _, r := range rings {
		if len(r) < 4 {
			continue
		}
		outer := r.Orientation() == orb.CW
		r.Reverse()
		if outer || len(polys) == 0 {
			polys = append(polys, orb.Polygon{r})
			continue
		}
		last := len(polys) - 1
		polys[last] = append(polys[last], r)
	}
	if len(polys) == 0 {
		return orb.MultiPolygon{orb.Polygon{}}
	}
	return polys
}

func shapeLines(s shp.Shape) []orb.LineString {
	var pp [][]shp.Point
	switch g := s.(type) {
	case *shp.PolyLine:
		pp = parts(g.Parts, g.Points)
	case *shp.PolyLineZ:
		pp = parts(g.Parts, g.Points)
	case *shp.Polygon:
		pp = parts(g.Parts, g.Points)
	case *shp.PolygonZ:
		pp = parts(g.Parts, g.Points)
	default:
		return nil
	}
	lines := make([]orb.LineString, 0, len(pp))
	for _, part := range pp {
		ls := make(orb.LineString, len(part))
		for i, p := range part {
			ls[i] = orb.Point{p.X, p.Y}
		}
		lines = append(lines, ls)
	}
	return lines
}
