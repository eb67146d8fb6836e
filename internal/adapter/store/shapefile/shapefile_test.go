package shapefile

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/fjord-atlas/internal/domain"
	"go.ngs.io/fjord-atlas/internal/geometry"
)

// Clockwise outlines, as shapefiles store outer rings.
var (
	notchedFjord = []shp.Point{
		{X: -50, Y: 70}, {X: -50, Y: 71}, {X: -48, Y: 71}, {X: -48, Y: 70.8},
		{X: -49.5, Y: 70.5}, {X: -48, Y: 70.2}, {X: -48, Y: 70}, {X: -50, Y: 70},
	}
	squareFjord = []shp.Point{
		{X: -40, Y: 65}, {X: -40, Y: 66}, {X: -39, Y: 66}, {X: -39, Y: 65}, {X: -40, Y: 65},
	}
)

func polygon(parts ...[]shp.Point) *shp.Polygon {
	var points []shp.Point
	offsets := make([]int32, 0, len(parts))
	for _, p := range parts {
		offsets = append(offsets, int32(len(points)))
		points = append(points, p...)
	}
	return &shp.Polygon{
		Box:       shp.BBoxFromPoints(points),
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(points)),
		Parts:     offsets,
		Points:    points,
	}
}

// writeFjordShapefile writes a two-record fjord master file and returns the .shp path.
func writeFjordShapefile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fjords.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("fjordID", 10),
		shp.StringField("group", 10),
		shp.StringField("gatesIDs", 20),
		shp.NumberField("latorder", 5),
	}))

	rows := []struct {
		shape    *shp.Polygon
		fjordID  string
		group    string
		gates    string
		latorder int
	}{
		{polygon(notchedFjord), "12", "nw", "3;4", 2},
		{polygon(squareFjord), "40", "se", "9", 1},
	}
	for _, row := range rows {
		n := int(w.Write(row.shape))
		require.NoError(t, w.WriteAttribute(n, 0, row.fjordID))
		require.NoError(t, w.WriteAttribute(n, 1, row.group))
		require.NoError(t, w.WriteAttribute(n, 2, row.gates))
		require.NoError(t, w.WriteAttribute(n, 3, row.latorder))
	}
	w.Close()
	return path
}

func zipShapefile(t *testing.T, shpPath string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "Greenland_Fjord_Master.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	base := shpPath[:len(shpPath)-len(filepath.Ext(shpPath))]
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		src, err := os.Open(base + ext)
		require.NoError(t, err)
		dst, err := zw.Create(filepath.Base(base + ext))
		require.NoError(t, err)
		_, err = io.Copy(dst, src)
		require.NoError(t, err)
		require.NoError(t, src.Close())
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return zipPath
}

func ringOf(pts []shp.Point) orb.Ring {
	r := make(orb.Ring, len(pts))
	for i, p := range pts {
		r[i] = orb.Point{p.X, p.Y}
	}
	return r
}

func hullOf(t *testing.T, pts []shp.Point) orb.Polygon {
	t.Helper()
	h, err := geometry.ConvexHull(orb.Polygon{ringOf(pts)})
	require.NoError(t, err)
	return h
}

func asPolygon(t *testing.T, g orb.Geometry) orb.Polygon {
	t.Helper()
	p, ok := g.(orb.Polygon)
	require.True(t, ok, "geometry is %T", g)
	return p
}

// writeRecords writes one POLYGON record per shape with an id column.
func writeRecords(t *testing.T, shapes ...*shp.Polygon) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regions.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("id", 5)}))
	for i, s := range shapes {
		n := int(w.Write(s))
		require.NoError(t, w.WriteAttribute(n, 0, strconv.Itoa(i+1)))
	}
	w.Close()
	return path
}

func square(x, y, size float64) []shp.Point {
	// Clockwise.
	return []shp.Point{{X: x, Y: y}, {X: x, Y: y + size}, {X: x + size, Y: y + size}, {X: x + size, Y: y}, {X: x, Y: y}}
}

func reversed(pts []shp.Point) []shp.Point {
	out := make([]shp.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func TestLoadGDF_HullsGeometry(t *testing.T) {
	path := writeFjordShapefile(t, t.TempDir())

	table, err := LoadGDF(path)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"fjordID", "group", "gatesIDs", "latorder"}, table.Columns)

	first := table.Features[0]
	assert.Equal(t, "12", first.Attr(domain.ColumnFjordID))
	assert.Equal(t, "nw", first.Attr(domain.ColumnGroup))
	assert.Equal(t, "3;4", first.Attr(domain.ColumnGateIDs))
	assert.Equal(t, "2", first.Attr(domain.ColumnLatOrder))

	assert.Equal(t, hullOf(t, notchedFjord), first.Geometry)
	for _, f := range table.Features {
		p := asPolygon(t, f.Geometry)
		require.Len(t, p, 1)
		assert.True(t, geometry.IsConvex(p[0]))
		again, err := geometry.ConvexHull(p)
		require.NoError(t, err)
		assert.Equal(t, p, again)
	}
}

func TestLoadFjordPolygons_Zipped(t *testing.T) {
	zipPath := zipShapefile(t, writeFjordShapefile(t, t.TempDir()))

	table, err := LoadFjordPolygons(zipPath)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	f, ok := table.Find(domain.ColumnFjordID, "40")
	require.True(t, ok)
	assert.Equal(t, "se", f.Attr(domain.ColumnGroup))
	assert.Equal(t, hullOf(t, squareFjord), f.Geometry)
}

func TestLoadRegionPolygons_KeepsOutline(t *testing.T) {
	path := writeFjordShapefile(t, t.TempDir())

	table, err := LoadRegionPolygons(path)
	require.NoError(t, err)

	got := asPolygon(t, table.Features[0].Geometry)
	require.Len(t, got, 1)
	assert.Len(t, got[0], len(notchedFjord))
	assert.False(t, geometry.IsConvex(got[0]))
	assert.Equal(t, orb.CCW, got[0].Orientation())
}

func TestLoadRegionPolygons_TwoIslands(t *testing.T) {
	path := writeRecords(t, polygon(square(-46, 70, 1), square(-44, 70, 1)))

	table, err := LoadRegionPolygons(path)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	mp, ok := table.Features[0].Geometry.(orb.MultiPolygon)
	require.True(t, ok, "geometry is %T", table.Features[0].Geometry)
	require.Len(t, mp, 2)
	assert.InDelta(t, 2.0, planar.Area(mp), 1e-9)
	for _, p := range mp {
		require.Len(t, p, 1)
		assert.Equal(t, orb.CCW, p[0].Orientation())
	}

	// The label anchor sits between the islands' centres, weighted by area.
	c := geometry.Centroid(mp)
	assert.InDelta(t, -44.5, c[0], 1e-9)
	assert.InDelta(t, 70.5, c[1], 1e-9)
}

func TestLoadRegionPolygons_IslandWithLake(t *testing.T) {
	lake := reversed(square(-45.5, 70.5, 1))
	path := writeRecords(t,
		polygon(square(-46, 70, 2), lake, square(-40, 70, 1)),
	)

	table, err := LoadRegionPolygons(path)
	require.NoError(t, err)

	mp, ok := table.Features[0].Geometry.(orb.MultiPolygon)
	require.True(t, ok, "geometry is %T", table.Features[0].Geometry)
	require.Len(t, mp, 2)
	require.Len(t, mp[0], 2, "lake stays a hole of the first island")
	assert.Equal(t, orb.CW, mp[0][1].Orientation())
	assert.Len(t, mp[1], 1)
	assert.InDelta(t, 4.0-1.0+1.0, planar.Area(mp), 1e-9)
}

func TestLoadFjordPolygons_HullSpansIslands(t *testing.T) {
	path := writeRecords(t, polygon(square(-46, 70, 1), square(-44, 70, 1)))

	table, err := LoadFjordPolygons(path)
	require.NoError(t, err)

	p := asPolygon(t, table.Features[0].Geometry)
	assert.Equal(t, orb.Ring{{-46, 70}, {-43, 70}, {-43, 71}, {-46, 71}, {-46, 70}}, p[0])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadFjordPolygons(filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)

	_, err = LoadRegionPolygons(filepath.Join(t.TempDir(), "missing.shp"))
	assert.Error(t, err)
}

func TestLoadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coast.shp")
	w, err := shp.Create(path, shp.POLYLINE)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("name", 10)}))
	line := []shp.Point{{X: -45, Y: 60}, {X: -44, Y: 61}, {X: -43, Y: 61.5}}
	n := int(w.Write(&shp.PolyLine{
		Box:       shp.BBoxFromPoints(line),
		NumParts:  1,
		NumPoints: int32(len(line)),
		Parts:     []int32{0},
		Points:    line,
	}))
	require.NoError(t, w.WriteAttribute(n, 0, "cape"))
	w.Close()

	lines, err := LoadLines(path)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, orb.LineString{{-45, 60}, {-44, 61}, {-43, 61.5}}, lines[0])
}

func TestParts(t *testing.T) {
	pts := []shp.Point{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 4}}
	got := parts([]int32{0, 2}, pts)
	require.Len(t, got, 2)
	assert.Len(t, got[0], 2)
	assert.Len(t, got[1], 3)
}
