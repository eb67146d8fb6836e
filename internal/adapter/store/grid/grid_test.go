package grid

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/fjord-atlas/internal/domain"
)

// createCoordsNC writes a file holding only lat and lon coordinate variables.
func createCoordsNC(t *testing.T, path string, lat, lon []float64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	latDim, err := f.AddDim(LatVarName, uint64(len(lat)))
	require.NoError(t, err)
	lonDim, err := f.AddDim(LonVarName, uint64(len(lon)))
	require.NoError(t, err)
	vlat, err := f.AddVar(LatVarName, netcdf.DOUBLE, []netcdf.Dim{latDim})
	require.NoError(t, err)
	vlon, err := f.AddVar(LonVarName, netcdf.FLOAT, []netcdf.Dim{lonDim})
	require.NoError(t, err)
	require.NoError(t, f.EndDef())

	require.NoError(t, vlat.WriteFloat64s(lat))
	lon32 := make([]float32, len(lon))
	for i, v := range lon {
		lon32[i] = float32(v)
	}
	require.NoError(t, vlon.WriteFloat32s(lon32))
}

// createChlNC writes a chlorophyll file with an integer day time axis and
// chlor_a stored as [time][lat][lon] with a _FillValue attribute.
func createChlNC(t *testing.T, path string, days []int32, lat, lon []float64, chl []float32, fill float32) {
	t.Helper()
	writeChlNC(t, path, days, lat, lon, chl, fill, false)
}

// writeChlNC is createChlNC with chlor_a optionally stored as [time][lon][lat].
func writeChlNC(t *testing.T, path string, days []int32, lat, lon []float64, chl []float32, fill float32, lonFirst bool) {
	t.Helper()
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	timeDim, _ := f.AddDim(TimeVarName, uint64(len(days)))
	latDim, _ := f.AddDim(LatVarName, uint64(len(lat)))
	lonDim, _ := f.AddDim(LonVarName, uint64(len(lon)))
	vtime, _ := f.AddVar(TimeVarName, netcdf.INT, []netcdf.Dim{timeDim})
	vlat, _ := f.AddVar(LatVarName, netcdf.DOUBLE, []netcdf.Dim{latDim})
	vlon, _ := f.AddVar(LonVarName, netcdf.DOUBLE, []netcdf.Dim{lonDim})
	dims := []netcdf.Dim{timeDim, latDim, lonDim}
	if lonFirst {
		dims = []netcdf.Dim{timeDim, lonDim, latDim}
	}
	vchl, err := f.AddVar(ChlVarName, netcdf.FLOAT, dims)
	require.NoError(t, err)
	require.NoError(t, vchl.Attr("_FillValue").WriteFloat32s([]float32{fill}))
	require.NoError(t, f.EndDef())

	require.NoError(t, vtime.WriteInt32s(days))
	require.NoError(t, vlat.WriteFloat64s(lat))
	require.NoError(t, vlon.WriteFloat64s(lon))
	require.NoError(t, vchl.WriteFloat32s(chl))
}

func TestGroupName(t *testing.T) {
	assert.Equal(t, "alpha", GroupName("/data/g_alpha/g_alpha_2009.nc"))
	assert.Equal(t, "ne", GroupName("g_ne_extra_2009.nc"))
	assert.Equal(t, "", GroupName("nounderscore.nc"))
}

func TestGroupBounds_SyntheticGroups(t *testing.T) {
	dir := t.TempDir()
	createCoordsNC(t, filepath.Join(dir, "g_beta", "g_beta_2009.nc"),
		[]float64{75, 74.5, 72}, []float64{-30, -20, -25})
	createCoordsNC(t, filepath.Join(dir, "g_alpha", "g_alpha_2009.nc"),
		[]float64{60, 61, 62}, []float64{-45, -44})
	// Other years are ignored.
	createCoordsNC(t, filepath.Join(dir, "g_alpha", "g_alpha_2010.nc"),
		[]float64{0, 1}, []float64{0, 1})

	bounds, err := GroupBounds(dir, DefaultBoundsYear)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, bounds.Names())
	assert.Equal(t, domain.Bounds{MinLat: 60, MaxLat: 62, MinLon: -45, MaxLon: -44}, bounds["alpha"])
	assert.Equal(t, domain.Bounds{MinLat: 72, MaxLat: 75, MinLon: -30, MaxLon: -20}, bounds["beta"])
}

func TestGroupFiles_LexicographicOrder(t *testing.T) {
	dir := t.TempDir()
	for _, g := range []string{"zeta", "alpha", "mu"} {
		createCoordsNC(t, filepath.Join(dir, "g_"+g, "g_"+g+"_2009.nc"), []float64{1, 2}, []float64{1, 2})
	}

	files, err := GroupFiles(dir, 2009)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "g_alpha_2009.nc", filepath.Base(files[0]))
	assert.Equal(t, "g_zeta_2009.nc", filepath.Base(files[2]))

	none, err := GroupBounds(dir, 1999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGroupBounds_MissingCoordinate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g_gamma", "g_gamma_2009.nc")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	require.NoError(t, err)
	dim, _ := f.AddDim("latitude", 2)
	v, _ := f.AddVar("latitude", netcdf.DOUBLE, []netcdf.Dim{dim})
	require.NoError(t, f.EndDef())
	require.NoError(t, v.WriteFloat64s([]float64{1, 2}))
	require.NoError(t, f.Close())

	_, err = GroupBounds(dir, 2009)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingVariable))
	assert.ErrorContains(t, err, "g_gamma_2009.nc")
}

// chlFixture writes two files given out of time order:
// late.nc holds days 20,21; early.nc holds days 10,11,12.
func chlFixture(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	lat := []float64{61, 60}
	lon := []float64{-46, -45}
	const fill = -999

	early := filepath.Join(dir, "A2009_early.nc")
	createChlNC(t, early, []int32{10, 11, 12}, lat, lon, []float32{
		1, 2, 3, 4,
		5, 120, 7, fill,
		2, 2, 2, 2,
	}, fill)

	late := filepath.Join(dir, "A2009_late.nc")
	createChlNC(t, late, []int32{20, 21}, lat, lon, []float32{
		3, 4, 99, 6,
		fill, fill, fill, fill,
	}, fill)

	return []string{late, early}
}

func TestOpenMonthlyMeans_CombinesByTime(t *testing.T) {
	view, err := OpenMonthlyMeans(chlFixture(t), Options{ChunkSize: 2})
	require.NoError(t, err)

	require.Equal(t, 5, view.Len())
	assert.Equal(t, domain.ConvertIntTime(10), view.Times[0])
	assert.Equal(t, domain.ConvertIntTime(12), view.Times[2])
	assert.Equal(t, domain.ConvertIntTime(21), view.Times[4])
	assert.Equal(t, time.Date(1970, 1, 11, 0, 0, 0, 0, time.UTC), view.Times[0])
	assert.Equal(t, []float64{61, 60}, view.Lat)
	assert.Equal(t, 2, view.ChunkSize())
}

func TestMonthlyMeans_ChunksAndMasking(t *testing.T) {
	view, err := OpenMonthlyMeans(chlFixture(t), Options{ChunkSize: 2})
	require.NoError(t, err)

	var starts, sizes []int
	err = view.Chunks(context.Background(), func(c Chunk) error {
		starts = append(starts, c.Start)
		sizes = append(sizes, len(c.Steps))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, starts)
	assert.Equal(t, []int{2, 1, 2}, sizes)

	fields, err := view.Compute(context.Background())
	require.NoError(t, err)
	require.Len(t, fields, 5)

	// 120 is above the sentinel threshold, -999 is the fill value.
	assert.Equal(t, 5.0, fields[1].At(0, 0))
	assert.True(t, math.IsNaN(fields[1].At(0, 1)))
	assert.True(t, math.IsNaN(fields[1].At(1, 1)))
	// Exactly 99 is masked too.
	assert.True(t, math.IsNaN(fields[3].At(1, 0)))
	assert.Equal(t, 6.0, fields[3].At(1, 1))
	assert.Equal(t, domain.ConvertIntTime(20), fields[3].Time)
}

func TestMonthlyMeans_Mean(t *testing.T) {
	view, err := OpenMonthlyMeans(chlFixture(t), Options{})
	require.NoError(t, err)

	mean, err := view.Mean(context.Background())
	require.NoError(t, err)

	// Cell (0,0): 1, 5, 2, 3 -> 2.75. Cell (0,1): 2, 2, 4 -> 8/3.
	assert.InDelta(t, 2.75, mean.At(0, 0), 1e-9)
	assert.InDelta(t, 8.0/3.0, mean.At(0, 1), 1e-9)
	// Cell (1,0): 3, 7, 2 -> 4. Cell (1,1): 4, 2, 6 -> 4.
	assert.InDelta(t, 4.0, mean.At(1, 0), 1e-9)
	assert.InDelta(t, 4.0, mean.At(1, 1), 1e-9)
}

func TestMonthlyMeans_SliceAndSample(t *testing.T) {
	view, err := OpenMonthlyMeans(chlFixture(t), Options{})
	require.NoError(t, err)
	ctx := context.Background()

	f, err := view.Slice(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.ConvertIntTime(20), f.Time)
	assert.Equal(t, 3.0, f.At(0, 0))

	// Centre of step 0: mean of 1, 2, 3, 4.
	v, err := view.SampleAt(ctx, 0, 60.5, -45.5)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-9)

	// Step 4 is fully masked.
	v, err = view.SampleAt(ctx, 4, 60.5, -45.5)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	_, err = view.Slice(ctx, 5)
	assert.ErrorContains(t, err, "out of range")
}

func TestMonthlyMeans_ContextCancelled(t *testing.T) {
	view, err := OpenMonthlyMeans(chlFixture(t), Options{ChunkSize: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err = view.Chunks(ctx, func(Chunk) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestOpenMonthlyMeans_LonLatLayoutSquareGrid(t *testing.T) {
	// Equal lat and lon lengths: only the dimension names tell the layouts apart.
	path := filepath.Join(t.TempDir(), "lonlat.nc")
	lat := []float64{60, 61}
	lon := []float64{-46, -45}
	// Cell (lat i, lon j) holds 10*i + j + 1, written lon-major.
	writeChlNC(t, path, []int32{5}, lat, lon, []float32{
		1, 11, // lon -46: lat 60, lat 61
		2, 12, // lon -45: lat 60, lat 61
	}, -1, true)

	view, err := OpenMonthlyMeans([]string{path}, Options{})
	require.NoError(t, err)
	f, err := view.Slice(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 1.0, f.At(0, 0))
	assert.Equal(t, 2.0, f.At(0, 1))
	assert.Equal(t, 11.0, f.At(1, 0))
	assert.Equal(t, 12.0, f.At(1, 1))
}

func TestOpenMonthlyMeans_LonLatLayoutRectangularGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lonlat.nc")
	lat := []float64{60, 61}
	lon := []float64{-46, -45, -44}
	writeChlNC(t, path, []int32{5}, lat, lon, []float32{
		1, 11,
		2, 12,
		3, 13,
	}, -1, true)

	view, err := OpenMonthlyMeans([]string{path}, Options{})
	require.NoError(t, err)
	f, err := view.Slice(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 11, 12, 13}, f.Values)
}

func TestTranspose(t *testing.T) {
	// 2 rows x 3 cols to 3 rows x 2 cols.
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, transpose([]float64{1, 2, 3, 4, 5, 6}, 2, 3))
}

func TestMonthlyMeans_Threshold(t *testing.T) {
	files := chlFixture(t)
	ctx := context.Background()

	zero := 0.0
	view, err := OpenMonthlyMeans(files, Options{Threshold: &zero})
	require.NoError(t, err)
	f, err := view.Slice(ctx, 0)
	require.NoError(t, err)
	for _, v := range f.Values {
		assert.True(t, math.IsNaN(v), "threshold 0 masks every positive value")
	}

	high := 1000.0
	view, err = OpenMonthlyMeans(files, Options{Threshold: &high})
	require.NoError(t, err)
	f, err = view.Slice(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 120.0, f.At(0, 1))
	// The fill value stays masked whatever the threshold.
	assert.True(t, math.IsNaN(f.At(1, 1)))
}

func TestOpenMonthlyMeans_Errors(t *testing.T) {
	_, err := OpenMonthlyMeans(nil, Options{})
	assert.Error(t, err)

	dir := t.TempDir()
	a := filepath.Join(dir, "a.nc")
	b := filepath.Join(dir, "b.nc")
	createChlNC(t, a, []int32{1, 2}, []float64{60, 61}, []float64{-45, -44}, make([]float32, 8), -1)
	createChlNC(t, b, []int32{2, 3}, []float64{60, 61}, []float64{-45, -44}, make([]float32, 8), -1)
	_, err = OpenMonthlyMeans([]string{a, b}, Options{})
	assert.ErrorContains(t, err, "overlaps")

	c := filepath.Join(dir, "c.nc")
	createChlNC(t, c, []int32{5}, []float64{70, 71}, []float64{-45, -44}, make([]float32, 4), -1)
	_, err = OpenMonthlyMeans([]string{a, c}, Options{})
	assert.ErrorContains(t, err, "do not align")

	coords := filepath.Join(dir, "coords.nc")
	createCoordsNC(t, coords, []float64{1, 2}, []float64{1, 2})
	_, err = OpenMonthlyMeans([]string{coords}, Options{})
	assert.ErrorIs(t, err, ErrMissingVariable)
}
