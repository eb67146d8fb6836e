package grid

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/rs/zerolog/log"

	"go.ngs.io/fjord-atlas/internal/adapter/interp"
	"go.ngs.io/fjord-atlas/internal/domain"
)

const (
	// DefaultChunkSize is the number of time steps read per chunk.
	DefaultChunkSize = 50
	// DefaultChlThreshold masks chlorophyll values at or above it (fill/sentinel values).
	DefaultChlThreshold = 99.0
)

// Options configures a MonthlyMeans view.
type Options struct {
	ChunkSize int
	// Threshold masks values at or above it; nil means DefaultChlThreshold.
	Threshold *float64
	Variable  string
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Threshold == nil {
		t := DefaultChlThreshold
		o.Threshold = &t
	}
	if o.Variable == "" {
		o.Variable = ChlVarName
	}
	return o
}

// Field is one time step of the masked chlorophyll grid. Values are stored
// row-major as [lat][lon]; masked cells are NaN.
type Field struct {
	Time   time.Time
	Lat    []float64
	Lon    []float64
	Values []float64
}

// At returns the value at lat index i and lon index j.
func (f Field) At(i, j int) float64 {
	return f.Values[i*len(f.Lon)+j]
}

// Chunk is a run of consecutive time steps from one file.
type Chunk struct {
	Start int // index of the first step in the whole view
	Steps []Field
}

type source struct {
	path       string
	offset     int // index of the file's first step in the view
	steps      int
	transposed bool // variable stored as [time][lon][lat]
}

// MonthlyMeans is a lazy view over several chlorophyll files combined along
// time. Opening reads coordinates only; chlorophyll values are read when a
// chunk, step or mean is requested, so read errors surface there.
type MonthlyMeans struct {
	Lat   []float64
	Lon   []float64
	Times []time.Time

	opts    Options
	sources []source
}

// OpenMonthlyMeans opens files as one view. Files are ordered by their first
// time value, must share identical lat/lon coordinates, and together must
// form a strictly increasing time axis.
func OpenMonthlyMeans(files []string, opts Options) (*MonthlyMeans, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no chlorophyll files given")
	}
	opts = opts.withDefaults()

	headers := make([]fileHeader, 0, len(files))
	for _, path := range files {
		h, err := readHeader(path, opts.Variable)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}

	sort.SliceStable(headers, func(i, j int) bool {
		return firstOrInf(headers[i].days) < firstOrInf(headers[j].days)
	})

	m := &MonthlyMeans{Lat: headers[0].lat, Lon: headers[0].lon, opts: opts}
	for _, h := range headers {
		if !sameAxis(h.lat, m.Lat) || !sameAxis(h.lon, m.Lon) {
			return nil, fmt.Errorf("%s: lat/lon coordinates do not align with %s", h.src.path, headers[0].src.path)
		}
		h.src.offset = len(m.Times)
		for _, d := range h.days {
			t := domain.ConvertDays(d)
			if n := len(m.Times); n > 0 && !t.After(m.Times[n-1]) {
				return nil, fmt.Errorf("%s: time %s overlaps or precedes %s",
					h.src.path, t.Format(time.DateOnly), m.Times[n-1].Format(time.DateOnly))
			}
			m.Times = append(m.Times, t)
		}
		m.sources = append(m.sources, h.src)
	}

	log.Debug().
		Int("files", len(m.sources)).
		Int("steps", len(m.Times)).
		Int("chunk_size", opts.ChunkSize).
		Msg("Opened chlorophyll view")

	return m, nil
}

type fileHeader struct {
	src      source
	days     []float64
	lat, lon []float64
}

func readHeader(path, variable string) (fileHeader, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return fileHeader{}, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	h := fileHeader{src: source{path: path}}
	if h.days, err = readCoord(nc, TimeVarName); err != nil {
		return fileHeader{}, fmt.Errorf("%s: %w", path, err)
	}
	if h.lat, err = readCoord(nc, LatVarName); err != nil {
		return fileHeader{}, fmt.Errorf("%s: %w", path, err)
	}
	if h.lon, err = readCoord(nc, LonVarName); err != nil {
		return fileHeader{}, fmt.Errorf("%s: %w", path, err)
	}

	v, err := lookupVar(nc, variable)
	if err != nil {
		return fileHeader{}, fmt.Errorf("%s: %w", path, err)
	}
	dims, err := v.Dims()
	if err != nil {
		return fileHeader{}, fmt.Errorf("%s: failed to get dimensions: %w", path, err)
	}
	if len(dims) != 3 {
		return fileHeader{}, fmt.Errorf("%s: expected 3D %s, got %dD", path, variable, len(dims))
	}
	lens := make([]uint64, 3)
	names := make([]string, 3)
	for i, d := range dims {
		if lens[i], err = d.Len(); err != nil {
			return fileHeader{}, fmt.Errorf("%s: failed to get dim length: %w", path, err)
		}
		if names[i], err = d.Name(); err != nil {
			return fileHeader{}, fmt.Errorf("%s: failed to get dim name: %w", path, err)
		}
	}

	nt, nLat, nLon := uint64(len(h.days)), uint64(len(h.lat)), uint64(len(h.lon))
	switch {
	case names[1] == LatVarName && names[2] == LonVarName:
	case names[1] == LonVarName && names[2] == LatVarName:
		h.src.transposed = true
	case nLat != nLon && lens[1] == nLon && lens[2] == nLat:
		// Dimensions named otherwise: lengths decide when they differ.
		h.src.transposed = true
	}

	want := []uint64{nt, nLat, nLon}
	if h.src.transposed {
		want[1], want[2] = nLon, nLat
	}
	if lens[0] != want[0] || lens[1] != want[1] || lens[2] != want[2] {
		return fileHeader{}, fmt.Errorf("%s: dimension mismatch: %s%v is %v, expected %v",
			path, variable, names, lens, want)
	}
	h.src.steps = len(h.days)
	return h, nil
}

// Len returns the number of time steps.
func (m *MonthlyMeans) Len() int {
	return len(m.Times)
}

// ChunkSize returns the number of steps read per chunk.
func (m *MonthlyMeans) ChunkSize() int {
	return m.opts.ChunkSize
}

// Chunks reads the view chunk by chunk in time order and passes each chunk
// to fn. Iteration stops at the first error from fn, a read, or ctx.
func (m *MonthlyMeans) Chunks(ctx context.Context, fn func(Chunk) error) error {
	for _, src := range m.sources {
		if err := m.readSource(ctx, src, fn); err != nil {
			return err
		}
	}
	return nil
}

func (m *MonthlyMeans) readSource(ctx context.Context, src source, fn func(Chunk) error) error {
	nc, err := netcdf.OpenFile(src.path, netcdf.NOWRITE)
	if err != nil {
		return fmt.Errorf("failed to open NetCDF file %s: %w", src.path, err)
	}
	defer func() { _ = nc.Close() }()

	v, err := lookupVar(nc, m.opts.Variable)
	if err != nil {
		return fmt.Errorf("%s: %w", src.path, err)
	}
	fill, hasFill := getFillValue(v)

	for off := 0; off < src.steps; off += m.opts.ChunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(m.opts.ChunkSize, src.steps-off)
		chunk, err := m.readSteps(v, src, off, n)
		if err != nil {
			return fmt.Errorf("%s: failed to read %s steps %d-%d: %w", src.path, m.opts.Variable, off, off+n-1, err)
		}
		if hasFill {
			maskValue(chunk.Steps, fill)
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (m *MonthlyMeans) readSteps(v netcdf.Var, src source, off, n int) (Chunk, error) {
	nLat, nLon := len(m.Lat), len(m.Lon)
	count := []uint64{uint64(n), uint64(nLat), uint64(nLon)}
	if src.transposed {
		count[1], count[2] = count[2], count[1]
	}
	flat, err := readSlab(v, []uint64{uint64(off), 0, 0}, count)
	if err != nil {
		return Chunk{}, err
	}

	size := nLat * nLon
	chunk := Chunk{Start: src.offset + off, Steps: make([]Field, n)}
	for k := 0; k < n; k++ {
		values := flat[k*size : (k+1)*size]
		if src.transposed {
			values = transpose(values, nLon, nLat)
		}
		for i, val := range values {
			if math.IsNaN(val) || val >= *m.opts.Threshold {
				values[i] = math.NaN()
			}
		}
		chunk.Steps[k] = Field{
			Time:   m.Times[src.offset+off+k],
			Lat:    m.Lat,
			Lon:    m.Lon,
			Values: values,
		}
	}
	return chunk, nil
}

// Slice reads a single time step.
func (m *MonthlyMeans) Slice(ctx context.Context, step int) (Field, error) {
	if step < 0 || step >= len(m.Times) {
		return Field{}, fmt.Errorf("time step %d out of range [0, %d)", step, len(m.Times))
	}
	for _, src := range m.sources {
		if step >= src.offset+src.steps {
			continue
		}
		var out Field
		err := m.readRange(ctx, src, step-src.offset, func(c Chunk) error {
			out = c.Steps[0]
			return nil
		})
		return out, err
	}
	return Field{}, fmt.Errorf("time step %d not found", step)
}

func (m *MonthlyMeans) readRange(ctx context.Context, src source, off int, fn func(Chunk) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	nc, err := netcdf.OpenFile(src.path, netcdf.NOWRITE)
	if err != nil {
		return fmt.Errorf("failed to open NetCDF file %s: %w", src.path, err)
	}
	defer func() { _ = nc.Close() }()

	v, err := lookupVar(nc, m.opts.Variable)
	if err != nil {
		return fmt.Errorf("%s: %w", src.path, err)
	}
	chunk, err := m.readSteps(v, src, off, 1)
	if err != nil {
		return fmt.Errorf("%s: failed to read %s step %d: %w", src.path, m.opts.Variable, off, err)
	}
	if fill, ok := getFillValue(v); ok {
		maskValue(chunk.Steps, fill)
	}
	return fn(chunk)
}

// Compute materializes every time step.
func (m *MonthlyMeans) Compute(ctx context.Context) ([]Field, error) {
	out := make([]Field, 0, len(m.Times))
	err := m.Chunks(ctx, func(c Chunk) error {
		out = append(out, c.Steps...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Mean returns the per-cell temporal mean over all steps, ignoring masked
// values. Cells with no valid value are NaN. The returned field carries the
// time of the first step.
func (m *MonthlyMeans) Mean(ctx context.Context) (Field, error) {
	size := len(m.Lat) * len(m.Lon)
	sum := make([]float64, size)
	count := make([]int, size)

	err := m.Chunks(ctx, func(c Chunk) error {
		for _, step := range c.Steps {
			for i, v := range step.Values {
				if !math.IsNaN(v) {
					sum[i] += v
					count[i]++
				}
			}
		}
		return nil
	})
	if err != nil {
		return Field{}, err
	}

	for i := range sum {
		if count[i] == 0 {
			sum[i] = math.NaN()
			continue
		}
		sum[i] /= float64(count[i])
	}

	var t time.Time
	if len(m.Times) > 0 {
		t = m.Times[0]
	}
	return Field{Time: t, Lat: m.Lat, Lon: m.Lon, Values: sum}, nil
}

// SampleAt bilinearly interpolates one time step at (lat, lon), skipping
// masked corners. It returns NaN when every surrounding cell is masked.
func (m *MonthlyMeans) SampleAt(ctx context.Context, step int, lat, lon float64) (float64, error) {
	f, err := m.Slice(ctx, step)
	if err != nil {
		return 0, err
	}
	return f.SampleAt(lat, lon)
}

// SampleAt interpolates the field at (lat, lon).
func (f Field) SampleAt(lat, lon float64) (float64, error) {
	rows := make([][]float64, len(f.Lat))
	for i := range rows {
		rows[i] = f.Values[i*len(f.Lon) : (i+1)*len(f.Lon)]
	}
	g, err := interp.NewGrid2D(f.Lon, f.Lat, rows)
	if err != nil {
		return 0, fmt.Errorf("invalid grid: %w", err)
	}
	return g.InterpolateAt(lon, lat)
}

func maskValue(steps []Field, fill float64) {
	for _, s := range steps {
		for i, v := range s.Values {
			if v == fill {
				s.Values[i] = math.NaN()
			}
		}
	}
}

// transpose turns a row-major [rows][cols] block into [cols][rows].
func transpose(values []float64, rows, cols int) []float64 {
	out := make([]float64, len(values))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[c*rows+r] = values[r*cols+c]
		}
	}
	return out
}

func sameAxis(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func firstOrInf(days []float64) float64 {
	if len(days) == 0 {
		return math.Inf(1)
	}
	return days[0]
}
