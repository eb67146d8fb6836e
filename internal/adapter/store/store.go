// Package store reads the fjord datasets from their configured locations.
package store

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"

	"go.ngs.io/fjord-atlas/internal/adapter/store/csv"
	"go.ngs.io/fjord-atlas/internal/adapter/store/grid"
	"go.ngs.io/fjord-atlas/internal/adapter/store/lookup"
	"go.ngs.io/fjord-atlas/internal/adapter/store/shapefile"
	"go.ngs.io/fjord-atlas/internal/config"
	"go.ngs.io/fjord-atlas/internal/domain"
	"go.ngs.io/fjord-atlas/internal/metrics"
)

// AtlasSource is the interface for loading the fjord datasets.
// Every call reads the underlying files again.
type AtlasSource interface {
	FjordPolygons() (*domain.PolygonTable, error)
	RegionPolygons() (*domain.PolygonTable, error)
	TopFjordGates() ([]domain.FjordGate, error)
	RegionNames() (map[int]string, error)
	GroupFjordMap() (map[string][]string, error)
	GroupBounds() (domain.GroupBounds, error)

	// Coastlines returns nil when no coastline file is configured.
	Coastlines() ([]orb.LineString, error)
}

// Files implements AtlasSource on the local filesystem.
type Files struct {
	cfg     *config.Config
	metrics *metrics.Metrics
}

// NewFiles creates a file-backed source. m may be nil.
func NewFiles(cfg *config.Config, m *metrics.Metrics) *Files {
	return &Files{cfg: cfg, metrics: m}
}

func observe[T any](f *Files, kind, path string, load func(string) (T, error)) (T, error) {
	start := time.Now()
	v, err := load(path)
	f.metrics.ObserveLoad(kind, time.Since(start).Seconds(), err)
	if err != nil {
		log.Debug().Err(err).Str("kind", kind).Str("path", path).Msg("load failed")
	} else {
		log.Debug().Str("kind", kind).Str("path", path).Dur("took", time.Since(start)).Msg("loaded")
	}
	return v, err
}

// FjordPolygons loads the fjord master shapefile with every geometry hulled.
func (f *Files) FjordPolygons() (*domain.PolygonTable, error) {
	return observe(f, "fjords", f.cfg.Path(f.cfg.FjordPolygons), shapefile.LoadFjordPolygons)
}

// RegionPolygons loads the extended-region shapefile unchanged.
func (f *Files) RegionPolygons() (*domain.PolygonTable, error) {
	return observe(f, "regions", f.cfg.Path(f.cfg.RegionPolygons), shapefile.LoadRegionPolygons)
}

// TopFjordGates reads the per-gate statistics CSV and returns the top pairs.
func (f *Files) TopFjordGates() ([]domain.FjordGate, error) {
	return observe(f, "gates", f.cfg.Path(f.cfg.FjordMeans), func(p string) ([]domain.FjordGate, error) {
		return csv.NewGateStatsStore(p).TopFjordGateTuples()
	})
}

// RegionNames reads the region lookup CSV.
func (f *Files) RegionNames() (map[int]string, error) {
	return observe(f, "lookup", f.cfg.Path(f.cfg.RegionNames), lookup.RegionNames)
}

// GroupFjordMap reads the group polygon lookup CSV.
func (f *Files) GroupFjordMap() (map[string][]string, error) {
	return observe(f, "lookup", f.cfg.Path(f.cfg.GroupPolygons), lookup.GroupFjordMap)
}

// GroupBounds scans the group annual grids for the configured year.
func (f *Files) GroupBounds() (domain.GroupBounds, error) {
	return observe(f, "bounds", f.cfg.Path(f.cfg.GroupAnnuals), func(dir string) (domain.GroupBounds, error) {
		return grid.GroupBounds(dir, f.cfg.BoundsYear)
	})
}

// Coastlines loads the optional coastline shapefile.
func (f *Files) Coastlines() ([]orb.LineString, error) {
	if f.cfg.Coastline == "" {
		return nil, nil
	}
	return observe(f, "coastline", f.cfg.Path(f.cfg.Coastline), shapefile.LoadLines)
}

// OpenMonthlyMeans opens a lazy chlorophyll view over files. A zero chunk
// size in opts falls back to the configured one.
func (f *Files) OpenMonthlyMeans(files []string, opts grid.Options) (*grid.MonthlyMeans, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = f.cfg.ChunkSize
	}
	return observe(f, "means", strings.Join(files, ","), func(string) (*grid.MonthlyMeans, error) {
		return grid.OpenMonthlyMeans(files, opts)
	})
}
