package usecase

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"go.ngs.io/fjord-atlas/internal/adapter/store"
	"go.ngs.io/fjord-atlas/internal/domain"
	"go.ngs.io/fjord-atlas/internal/metrics"
	"go.ngs.io/fjord-atlas/internal/render"
)

// Plot layers.
const (
	LayerFjords  = "fjords"
	LayerRegions = "regions"
)

// DPI limits for rendered maps.
const (
	MinDPI = 10
	MaxDPI = 600
)

// ErrNotFound is returned when a requested feature does not exist.
var ErrNotFound = errors.New("not found")

// PlotRequest encapsulates a map rendering request.
type PlotRequest struct {
	Layer       string // LayerFjords or LayerRegions
	LabelColumn string // attribute drawn next to each polygon, default "id"
	DPI         int
	Legend      bool
	Coastline   bool
}

// Validate checks that the plot request is valid.
func (r *PlotRequest) Validate() error {
	switch r.Layer {
	case "", LayerFjords, LayerRegions:
	default:
		return fmt.Errorf("unknown layer %q (expected %s or %s)", r.Layer, LayerFjords, LayerRegions)
	}
	if r.DPI != 0 && (r.DPI < MinDPI || r.DPI > MaxDPI) {
		return fmt.Errorf("dpi must be between %d and %d", MinDPI, MaxDPI)
	}
	return nil
}

// GroupSummary lists a group with its fjords and grid bounds.
type GroupSummary struct {
	Name   string         `json:"name"`
	Fjords []string       `json:"fjords"`
	Bounds *domain.Bounds `json:"bounds,omitempty"`
}

// AtlasUseCase orchestrates reads of the fjord datasets.
type AtlasUseCase struct {
	source  store.AtlasSource
	metrics *metrics.Metrics
}

// NewAtlasUseCase creates a new atlas use case. m may be nil.
func NewAtlasUseCase(source store.AtlasSource, m *metrics.Metrics) *AtlasUseCase {
	return &AtlasUseCase{source: source, metrics: m}
}

// Fjords returns the hulled fjord polygons.
func (uc *AtlasUseCase) Fjords() (*domain.PolygonTable, error) {
	t, err := uc.source.FjordPolygons()
	if err != nil {
		return nil, fmt.Errorf("failed to load fjord polygons: %w", err)
	}
	return t, nil
}

// FjordsInGroup returns the hulled fjord polygons whose group column equals
// group. An empty group returns every fjord.
func (uc *AtlasUseCase) FjordsInGroup(group string) (*domain.PolygonTable, error) {
	t, err := uc.Fjords()
	if err != nil || group == "" {
		return t, err
	}
	return t.Filter(func(f domain.Feature) bool {
		return f.Attr(domain.ColumnGroup) == group
	}), nil
}

// Fjord returns the fjord whose id column equals id.
func (uc *AtlasUseCase) Fjord(id string) (domain.Feature, error) {
	t, err := uc.Fjords()
	if err != nil {
		return domain.Feature{}, err
	}
	f, ok := t.Find(domain.ColumnID, id)
	if !ok {
		return domain.Feature{}, fmt.Errorf("fjord %q: %w", id, ErrNotFound)
	}
	return f, nil
}

// FjordGroups returns the distinct group names of the fjord shapefile.
func (uc *AtlasUseCase) FjordGroups() ([]string, error) {
	t, err := uc.Fjords()
	if err != nil {
		return nil, err
	}
	return t.Groups(), nil
}

// Regions returns the extended-region polygons.
func (uc *AtlasUseCase) Regions() (*domain.PolygonTable, error) {
	t, err := uc.source.RegionPolygons()
	if err != nil {
		return nil, fmt.Errorf("failed to load region polygons: %w", err)
	}
	return t, nil
}

// TopGates returns the (fjord, gate) pairs with the highest overall mean.
func (uc *AtlasUseCase) TopGates() ([]domain.FjordGate, error) {
	gates, err := uc.source.TopFjordGates()
	if err != nil {
		return nil, fmt.Errorf("failed to load fjord means: %w", err)
	}
	return gates, nil
}

// RegionNames returns the region name table.
func (uc *AtlasUseCase) RegionNames() (map[int]string, error) {
	names, err := uc.source.RegionNames()
	if err != nil {
		return nil, fmt.Errorf("failed to load region names: %w", err)
	}
	return names, nil
}

// Groups returns every fjord group with its grid bounds, when available.
// A bounds failure is not fatal: groups are still listed without bounds.
func (uc *AtlasUseCase) Groups() ([]GroupSummary, error) {
	groups, err := uc.source.GroupFjordMap()
	if err != nil {
		return nil, fmt.Errorf("failed to load group map: %w", err)
	}
	bounds, err := uc.source.GroupBounds()
	if err != nil {
		log.Warn().Err(err).Msg("listing groups without grid bounds")
		bounds = nil
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]GroupSummary, 0, len(names))
	for _, name := range names {
		s := GroupSummary{Name: name, Fjords: groups[name]}
		if b, ok := bounds[name]; ok {
			s.Bounds = &b
		}
		out = append(out, s)
	}
	return out, nil
}

// GroupBounds returns the lat/lon bounds of every group grid.
func (uc *AtlasUseCase) GroupBounds() (domain.GroupBounds, error) {
	b, err := uc.source.GroupBounds()
	if err != nil {
		return nil, fmt.Errorf("failed to compute group bounds: %w", err)
	}
	return b, nil
}

// GroupBoundsAt returns the groups whose grid bounds contain (lat, lon).
func (uc *AtlasUseCase) GroupBoundsAt(lat, lon float64) (domain.GroupBounds, error) {
	all, err := uc.GroupBounds()
	if err != nil {
		return nil, err
	}
	out := make(domain.GroupBounds)
	for name, b := range all {
		if b.Contains(lat, lon) {
			out[name] = b
		}
	}
	return out, nil
}

// Plot renders the requested layer.
func (uc *AtlasUseCase) Plot(req PlotRequest) (image.Image, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	var (
		table *domain.PolygonTable
		err   error
	)
	if req.Layer == LayerRegions {
		table, err = uc.Regions()
	} else {
		table, err = uc.Fjords()
	}
	if err != nil {
		return nil, err
	}

	opts := render.Options{
		LabelColumn: req.LabelColumn,
		DPI:         req.DPI,
		Legend:      req.Legend,
	}
	if req.Coastline {
		opts.Coastlines, err = uc.source.Coastlines()
		if err != nil {
			return nil, fmt.Errorf("failed to load coastlines: %w", err)
		}
	}

	start := time.Now()
	img, err := render.PlotPolygons(table, opts)
	if err != nil {
		return nil, err
	}
	if uc.metrics != nil {
		uc.metrics.PlotDuration.Observe(time.Since(start).Seconds())
	}
	return img, nil
}
