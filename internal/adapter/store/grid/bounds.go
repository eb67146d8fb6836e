package grid

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/rs/zerolog/log"

	"go.ngs.io/fjord-atlas/internal/domain"
)

// DefaultBoundsYear is the year whose annual files define the group bounds.
const DefaultBoundsYear = 2009

// GroupFiles returns the annual grid files g_*/g_*_<year>.nc under dataDir in
// lexicographic order.
func GroupFiles(dataDir string, year int) ([]string, error) {
	pattern := filepath.Join(dataDir, "g_*", fmt.Sprintf("g_*_%d.nc", year))
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid group file pattern %s: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

// GroupName extracts the group from a file name: the text between the first
// and second underscore of the base name ("g_alpha_2009.nc" -> "alpha").
func GroupName(path string) string {
	parts := strings.Split(filepath.Base(path), "_")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// GroupBounds computes the lat/lon extrema of every group's annual grid for
// the given year. Later files overwrite earlier ones sharing a group name.
func GroupBounds(dataDir string, year int) (domain.GroupBounds, error) {
	files, err := GroupFiles(dataDir, year)
	if err != nil {
		return nil, err
	}

	bounds := make(domain.GroupBounds, len(files))
	for _, file := range files {
		b, err := FileBounds(file)
		if err != nil {
			return nil, err
		}
		bounds[GroupName(file)] = b
	}

	log.Debug().Str("dir", dataDir).Int("year", year).Int("groups", len(bounds)).Msg("Computed group bounds")
	return bounds, nil
}

// FileBounds returns the extrema of the lat and lon coordinates of one file.
func FileBounds(path string) (domain.Bounds, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return domain.Bounds{}, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	lat, err := readCoord(nc, LatVarName)
	if err != nil {
		return domain.Bounds{}, fmt.Errorf("%s: %w", path, err)
	}
	lon, err := readCoord(nc, LonVarName)
	if err != nil {
		return domain.Bounds{}, fmt.Errorf("%s: %w", path, err)
	}

	var b domain.Bounds
	if b.MinLat, b.MaxLat, err = minMax(lat); err != nil {
		return domain.Bounds{}, fmt.Errorf("%s: lat: %w", path, err)
	}
	if b.MinLon, b.MaxLon, err = minMax(lon); err != nil {
		return domain.Bounds{}, fmt.Errorf("%s: lon: %w", path, err)
	}
	return b, nil
}
