// Package config holds the file locations of the fjord datasets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config lists every dataset location. Paths may start with "~/".
type Config struct {
	FjordPolygons  string `yaml:"fjord_polygons"`
	RegionPolygons string `yaml:"region_polygons"`
	FjordMeans     string `yaml:"fjord_means_csv"`
	RegionNames    string `yaml:"region_names"`
	GroupPolygons  string `yaml:"group_polygons"`
	GroupAnnuals   string `yaml:"group_annuals_dir"`
	BoundsYear     int    `yaml:"bounds_year"`
	Coastline      string `yaml:"coastline,omitempty"`

	// ChunkSize is the number of time steps read per chunk of chlorophyll data.
	ChunkSize int `yaml:"chunk_size"`
}

// Default returns the locations used on the analysis workstation.
func Default() *Config {
	return &Config{
		FjordPolygons:  "~/Data/Polygons/Greenland_Fjord_Master.zip",
		RegionPolygons: "~/Data/Polygons/Greenland_ExtRegions/Greenland_ExtRegions_Master_20240711.shp",
		FjordMeans:     "~/Documents/mlml/oceancolour/analysis/overall_mean_by_fjord.csv",
		RegionNames:    "~/Documents/mlml/oceancolour/journal/misc/region_names_map.yaml",
		GroupPolygons:  "~/Documents/mlml/oceancolour/stats/group_polygons.yaml",
		GroupAnnuals:   "~/Data/group_annuals/",
		BoundsYear:     2009,
		ChunkSize:      50,
	}
}

// Load reads a YAML file over the defaults. A missing file is not an error
// when optional is true. Environment overrides are applied last.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(ExpandHome(path))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case optional && errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"FJORD_POLYGONS":     &c.FjordPolygons,
		"FJORD_REGIONS":      &c.RegionPolygons,
		"FJORD_MEANS_CSV":    &c.FjordMeans,
		"FJORD_REGION_NAMES": &c.RegionNames,
		"FJORD_GROUPS":       &c.GroupPolygons,
		"FJORD_ANNUALS_DIR":  &c.GroupAnnuals,
		"FJORD_COASTLINE":    &c.Coastline,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"FJORD_BOUNDS_YEAR": &c.BoundsYear,
		"FJORD_CHUNK_SIZE":  &c.ChunkSize,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

// Validate checks the numeric settings.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.New("chunk_size must be positive")
	}
	if c.BoundsYear <= 0 {
		return errors.New("bounds_year must be positive")
	}
	return nil
}

// Path expands a configured location against the home directory.
func (c *Config) Path(p string) string {
	return ExpandHome(p)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
