package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"go.ngs.io/fjord-atlas/internal/adapter/store/grid"
	"go.ngs.io/fjord-atlas/internal/adapter/store/lookup"
	"go.ngs.io/fjord-atlas/internal/adapter/store/shapefile"
	"go.ngs.io/fjord-atlas/internal/domain"
	"go.ngs.io/fjord-atlas/internal/render"
)

const (
	layerFjords  = "fjords"
	layerRegions = "regions"
)

// output writes to the named file, or to stdout when path is empty or "-".
func (a *app) output(path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(a.stdout)
	}
	//nolint:gosec // G304: output path is chosen by the user.
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	log.Info().Str("path", path).Msg("Written")
	return f.Close()
}

func (a *app) writeJSON(path string, v any) error {
	return a.output(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func (a *app) writeTable(path string, t *domain.PolygonTable) error {
	log.Info().Int("features", t.Len()).Strs("columns", t.Columns).Msg("Loaded polygons")
	return a.writeJSON(path, t.FeatureCollection())
}

// loadLayer reads fjord (hulled) or region polygons from path, or from the
// configured location when path is empty.
func (a *app) loadLayer(layer, path string) (*domain.PolygonTable, error) {
	switch {
	case layer == layerFjords && path != "":
		return shapefile.LoadFjordPolygons(path)
	case layer == layerFjords:
		return a.source.FjordPolygons()
	case path != "":
		return shapefile.LoadRegionPolygons(path)
	default:
		return a.source.RegionPolygons()
	}
}

type polygonsCommand struct {
	app   *app
	layer string

	Path   string `long:"path"      description:"Shapefile to read (defaults to configuration)"`
	Group  string `long:"group"     description:"Keep only the polygons of this group"`
	Output string `short:"o" long:"output" description:"Output file (default stdout)"`
}

func (c *polygonsCommand) Execute(_ []string) error {
	t, err := c.app.loadLayer(c.layer, c.Path)
	if err != nil {
		return err
	}
	if c.Group != "" {
		t = t.Filter(func(f domain.Feature) bool { return f.Attr(domain.ColumnGroup) == c.Group })
	}
	return c.app.writeTable(c.Output, t)
}

type gdfCommand struct {
	app *app

	Output string `short:"o" long:"output" description:"Output file (default stdout)"`
	Args   struct {
		Shapefile string `positional-arg-name:"shapefile" required:"yes"`
	} `positional-args:"yes"`
}

func (c *gdfCommand) Execute(_ []string) error {
	t, err := shapefile.LoadGDF(c.Args.Shapefile)
	if err != nil {
		return err
	}
	return c.app.writeTable(c.Output, t)
}

type topGatesCommand struct {
	app *app

	Output string `short:"o" long:"output" description:"Output file (default stdout)"`
}

func (c *topGatesCommand) Execute(_ []string) error {
	gates, err := c.app.source.TopFjordGates()
	if err != nil {
		return err
	}
	pairs := make([][2]string, len(gates))
	for i, g := range gates {
		pairs[i] = [2]string{g.FjordID, g.GateID}
	}
	return c.app.writeJSON(c.Output, pairs)
}

type regionNamesCommand struct {
	app *app

	File   bool   `long:"file"   description:"Read the configured lookup file instead of the built-in table"`
	Export string `long:"export" description:"Write the built-in table to this YAML file"`
	Output string `short:"o" long:"output" description:"Output file (default stdout)"`
}

func (c *regionNamesCommand) Execute(_ []string) error {
	if c.Export != "" {
		if err := lookup.WriteRegionNames(c.Export, domain.RegionNamesMap()); err != nil {
			return err
		}
		log.Info().Str("path", c.Export).Msg("Exported region names")
		return nil
	}

	names := domain.RegionNamesMap()
	if c.File {
		var err error
		if names, err = c.app.source.RegionNames(); err != nil {
			return err
		}
	}
	return c.app.writeJSON(c.Output, names)
}

type regionPositionsCommand struct {
	app *app

	Output string `short:"o" long:"output" description:"Output file (default stdout)"`
}

func (c *regionPositionsCommand) Execute(_ []string) error {
	positions := domain.RegionPosition()
	out := make(map[int][2]any, len(positions))
	for k, p := range positions {
		out[k] = [2]any{p.Index, p.Letter}
	}
	return c.app.writeJSON(c.Output, out)
}

type groupMapCommand struct {
	app *app

	Invert bool   `long:"invert" description:"Print fjord id to group instead"`
	Output string `short:"o" long:"output" description:"Output file (default stdout)"`
}

func (c *groupMapCommand) Execute(_ []string) error {
	groups, err := c.app.source.GroupFjordMap()
	if err != nil {
		return err
	}
	if c.Invert {
		return c.app.writeJSON(c.Output, lookup.GroupOf(groups))
	}
	return c.app.writeJSON(c.Output, groups)
}

type boundsCommand struct {
	app *app

	Dir    string `long:"dir"  description:"Group annuals directory (defaults to configuration)"`
	Year   int    `long:"year" description:"Year of the annual grids (defaults to configuration)"`
	Output string `short:"o" long:"output" description:"Output file (default stdout)"`
}

func (c *boundsCommand) Execute(_ []string) error {
	dir := c.app.cfg.Path(c.app.cfg.GroupAnnuals)
	if c.Dir != "" {
		dir = c.Dir
	}
	year := c.app.cfg.BoundsYear
	if c.Year > 0 {
		year = c.Year
	}

	bounds, err := grid.GroupBounds(dir, year)
	if err != nil {
		return err
	}
	log.Info().Int("groups", len(bounds)).Int("year", year).Msg("Computed group bounds")
	return c.app.writeJSON(c.Output, bounds)
}

type extentsCommand struct {
	app *app
}

func (c *extentsCommand) Execute(_ []string) error {
	return c.app.writeJSON("", domain.GLExtents4326())
}

type convertTimeCommand struct {
	app *app

	Args struct {
		Days []string `positional-arg-name:"days" required:"1"`
	} `positional-args:"yes"`
}

func (c *convertTimeCommand) Execute(_ []string) error {
	days := make([]int64, len(c.Args.Days))
	for i, s := range c.Args.Days {
		d, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid day count %q: %w", s, err)
		}
		days[i] = d
	}
	for _, t := range domain.ConvertIntTimes(days) {
		if _, err := fmt.Fprintln(c.app.stdout, t.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return nil
}

type meansCommand struct {
	app *app

	At        string  `long:"at"        description:"Sample every step at lat,lon"`
	Mean      bool    `long:"mean"      description:"Compute the temporal mean of every pixel"`
	ChunkSize int     `long:"chunk-size" description:"Time steps per read (defaults to configuration)"`
	Threshold float64 `long:"threshold" description:"Mask values at or above this" default:"99"`
	Output    string  `short:"o" long:"output" description:"Output file (default stdout)"`
	Args      struct {
		Files []string `positional-arg-name:"file" required:"1"`
	} `positional-args:"yes"`
}

type meansSample struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"`
}

type meansSummary struct {
	Files     int           `json:"files"`
	Steps     int           `json:"steps"`
	Lat       int           `json:"lat"`
	Lon       int           `json:"lon"`
	ChunkSize int           `json:"chunk_size"`
	Start     string        `json:"start,omitempty"`
	End       string        `json:"end,omitempty"`
	Samples   []meansSample `json:"samples,omitempty"`
	Valid     *int          `json:"valid_pixels,omitempty"`
	Mean      *float64      `json:"mean,omitempty"`
}

// finite maps NaN to nil so it encodes as null.
func finite(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func parseLatLon(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errors.New("expected lat,lon")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	return lat, lon, nil
}

func (c *meansCommand) Execute(_ []string) error {
	m, err := c.app.source.OpenMonthlyMeans(c.Args.Files, grid.Options{ChunkSize: c.ChunkSize, Threshold: &c.Threshold})
	if err != nil {
		return err
	}

	s := meansSummary{
		Files:     len(c.Args.Files),
		Steps:     m.Len(),
		Lat:       len(m.Lat),
		Lon:       len(m.Lon),
		ChunkSize: m.ChunkSize(),
	}
	if m.Len() > 0 {
		s.Start = m.Times[0].Format(time.RFC3339)
		s.End = m.Times[m.Len()-1].Format(time.RFC3339)
	}

	ctx := context.Background()
	if c.At != "" {
		lat, lon, err := parseLatLon(c.At)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		err = m.Chunks(ctx, func(ch grid.Chunk) error {
			for _, f := range ch.Steps {
				v, err := f.SampleAt(lat, lon)
				if err != nil {
					return err
				}
				s.Samples = append(s.Samples, meansSample{Time: f.Time.Format(time.RFC3339), Value: finite(v)})
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if c.Mean {
		f, err := m.Mean(ctx)
		if err != nil {
			return err
		}
		valid, sum := 0, 0.0
		for _, v := range f.Values {
			if !math.IsNaN(v) {
				valid++
				sum += v
			}
		}
		s.Valid = &valid
		if valid > 0 {
			s.Mean = finite(sum / float64(valid))
		}
	}

	return c.app.writeJSON(c.Output, s)
}

type plotCommand struct {
	app *app

	Layer     string `long:"layer"     description:"Polygons to draw" choice:"fjords" choice:"regions" default:"fjords"`
	Path      string `long:"path"      description:"Shapefile to read (defaults to configuration)"`
	Label     string `long:"label"     description:"Attribute drawn next to each polygon" default:"id"`
	DPI       int    `long:"dpi"       description:"Figure resolution; the figure is 8x8 inches" default:"100"`
	Legend    bool   `long:"legend"    description:"Draw the Fjords/Glaciers legend"`
	Coastline string `long:"coastline" description:"Coastline shapefile (defaults to configuration)"`
	Output    string `short:"o" long:"output" description:"Output image, .png or .webp" default:"fjords.png"`
}

func (c *plotCommand) Execute(_ []string) error {
	t, err := c.app.loadLayer(c.Layer, c.Path)
	if err != nil {
		return err
	}

	opts := render.Options{LabelColumn: c.Label, DPI: c.DPI, Legend: c.Legend}
	if c.Coastline != "" {
		opts.Coastlines, err = shapefile.LoadLines(c.Coastline)
	} else {
		opts.Coastlines, err = c.app.source.Coastlines()
	}
	if err != nil {
		return err
	}

	start := time.Now()
	img, err := render.PlotPolygons(t, opts)
	if err != nil {
		return err
	}
	if err := render.Save(img, c.Output); err != nil {
		return err
	}
	log.Info().
		Str("path", c.Output).
		Int("features", t.Len()).
		Int("size", img.Bounds().Dx()).
		Dur("took", time.Since(start)).
		Msg("Map rendered")
	return nil
}

type legendCommand struct {
	app *app
}

func (c *legendCommand) Execute(_ []string) error {
	_, err := fmt.Fprintln(c.app.stdout, render.LegendSnippet())
	return err
}
