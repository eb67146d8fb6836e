package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"go.ngs.io/fjord-atlas/internal/domain"
	"go.ngs.io/fjord-atlas/internal/geometry"
)

// Figure defaults.
const (
	DefaultLabelColumn = domain.ColumnID
	DefaultDPI         = 300
	FigureInches       = 8.0

	polygonLinePt   = 0.75
	coastlineLinePt = 0.5
	labelFontPt     = 7
	coastlineAlpha  = 0.45

	// Labels sit east and slightly north of the centroid, in degrees.
	labelOffsetLon = 2.0
	labelOffsetLat = 0.05
)

var (
	polygonFill   = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0x66}
	polygonEdge   = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	coastlineEdge = color.NRGBA{A: uint8(math.Round(coastlineAlpha * 255))}
	labelColor    = color.Black
)

// ErrUnknownColumn is returned when the label column is not in the table.
var ErrUnknownColumn = errors.New("unknown label column")

// Options configures PlotPolygons.
type Options struct {
	LabelColumn string
	DPI         int
	Extent      *domain.Extent
	Coastlines  []orb.LineString
	Legend      bool
}

func (o Options) withDefaults() Options {
	if o.LabelColumn == "" {
		o.LabelColumn = DefaultLabelColumn
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.Extent == nil {
		e := domain.GreenlandExtent()
		o.Extent = &e
	}
	return o
}

// pt converts points to pixels at the figure resolution.
func (o Options) pt(v float64) float64 {
	return v * float64(o.DPI) / 72
}

// PlotPolygons draws every polygon of the table on the Greenland
// stereographic map, labels each with its LabelColumn value offset from the
// centroid, and overlays the coastlines.
func PlotPolygons(table *domain.PolygonTable, opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()
	if len(table.Columns) > 0 && !table.HasColumn(opts.LabelColumn) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, opts.LabelColumn)
	}

	face, err := labelFace(float64(opts.DPI))
	if err != nil {
		return nil, err
	}
	defer func() { _ = face.Close() }()

	proj := GreenlandStereographic()
	size := int(FigureInches * float64(opts.DPI))
	minX, minY, maxX, maxY := proj.projectedBox(*opts.Extent)
	c := newCanvas(size, proj, minX, minY, maxX, maxY, size/20)

	for _, f := range table.Features {
		for _, p := range f.Polygons() {
			rings := make([][][2]float64, 0, len(p))
			for _, r := range p {
				rings = append(rings, c.pixels(r))
			}
			c.fillRings(rings, polygonFill)
			for _, r := range rings {
				c.strokeLine(r, opts.pt(polygonLinePt), polygonEdge)
			}
		}
	}

	for _, f := range table.Features {
		if f.Empty() {
			continue
		}
		centroid := geometry.Centroid(f.Geometry)
		x, y := c.pixel(orb.Point{centroid[0] + labelOffsetLon, centroid[1] + labelOffsetLat})
		drawCentered(c.img, face, f.Attr(opts.LabelColumn), x, y)
	}

	for _, line := range opts.Coastlines {
		c.strokeLine(c.pixels(line), opts.pt(coastlineLinePt), coastlineEdge)
	}

	if opts.Legend {
		DrawLegend(c.img, face, opts)
	}

	log.Debug().
		Int("features", table.Len()).
		Int("coastlines", len(opts.Coastlines)).
		Int("size_px", size).
		Msg("Rendered polygon map")

	return c.img, nil
}

func labelFace(dpi float64) (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse label font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    labelFontPt,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create label face: %w", err)
	}
	return face, nil
}

// drawCentered writes s with its centre at (x, y).
func drawCentered(dst *image.RGBA, face font.Face, s string, x, y float64) {
	if s == "" {
		return
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(labelColor), Face: face}
	width := d.MeasureString(s)
	m := face.Metrics()
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(x*64) - width/2,
		Y: fixed.Int26_6(y*64) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(s)
}

// Save writes the image to path, as WebP when the extension is .webp and as
// PNG otherwise.
func Save(img image.Image, path string) error {
	//nolint:gosec // G304: output path is chosen by the caller.
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Encode(f, img, Format(path)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// Format returns "webp" or "png" for an output path.
func Format(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		return "webp"
	}
	return "png"
}

// Encode writes img to w in the named format ("png" or "webp").
func Encode(w io.Writer, img image.Image, format string) error {
	if format == "webp" {
		return webp.Encode(w, img, &webp.Options{Lossless: true})
	}
	return png.Encode(w, img)
}
