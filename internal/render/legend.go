package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
)

// LegendEntry is a coloured line with a label.
type LegendEntry struct {
	Label string
	Color color.NRGBA
}

// DefaultLegend lists the entries used on fjord/glacier figures.
func DefaultLegend() []LegendEntry {
	return []LegendEntry{
		{Label: "Fjords", Color: color.NRGBA{B: 0xff, A: 0xff}},
		{Label: "Glaciers", Color: color.NRGBA{R: 0xff, A: 0xff}},
	}
}

// LegendSnippet returns example code for building the fjord/glacier legend
// with matplotlib, for pasting into notebooks.
func LegendSnippet() string {
	return `    blue_line = mlines.Line2D([], [], color='blue', markersize=15, label='Fjords')
    red_line = mlines.Line2D([], [], color='red', markersize=15, label='Glaciers')
          
    plt.legend(handles=[blue_line, red_line])`
}

// DrawLegend draws the default legend in the top-right corner.
func DrawLegend(dst *image.RGBA, face font.Face, opts Options) {
	opts = opts.withDefaults()
	entries := DefaultLegend()

	lineLen := opts.pt(20)
	gap := opts.pt(4)
	rowH := float64(face.Metrics().Height.Ceil()) + gap

	var textW float64
	for _, e := range entries {
		if w := float64(font.MeasureString(face, e.Label).Ceil()); w > textW {
			textW = w
		}
	}

	b := dst.Bounds()
	boxW := gap*3 + lineLen + textW
	boxH := gap + rowH*float64(len(entries))
	x0 := float64(b.Max.X) - boxW - opts.pt(10)
	y0 := opts.pt(10)

	c := &canvas{img: dst}
	c.fillRings([][][2]float64{{{x0, y0}, {x0 + boxW, y0}, {x0 + boxW, y0 + boxH}, {x0, y0 + boxH}}},
		color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xcc})

	for i, e := range entries {
		cy := y0 + gap/2 + rowH*(float64(i)+0.5)
		c.strokeLine([][2]float64{{x0 + gap, cy}, {x0 + gap + lineLen, cy}}, opts.pt(1.5), e.Color)
		textX := x0 + gap*2 + lineLen
		drawLeft(dst, face, e.Label, textX, cy)
	}
}

func drawLeft(dst *image.RGBA, face font.Face, s string, x, cy float64) {
	width := font.MeasureString(face, s)
	drawCentered(dst, face, s, x+float64(width)/128, cy)
}
