package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/image/vector"
)

// canvas maps projected coordinates onto an RGBA image.
type canvas struct {
	img   *image.RGBA
	proj  Stereographic
	scale float64 // pixels per map metre
	offX  float64
	offY  float64
	minX  float64
	maxY  float64
}

func newCanvas(size int, proj Stereographic, minX, minY, maxX, maxY float64, margin int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	avail := float64(size - 2*margin)
	w, h := maxX-minX, maxY-minY
	scale := avail / math.Max(w, h)
	return &canvas{
		img:   img,
		proj:  proj,
		scale: scale,
		offX:  float64(margin) + (avail-w*scale)/2,
		offY:  float64(margin) + (avail-h*scale)/2,
		minX:  minX,
		maxY:  maxY,
	}
}

// pixel projects a lon/lat point to image coordinates.
func (c *canvas) pixel(p orb.Point) (float64, float64) {
	x, y := c.proj.Forward(p[0], p[1])
	return c.offX + (x-c.minX)*c.scale, c.offY + (c.maxY-y)*c.scale
}

func (c *canvas) pixels(pts []orb.Point) [][2]float64 {
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		x, y := c.pixel(p)
		out[i] = [2]float64{x, y}
	}
	return out
}

// fillRings fills the rings after clipping each to the image. Holes wound
// opposite to their outer ring stay empty.
func (c *canvas) fillRings(rings [][][2]float64, col color.Color) {
	b := c.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	drawn := false
	for _, ring := range rings {
		clipped := clipPolygon(ring, float64(b.Dx()), float64(b.Dy()))
		if len(clipped) < 3 {
			continue
		}
		z.MoveTo(float32(clipped[0][0]), float32(clipped[0][1]))
		for _, p := range clipped[1:] {
			z.LineTo(float32(p[0]), float32(p[1]))
		}
		z.ClosePath()
		drawn = true
	}
	if drawn {
		z.Draw(c.img, b, image.NewUniform(col), image.Point{})
	}
}

// strokeLine draws a polyline of the given pixel width as one quad per segment.
func (c *canvas) strokeLine(pts [][2]float64, width float64, col color.Color) {
	half := math.Max(width, 1) / 2
	quads := make([][][2]float64, 0, len(pts))
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		dx, dy := b[0]-a[0], b[1]-a[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*half, dx/l*half
		quads = append(quads, [][2]float64{
			{a[0] + nx, a[1] + ny},
			{b[0] + nx, b[1] + ny},
			{b[0] - nx, b[1] - ny},
			{a[0] - nx, a[1] - ny},
		})
	}
	c.fillRings(quads, col)
}

// clipPolygon clips a polygon to [0,w]x[0,h] (Sutherland-Hodgman).
func clipPolygon(pts [][2]float64, w, h float64) [][2]float64 {
	type edge struct {
		inside func(p [2]float64) bool
		cross  func(a, b [2]float64) [2]float64
	}
	lerpX := func(a, b [2]float64, x float64) [2]float64 {
		t := (x - a[0]) / (b[0] - a[0])
		return [2]float64{x, a[1] + t*(b[1]-a[1])}
	}
	lerpY := func(a, b [2]float64, y float64) [2]float64 {
		t := (y - a[1]) / (b[1] - a[1])
		return [2]float64{a[0] + t*(b[0]-a[0]), y}
	}
	edges := []edge{
		{func(p [2]float64) bool { return p[0] >= 0 }, func(a, b [2]float64) [2]float64 { return lerpX(a, b, 0) }},
		{func(p [2]float64) bool { return p[0] <= w }, func(a, b [2]float64) [2]float64 { return lerpX(a, b, w) }},
		{func(p [2]float64) bool { return p[1] >= 0 }, func(a, b [2]float64) [2]float64 { return lerpY(a, b, 0) }},
		{func(p [2]float64) bool { return p[1] <= h }, func(a, b [2]float64) [2]float64 { return lerpY(a, b, h) }},
	}

	out := pts
	for _, e := range edges {
		if len(out) == 0 {
			break
		}
		in := out
		out = nil
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur) && e.inside(prev):
				out = append(out, cur)
			case e.inside(cur):
				out = append(out, e.cross(prev, cur), cur)
			case e.inside(prev):
				out = append(out, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return out
}
