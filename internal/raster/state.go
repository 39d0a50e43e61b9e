package raster

import (
	"image/color"
	"math"
)

// matrix is a PDF affine transform [a b c d e f]: x' = a*x + c*y + e, y' = b*x + d*y + f.
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m followed by n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) point {
	return point{m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]}
}

func (m matrix) det() float64 { return m[0]*m[3] - m[1]*m[2] }

type point struct{ x, y float64 }

type gstate struct {
	ctm         matrix
	fill        color.RGBA
	stroke      color.RGBA
	lineWidth   float64
	fillAlpha   float64
	strokeAlpha float64
}

func newGState() gstate {
	black := color.RGBA{0, 0, 0, 0xff}
	return gstate{
		ctm:         identity,
		fill:        black,
		stroke:      black,
		lineWidth:   1,
		fillAlpha:   1,
		strokeAlpha: 1,
	}
}

// colorFrom reads gray, RGB or CMYK components; any other arity keeps prev.
func colorFrom(v []float64, prev color.RGBA) color.RGBA {
	switch len(v) {
	case 1:
		g := unit(v[0])
		return color.RGBA{g, g, g, 0xff}
	case 3:
		return color.RGBA{unit(v[0]), unit(v[1]), unit(v[2]), 0xff}
	case 4:
		k := clamp01(v[3])
		return color.RGBA{
			unit((1 - clamp01(v[0])) * (1 - k)),
			unit((1 - clamp01(v[1])) * (1 - k)),
			unit((1 - clamp01(v[2])) * (1 - k)),
			0xff,
		}
	}
	return prev
}

func clamp01(f float64) float64 { return math.Max(0, math.Min(1, f)) }

func unit(f float64) uint8 { return uint8(math.Round(clamp01(f) * 255)) }

// withAlpha returns c as premultiplied colour at opacity a.
func withAlpha(c color.RGBA, a float64) color.RGBA {
	a = clamp01(a)
	return color.RGBA{
		R: uint8(math.Round(float64(c.R) * a)),
		G: uint8(math.Round(float64(c.G) * a)),
		B: uint8(math.Round(float64(c.B) * a)),
		A: uint8(math.Round(255 * a)),
	}
}
