package raster

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

type segment struct {
	pts    []point
	closed bool
}

// path is kept in device space and flattened as it is built.
type path struct {
	subs []segment
}

const curveSteps = 16

func (p *path) moveTo(pt point) {
	p.subs = append(p.subs, segment{pts: []point{pt}})
}

func (p *path) lineTo(pt point) {
	if len(p.subs) == 0 {
		p.moveTo(pt)
		return
	}
	s := &p.subs[len(p.subs)-1]
	s.pts = append(s.pts, pt)
}

func (p *path) cubeTo(c1, c2, end point) {
	start := p.current()
	for i := 1; i <= curveSteps; i++ {
		t := float64(i) / curveSteps
		u := 1 - t
		p.lineTo(point{
			u*u*u*start.x + 3*u*u*t*c1.x + 3*u*t*t*c2.x + t*t*t*end.x,
			u*u*u*start.y + 3*u*u*t*c1.y + 3*u*t*t*c2.y + t*t*t*end.y,
		})
	}
}

func (p *path) current() point {
	if len(p.subs) == 0 {
		return point{}
	}
	s := p.subs[len(p.subs)-1]
	return s.pts[len(s.pts)-1]
}

func (p *path) close() {
	if len(p.subs) == 0 {
		return
	}
	s := &p.subs[len(p.subs)-1]
	s.closed = true
	// a new segment after h starts at the closed subpath's first point
	p.subs = append(p.subs, segment{pts: []point{s.pts[0]}})
}

func (p *path) reset() { p.subs = p.subs[:0] }

func (in *interpreter) newRasterizer() *vector.Rasterizer {
	b := in.dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	return z
}

func (in *interpreter) fillPath() {
	z := in.newRasterizer()
	painted := false
	for _, s := range in.path.subs {
		if len(s.pts) < 3 {
			continue
		}
		z.MoveTo(float32(s.pts[0].x), float32(s.pts[0].y))
		for _, pt := range s.pts[1:] {
			z.LineTo(float32(pt.x), float32(pt.y))
		}
		z.ClosePath()
		painted = true
	}
	if !painted {
		return
	}
	z.Draw(in.dst, in.dst.Bounds(), image.NewUniform(withAlpha(in.gs.fill, in.gs.fillAlpha)), image.Point{})
}

// strokePath outlines every segment as a quad with round joins. All pieces share one winding
// direction so overlaps accumulate instead of cancelling.
func (in *interpreter) strokePath() {
	hw := in.gs.lineWidth * in.deviceScale(in.gs.ctm.mul(in.base)) / 2
	if hw < 0.5 {
		hw = 0.5
	}
	z := in.newRasterizer()
	painted := false
	for _, s := range in.path.subs {
		pts := s.pts
		if s.closed && len(pts) > 1 {
			pts = append(append([]point(nil), pts...), pts[0])
		}
		if len(pts) < 2 {
			continue
		}
		for i := 0; i+1 < len(pts); i++ {
			quad(z, pts[i], pts[i+1], hw)
			painted = true
		}
		for _, pt := range pts {
			disc(z, pt, hw)
		}
	}
	if !painted {
		return
	}
	z.Draw(in.dst, in.dst.Bounds(), image.NewUniform(withAlpha(in.gs.stroke, in.gs.strokeAlpha)), image.Point{})
}

func quad(z *vector.Rasterizer, a, b point, hw float64) {
	dx, dy := b.x-a.x, b.y-a.y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw
	z.MoveTo(float32(a.x+nx), float32(a.y+ny))
	z.LineTo(float32(b.x+nx), float32(b.y+ny))
	z.LineTo(float32(b.x-nx), float32(b.y-ny))
	z.LineTo(float32(a.x-nx), float32(a.y-ny))
	z.ClosePath()
}

// disc winds in the same direction as quad.
func disc(z *vector.Rasterizer, c point, r float64) {
	const n = 12
	z.MoveTo(float32(c.x+r), float32(c.y))
	for i := 1; i < n; i++ {
		t := -2 * math.Pi * float64(i) / n
		z.LineTo(float32(c.x+r*math.Cos(t)), float32(c.y+r*math.Sin(t)))
	}
	z.ClosePath()
}
