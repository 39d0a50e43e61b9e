// Package raster paints a page content stream into an RGBA image. It covers path construction,
// painting, colour, transparency through ExtGState and simple text; clipping, images, shadings
// and XObjects are not drawn.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/wudi/pdfkit/scanner"
)

// MaxPixels bounds the output raster.
const MaxPixels = 64 << 20

var ErrTooLarge = errors.New("raster too large")

// Alpha is the constant opacity an ExtGState applies.
type Alpha struct {
	Fill, Stroke float64
}

// Page is what Render needs to know about one page.
type Page struct {
	LLX, LLY      float64
	Width, Height float64
	Rotate        int
	Content       []byte
	ExtGStates    map[string]Alpha
}

// Render rasterizes p at scale pixels per point on an opaque white background and then applies
// the page rotation clockwise.
func Render(p Page, scale float64) (*image.RGBA, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("invalid scale %g", scale)
	}
	fw, fh := math.Ceil(p.Width*scale), math.Ceil(p.Height*scale)
	if !(fw > 0) || !(fh > 0) {
		return nil, fmt.Errorf("invalid page size %gx%g", p.Width, p.Height)
	}
	// each side is bounded before the int conversion and the area check divides rather than multiplies
	if fw > MaxPixels || fh > MaxPixels {
		return nil, fmt.Errorf("%w: %gx%g", ErrTooLarge, fw, fh)
	}
	w, h := int(fw), int(fh)
	if w > MaxPixels/h {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, w, h)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	in := newInterpreter(img, p, scale)
	in.run(p.Content)

	return rotate(img, p.Rotate), nil
}

type interpreter struct {
	dst    *image.RGBA
	page   Page
	base   matrix
	gs     gstate
	stack  []gstate
	path   path
	text   textState
	glyphs *glyphCache
}

func newInterpreter(dst *image.RGBA, p Page, scale float64) *interpreter {
	// user space to device pixels: shift to the box origin, flip y, scale
	base := matrix{scale, 0, 0, -scale, -p.LLX * scale, (p.LLY + p.Height) * scale}
	return &interpreter{
		dst:    dst,
		page:   p,
		base:   base,
		gs:     newGState(),
		text:   textState{tm: identity, tlm: identity, hscale: 1},
		glyphs: newGlyphCache(),
	}
}

type operand any

func (in *interpreter) run(content []byte) {
	sc := scanner.New(bytes.NewReader(content), scanner.Config{})
	var (
		operands []operand
		frames   [][]operand
		afterRef bool
	)
	push := func(v operand) {
		if n := len(frames); n > 0 {
			frames[n-1] = append(frames[n-1], v)
			return
		}
		operands = append(operands, v)
	}
	for {
		tok, err := sc.Next()
		if err != nil {
			// io.EOF, or content the scanner cannot recover from; keep what was painted
			return
		}
		switch tok.Type {
		case scanner.TokenNumber:
			switch v := tok.Value.(type) {
			case int64:
				push(float64(v))
			case float64:
				push(v)
			}
		case scanner.TokenRef:
			// "a b RG" lexes as an indirect reference followed by the keyword G.
			if ref, ok := tok.Value.(struct{ Num, Gen int }); ok {
				push(float64(ref.Num))
				push(float64(ref.Gen))
				afterRef = true
			}
		case scanner.TokenName:
			if s, ok := tok.Value.(string); ok {
				push(name(s))
			}
		case scanner.TokenString:
			if b, ok := tok.Value.([]byte); ok {
				push(b)
			}
		case scanner.TokenBoolean:
			push(tok.Value)
		case scanner.TokenNull, scanner.TokenInlineImage:
		case scanner.TokenArray, scanner.TokenDict:
			frames = append(frames, nil)
		case scanner.TokenKeyword:
			kw, _ := tok.Value.(string)
			if kw == "]" || kw == ">>" {
				if n := len(frames); n > 0 {
					top := frames[n-1]
					frames = frames[:n-1]
					push(top)
				}
				continue
			}
			if afterRef {
				kw = "R" + kw
				afterRef = false
			}
			if len(frames) > 0 {
				frames = nil
			}
			in.exec(kw, operands)
			operands = operands[:0]
		}
	}
}

type name string

func nums(ops []operand, n int) ([]float64, bool) {
	if len(ops) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i, o := range ops[len(ops)-n:] {
		f, ok := o.(float64)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func allNums(ops []operand) []float64 {
	out := make([]float64, 0, len(ops))
	for _, o := range ops {
		if f, ok := o.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

func (in *interpreter) exec(op string, ops []operand) {
	switch op {
	// graphics state
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if n := len(in.stack); n > 0 {
			in.gs = in.stack[n-1]
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if v, ok := nums(ops, 6); ok {
			in.gs.ctm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}.mul(in.gs.ctm)
		}
	case "w":
		if v, ok := nums(ops, 1); ok {
			in.gs.lineWidth = v[0]
		}
	case "gs":
		if len(ops) > 0 {
			if n, ok := ops[len(ops)-1].(name); ok {
				if a, ok := in.page.ExtGStates[string(n)]; ok {
					in.gs.fillAlpha = a.Fill
					in.gs.strokeAlpha = a.Stroke
				}
			}
		}

	// colour
	case "g":
		in.gs.fill = colorFrom(allNums(ops), in.gs.fill)
	case "G":
		in.gs.stroke = colorFrom(allNums(ops), in.gs.stroke)
	case "rg", "k", "sc", "scn":
		in.gs.fill = colorFrom(allNums(ops), in.gs.fill)
	case "RG", "K", "SC", "SCN":
		in.gs.stroke = colorFrom(allNums(ops), in.gs.stroke)

	// path construction
	case "m":
		if v, ok := nums(ops, 2); ok {
			in.path.moveTo(in.user(v[0], v[1]))
		}
	case "l":
		if v, ok := nums(ops, 2); ok {
			in.path.lineTo(in.user(v[0], v[1]))
		}
	case "c":
		if v, ok := nums(ops, 6); ok {
			in.path.cubeTo(in.user(v[0], v[1]), in.user(v[2], v[3]), in.user(v[4], v[5]))
		}
	case "v":
		if v, ok := nums(ops, 4); ok {
			in.path.cubeTo(in.path.current(), in.user(v[0], v[1]), in.user(v[2], v[3]))
		}
	case "y":
		if v, ok := nums(ops, 4); ok {
			end := in.user(v[2], v[3])
			in.path.cubeTo(in.user(v[0], v[1]), end, end)
		}
	case "h":
		in.path.close()
	case "re":
		if v, ok := nums(ops, 4); ok {
			x, y, w, h := v[0], v[1], v[2], v[3]
			in.path.moveTo(in.user(x, y))
			in.path.lineTo(in.user(x+w, y))
			in.path.lineTo(in.user(x+w, y+h))
			in.path.lineTo(in.user(x, y+h))
			in.path.close()
		}

	// painting
	case "S":
		in.strokePath()
		in.path.reset()
	case "s":
		in.path.close()
		in.strokePath()
		in.path.reset()
	case "f", "F", "f*":
		in.fillPath()
		in.path.reset()
	case "B", "B*":
		in.fillPath()
		in.strokePath()
		in.path.reset()
	case "b", "b*":
		in.path.close()
		in.fillPath()
		in.strokePath()
		in.path.reset()
	case "n":
		in.path.reset()

	// text
	case "BT":
		in.text.begin()
	case "ET":
	case "Tf":
		if v, ok := nums(ops, 1); ok {
			in.text.size = v[0]
		}
	case "TL":
		if v, ok := nums(ops, 1); ok {
			in.text.leading = v[0]
		}
	case "Tc":
		if v, ok := nums(ops, 1); ok {
			in.text.charSpacing = v[0]
		}
	case "Tw":
		if v, ok := nums(ops, 1); ok {
			in.text.wordSpacing = v[0]
		}
	case "Tz":
		if v, ok := nums(ops, 1); ok {
			in.text.hscale = v[0] / 100
		}
	case "Td":
		if v, ok := nums(ops, 2); ok {
			in.text.moveLine(v[0], v[1])
		}
	case "TD":
		if v, ok := nums(ops, 2); ok {
			in.text.leading = -v[1]
			in.text.moveLine(v[0], v[1])
		}
	case "Tm":
		if v, ok := nums(ops, 6); ok {
			m := matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
			in.text.tm, in.text.tlm = m, m
		}
	case "T*":
		in.text.moveLine(0, -in.text.leading)
	case "Tj":
		if s, ok := lastString(ops); ok {
			in.showText(s)
		}
	case "'":
		in.text.moveLine(0, -in.text.leading)
		if s, ok := lastString(ops); ok {
			in.showText(s)
		}
	case "\"":
		if v, ok := nums(ops[:max(len(ops)-1, 0)], 2); ok {
			in.text.wordSpacing, in.text.charSpacing = v[0], v[1]
		}
		in.text.moveLine(0, -in.text.leading)
		if s, ok := lastString(ops); ok {
			in.showText(s)
		}
	case "TJ":
		if len(ops) == 0 {
			return
		}
		arr, ok := ops[len(ops)-1].([]operand)
		if !ok {
			return
		}
		for _, it := range arr {
			switch v := it.(type) {
			case []byte:
				in.showText(v)
			case float64:
				in.text.advance(-v / 1000 * in.text.size * in.text.hscale)
			}
		}
	}
}

func lastString(ops []operand) ([]byte, bool) {
	if len(ops) == 0 {
		return nil, false
	}
	s, ok := ops[len(ops)-1].([]byte)
	return s, ok
}

// user maps a user-space point to device pixels through the CTM.
func (in *interpreter) user(x, y float64) point {
	return in.gs.ctm.mul(in.base).apply(x, y)
}

// deviceScale is the average linear magnification from user space to pixels.
func (in *interpreter) deviceScale(m matrix) float64 {
	return math.Sqrt(math.Abs(m.det()))
}

func rotate(src *image.RGBA, angle int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	switch angle {
	case 90:
		dst := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetRGBA(h-1-y, x, src.RGBAAt(x, y))
			}
		}
		return dst
	case 180:
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetRGBA(w-1-x, h-1-y, src.RGBAAt(x, y))
			}
		}
		return dst
	case 270:
		dst := image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetRGBA(y, w-1-x, src.RGBAAt(x, y))
			}
		}
		return dst
	}
	return src
}
