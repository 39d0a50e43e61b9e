package pdf

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/wudi/pdfkit/ir/semantic"
)

const (
	fontResource     = "FEdt1"
	fallbackFontName = "F1"
	lineHeightFactor = 1.2
	// kappa places Bézier control points so four arcs approximate a circle.
	kappa = 0.5522847498
)

const (
	// MinFontSize is the smallest size TextBox accepts.
	MinFontSize = 0.5
	// MinLabelSize bounds how far CenteredText shrinks a label.
	MinLabelSize = 4.0
)

var ErrTextOverflow = errors.New("text does not fit the box")

// Color is an RGB triple with components in [0,1].
type Color struct {
	R, G, B float64
}

var White = Color{1, 1, 1}

// Point is a position in editor coordinates.
type Point struct {
	X, Y float64
}

// Canvas appends drawing operations to one page. Coordinates are points measured from the
// top-left corner of the unrotated MediaBox. Nothing reaches the page until Close.
type Canvas struct {
	page   *semantic.Page
	ops    []semantic.Operation
	closed bool
}

// Canvas opens a drawing surface on page i.
func (d *Document) Canvas(i int) (*Canvas, error) {
	p, err := d.Page(i)
	if err != nil {
		return nil, err
	}
	return &Canvas{page: p}, nil
}

func (c *Canvas) x(v float64) float64 { return c.page.MediaBox.LLX + v }
func (c *Canvas) y(v float64) float64 { return c.page.MediaBox.URY - v }

func (c *Canvas) op(operator string, nums ...float64) {
	operands := make([]semantic.Operand, len(nums))
	for i, n := range nums {
		operands[i] = semantic.NumberOperand{Value: n}
	}
	c.ops = append(c.ops, semantic.Operation{Operator: operator, Operands: operands})
}

func (c *Canvas) fillColor(col Color)   { c.op("rg", col.R, col.G, col.B) }
func (c *Canvas) strokeColor(col Color) { c.op("RG", col.R, col.G, col.B) }

// FillRect paints an opaque rectangle.
func (c *Canvas) FillRect(x, y, w, h float64, col Color) {
	c.op("q")
	c.fillColor(col)
	c.op("re", c.x(x), c.y(y+h), w, h)
	c.op("f")
	c.op("Q")
}

// FillRectAlpha paints a rectangle through an ExtGState with the given fill alpha.
func (c *Canvas) FillRectAlpha(x, y, w, h float64, col Color, alpha float64) {
	name := c.ensureAlpha(alpha)
	c.op("q")
	c.ops = append(c.ops, semantic.Operation{Operator: "gs", Operands: []semantic.Operand{semantic.NameOperand{Value: name}}})
	c.fillColor(col)
	c.op("re", c.x(x), c.y(y+h), w, h)
	c.op("f")
	c.op("Q")
}

func (c *Canvas) StrokeLine(x1, y1, x2, y2 float64, col Color, width float64) {
	c.op("q")
	c.strokeColor(col)
	c.op("w", width)
	c.op("J", 1)
	c.op("m", c.x(x1), c.y(y1))
	c.op("l", c.x(x2), c.y(y2))
	c.op("S")
	c.op("Q")
}

func (c *Canvas) StrokeRect(x, y, w, h float64, col Color, width float64) {
	c.op("q")
	c.strokeColor(col)
	c.op("w", width)
	c.op("re", c.x(x), c.y(y+h), w, h)
	c.op("S")
	c.op("Q")
}

// StrokeCircle outlines a circle centred on (cx, cy).
func (c *Canvas) StrokeCircle(cx, cy, r float64, col Color, width float64) {
	px, py := c.x(cx), c.y(cy)
	k := r * kappa
	c.op("q")
	c.strokeColor(col)
	c.op("w", width)
	c.op("m", px+r, py)
	c.op("c", px+r, py+k, px+k, py+r, px, py+r)
	c.op("c", px-k, py+r, px-r, py+k, px-r, py)
	c.op("c", px-r, py-k, px-k, py-r, px, py-r)
	c.op("c", px+k, py-r, px+r, py-k, px+r, py)
	c.op("h")
	c.op("S")
	c.op("Q")
}

// StrokePolyline joins consecutive points with round caps and joins.
func (c *Canvas) StrokePolyline(pts []Point, col Color, width float64) error {
	if len(pts) < 2 {
		return fmt.Errorf("polyline needs at least 2 points, got %d", len(pts))
	}
	c.op("q")
	c.strokeColor(col)
	c.op("w", width)
	c.op("J", 1)
	c.op("j", 1)
	c.op("m", c.x(pts[0].X), c.y(pts[0].Y))
	for _, p := range pts[1:] {
		c.op("l", c.x(p.X), c.y(p.Y))
	}
	c.op("S")
	c.op("Q")
	return nil
}

// TextBox sets text inside the box, wrapping on word boundaries. Lines below the box are dropped.
// It returns how many lines were drawn, or ErrTextOverflow when not even the first fits.
func (c *Canvas) TextBox(x, y, w, h float64, text string, size float64, col Color) (int, error) {
	if !(size >= MinFontSize) || math.IsInf(size, 0) {
		return 0, fmt.Errorf("font size must be a finite value of at least %g, got %g", MinFontSize, size)
	}
	if w <= 0 {
		return 0, fmt.Errorf("%w: box width %g", ErrTextOverflow, w)
	}
	if h+1e-9 < size {
		return 0, fmt.Errorf("%w: font size %g, box height %g", ErrTextOverflow, size, h)
	}
	lead := size * lineHeightFactor
	lines := WrapText(text, size, w)
	// line i occupies [i*lead, i*lead+size] below the top edge
	if q := math.Floor((h-size)/lead + 1e-9); q+1 < float64(len(lines)) {
		lines = lines[:int(q)+1]
	}

	font := c.ensureFont()
	c.op("q")
	c.fillColor(col)
	for i, line := range lines {
		if line == "" {
			continue
		}
		baseline := y + size + float64(i)*lead
		c.ops = append(c.ops,
			semantic.Operation{Operator: "BT"},
			semantic.Operation{Operator: "Tf", Operands: []semantic.Operand{semantic.NameOperand{Value: font}, semantic.NumberOperand{Value: size}}},
		)
		c.op("Td", c.x(x), c.y(baseline))
		c.ops = append(c.ops,
			semantic.Operation{Operator: "Tj", Operands: []semantic.Operand{semantic.StringOperand{Value: EncodeWinAnsi(line)}}},
			semantic.Operation{Operator: "ET"},
		)
	}
	c.op("Q")
	return len(lines), nil
}

// CenteredText sets a single line centred in the box, scaling the size down so it fits the width but
// never below MinLabelSize. Sizes that are not finite and positive draw nothing.
func (c *Canvas) CenteredText(x, y, w, h float64, text string, size float64, col Color) {
	if !(size > 0) || math.IsInf(size, 0) {
		return
	}
	if tw := TextWidth(text, size); tw > w && tw > 0 {
		size = math.Max(math.Min(size, MinLabelSize), size*w/tw)
	}
	tw := TextWidth(text, size)
	font := c.ensureFont()
	baseline := y + h/2 + size*0.35
	c.op("q")
	c.fillColor(col)
	c.ops = append(c.ops,
		semantic.Operation{Operator: "BT"},
		semantic.Operation{Operator: "Tf", Operands: []semantic.Operand{semantic.NameOperand{Value: font}, semantic.NumberOperand{Value: size}}},
	)
	c.op("Td", c.x(x+(w-tw)/2), c.y(baseline))
	c.ops = append(c.ops,
		semantic.Operation{Operator: "Tj", Operands: []semantic.Operand{semantic.StringOperand{Value: EncodeWinAnsi(text)}}},
		semantic.Operation{Operator: "ET"},
	)
	c.op("Q")
}

// Empty reports whether nothing has been drawn.
func (c *Canvas) Empty() bool { return len(c.ops) == 0 }

// Close commits the drawing. The existing content is isolated in q/Q so its graphics state
// cannot leak into the overlay. Calling Close twice, or on an empty canvas, is a no-op.
func (c *Canvas) Close() {
	if c.closed || len(c.ops) == 0 {
		c.closed = true
		return
	}
	c.closed = true
	contents := make([]semantic.ContentStream, 0, len(c.page.Contents)+3)
	contents = append(contents, semantic.ContentStream{RawBytes: []byte("q\n")})
	contents = append(contents, c.page.Contents...)
	contents = append(contents, semantic.ContentStream{RawBytes: []byte("\nQ\n")})
	contents = append(contents, semantic.ContentStream{Operations: c.ops})
	c.page.Contents = contents
	c.page.Dirty = true
}

func (c *Canvas) resources() *semantic.Resources {
	if c.page.Resources == nil {
		c.page.Resources = &semantic.Resources{}
	}
	return c.page.Resources
}

// ensureFont registers WinAnsi Helvetica. When the page had no font entries the writer would have
// supplied a default /F1; that default is kept so the original content still resolves.
func (c *Canvas) ensureFont() string {
	res := c.resources()
	if res.Fonts == nil {
		res.Fonts = map[string]*semantic.Font{}
	}
	if _, ok := res.Fonts[fontResource]; ok {
		return fontResource
	}
	if len(res.Fonts) == 0 {
		res.Fonts[fallbackFontName] = &semantic.Font{Subtype: "Type1", BaseFont: "Helvetica"}
	}
	res.Fonts[fontResource] = &semantic.Font{Subtype: "Type1", BaseFont: "Helvetica", Encoding: "WinAnsiEncoding"}
	res.Dirty = true
	return fontResource
}

func (c *Canvas) ensureAlpha(alpha float64) string {
	alpha = math.Max(0, math.Min(1, alpha))
	name := "GSEdt" + strconv.Itoa(int(math.Round(alpha*1000)))
	res := c.resources()
	if res.ExtGStates == nil {
		res.ExtGStates = map[string]semantic.ExtGState{}
	}
	if _, ok := res.ExtGStates[name]; !ok {
		a := alpha
		res.ExtGStates[name] = semantic.ExtGState{FillAlpha: &a, StrokeAlpha: &a}
		res.Dirty = true
	}
	return name
}
