package compose

import (
	"math"

	"pdfedit/internal/apperr"
	"pdfedit/internal/model"
	"pdfedit/internal/pdf"
)

type box struct{ x, y, w, h float64 }

func requireBox(a *model.Annotation) (box, error) {
	if a.X == nil || a.Y == nil || a.W == nil || a.H == nil {
		return box{}, apperr.Render("x, y, w and h are required")
	}
	if *a.W <= 0 || *a.H <= 0 {
		return box{}, apperr.Render("box size %gx%g must be positive", *a.W, *a.H)
	}
	return box{*a.X, *a.Y, *a.W, *a.H}, nil
}

const (
	minFontSize = 1
	maxFontSize = 500
)

func positive(v *float64, def float64) float64 {
	if v == nil || *v <= 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return def
	}
	return *v
}

// fontSize reads a record font size, clamped to [minFontSize, maxFontSize].
func fontSize(v *float64, def float64) float64 {
	return math.Max(minFontSize, math.Min(maxFontSize, positive(v, def)))
}

func (e *Engine) strokeWidth(a *model.Annotation) float64 {
	return positive(a.StrokeWidth, e.opts.DefaultStrokeWidth)
}

func (e *Engine) paintTextBox(c *pdf.Canvas, a *model.Annotation) error {
	b, err := requireBox(a)
	if err != nil {
		return err
	}
	if a.Text == nil {
		return apperr.Render("text is required")
	}
	size := fontSize(a.FontSize, e.opts.DefaultFontSize)
	if _, err := c.TextBox(b.x, b.y, b.w, b.h, *a.Text, size, colorOr(a.Color, defaultTextColor)); err != nil {
		return apperr.Render("%v", err)
	}
	return nil
}

func (e *Engine) paintCover(c *pdf.Canvas, a *model.Annotation) error {
	b, err := requireBox(a)
	if err != nil {
		return err
	}
	c.FillRect(b.x, b.y, b.w, b.h, pdf.White)
	return nil
}

func (e *Engine) paintLine(c *pdf.Canvas, a *model.Annotation) error {
	if a.X1 == nil || a.Y1 == nil || a.X2 == nil || a.Y2 == nil {
		return apperr.Render("x1, y1, x2 and y2 are required")
	}
	c.StrokeLine(*a.X1, *a.Y1, *a.X2, *a.Y2, colorOr(a.StrokeColor, defaultStrokeColor), e.strokeWidth(a))
	return nil
}

func (e *Engine) paintRectangle(c *pdf.Canvas, a *model.Annotation) error {
	b, err := requireBox(a)
	if err != nil {
		return err
	}
	c.StrokeRect(b.x, b.y, b.w, b.h, colorOr(a.StrokeColor, defaultStrokeColor), e.strokeWidth(a))
	return nil
}

// paintCircle treats (x, y) as the top-left corner of the bounding square.
func (e *Engine) paintCircle(c *pdf.Canvas, a *model.Annotation) error {
	if a.X == nil || a.Y == nil {
		return apperr.Render("x and y are required")
	}
	r := positive(a.Radius, e.opts.CircleRadius)
	c.StrokeCircle(*a.X+r, *a.Y+r, r, colorOr(a.StrokeColor, defaultStrokeColor), e.strokeWidth(a))
	return nil
}

func (e *Engine) paintFreehand(c *pdf.Canvas, a *model.Annotation) error {
	if len(a.Points) < 2 {
		return apperr.Render("freehand path needs at least 2 points, got %d", len(a.Points))
	}
	pts := make([]pdf.Point, len(a.Points))
	for i, p := range a.Points {
		if len(p) < 2 {
			return apperr.Render("point %d has %d coordinates", i, len(p))
		}
		pts[i] = pdf.Point{X: p[0], Y: p[1]}
	}
	if err := c.StrokePolyline(pts, colorOr(a.StrokeColor, defaultStrokeColor), e.strokeWidth(a)); err != nil {
		return apperr.Render("%v", err)
	}
	return nil
}

func (e *Engine) paintHighlight(c *pdf.Canvas, a *model.Annotation) error {
	b, err := requireBox(a)
	if err != nil {
		return err
	}
	opacity := e.opts.HighlightOpacity
	if a.Opacity != nil && *a.Opacity >= 0 && *a.Opacity <= 1 {
		opacity = *a.Opacity
	}
	c.FillRectAlpha(b.x, b.y, b.w, b.h, colorOr(a.Color, defaultHighlight), opacity)
	return nil
}

func (e *Engine) paintRedact(c *pdf.Canvas, a *model.Annotation) error {
	b, err := requireBox(a)
	if err != nil {
		return err
	}
	c.FillRect(b.x, b.y, b.w, b.h, colorOr(a.Color, defaultRedact))
	return nil
}

// paintStamp draws a bordered box with its label centred. Records without a label fall back to text.
func (e *Engine) paintStamp(c *pdf.Canvas, a *model.Annotation) error {
	b, err := requireBox(a)
	if err != nil {
		return err
	}
	label := a.Label
	if label == nil {
		label = a.Text
	}
	if label == nil || *label == "" {
		return apperr.Render("label is required")
	}
	col := colorOr(a.Color, defaultStampColor)
	size := fontSize(a.FontSize, math.Min(b.h*0.5, 24))
	c.StrokeRect(b.x, b.y, b.w, b.h, col, stampBorderWidth)
	c.CenteredText(b.x, b.y, b.w, b.h, *label, size, col)
	return nil
}
