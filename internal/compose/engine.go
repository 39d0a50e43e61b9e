// Package compose bakes an edit model into page content.
//
// Every annotation is painted independently: a record that cannot be decoded or drawn becomes a
// Failure and painting continues with the next one. Nothing here fails a whole export.
package compose

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"pdfedit/internal/apperr"
	"pdfedit/internal/config"
	"pdfedit/internal/model"
	"pdfedit/internal/pdf"
)

const (
	defaultTextColor   = "#111111"
	defaultStrokeColor = "#0066ff"
	defaultHighlight   = "#ffff00"
	defaultRedact      = "#000000"
	defaultStampColor  = "#28a745"
	stampBorderWidth   = 2
)

// Options are the defaults applied to fields a record leaves out.
type Options struct {
	CircleRadius       float64
	HighlightOpacity   float64
	DefaultFontSize    float64
	DefaultStrokeWidth float64
}

// OptionsFrom maps the editor configuration onto painting defaults.
func OptionsFrom(c config.EditorConfig) Options {
	return Options{
		CircleRadius:       c.CircleRadius,
		HighlightOpacity:   c.HighlightOpacity,
		DefaultFontSize:    c.DefaultFontSize,
		DefaultStrokeWidth: c.DefaultStrokeWidth,
	}
}

// Failure describes one annotation that was skipped. Type is the resolved kind, or "unknown" and
// "invalid" for records whose type or JSON could not be read.
type Failure struct {
	Page  int
	Index int
	Type  string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("page %d annotation %d (%s): %v", f.Page, f.Index, f.Type, f.Err)
}

// Result counts the annotations painted and lists every one that was skipped.
type Result struct {
	Painted  int
	Failures []Failure
}

type painter func(c *pdf.Canvas, a *model.Annotation) error

// Engine paints edit model annotations onto document pages. It holds no per-call state and is safe
// for concurrent use on distinct documents.
type Engine struct {
	opts     Options
	painters map[model.Kind]painter
}

// NewEngine returns an Engine with a painter registered for every annotation kind.
func NewEngine(opts Options) *Engine {
	e := &Engine{opts: opts}
	e.painters = map[model.Kind]painter{
		model.KindTextBox:   e.paintTextBox,
		model.KindCover:     e.paintCover,
		model.KindLine:      e.paintLine,
		model.KindRectangle: e.paintRectangle,
		model.KindCircle:    e.paintCircle,
		model.KindFreehand:  e.paintFreehand,
		model.KindHighlight: e.paintHighlight,
		model.KindRedact:    e.paintRedact,
		model.KindStamp:     e.paintStamp,
	}
	return e
}

// Compose paints m onto doc in place. Page keys are visited in ascending numeric order; keys that are
// not integers or fall outside the document are ignored.
func (e *Engine) Compose(doc *pdf.Document, m *model.EditModel) Result {
	var res Result
	if m == nil {
		return res
	}
	for _, pk := range pageOrder(m.Pages, doc.PageCount()) {
		page, records := pk.index, m.Pages[pk.key]
		if len(records) == 0 {
			continue
		}
		c, err := doc.Canvas(page)
		if err != nil {
			continue
		}
		for i, raw := range records {
			typ, err := e.paint(c, raw)
			if err != nil {
				res.Failures = append(res.Failures, Failure{Page: page, Index: i, Type: typ, Err: err})
				continue
			}
			res.Painted++
		}
		c.Close()
	}
	return res
}

func (e *Engine) paint(c *pdf.Canvas, raw json.RawMessage) (string, error) {
	var a model.Annotation
	if err := json.Unmarshal(raw, &a); err != nil {
		return "invalid", apperr.Render("decode: %v", err)
	}
	kind, ok := model.ParseKind(a.Type)
	if !ok {
		if a.Type == "" {
			return "unknown", apperr.Render("missing type")
		}
		return "unknown", apperr.Render("unknown type %q", a.Type)
	}
	if err := e.painters[kind](c, &a); err != nil {
		return string(kind), err
	}
	return string(kind), nil
}

type pageKey struct {
	index int
	key   string
}

// pageOrder returns the keys naming a page of the document, by ascending index. Keys that spell
// the same index differently ("1", "01") are kept in key order.
func pageOrder(pages map[string][]json.RawMessage, count int) []pageKey {
	var out []pageKey
	for k := range pages {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || n < 0 || n >= count {
			continue
		}
		out = append(out, pageKey{index: n, key: k})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].index != out[j].index {
			return out[i].index < out[j].index
		}
		return out[i].key < out[j].key
	})
	return out
}
