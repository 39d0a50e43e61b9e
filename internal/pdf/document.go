// Package pdf adapts github.com/wudi/pdfkit to the page-level operations the editor needs:
// structural mutations, rotation, serialization, rasterization and drawing.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/wudi/pdfkit/ir"
	"github.com/wudi/pdfkit/ir/semantic"
	"github.com/wudi/pdfkit/writer"

	"pdfedit/internal/raster"
)

var (
	ErrMalformed   = errors.New("malformed pdf")
	ErrPageRange   = errors.New("page index out of range")
	ErrRotation    = errors.New("rotation must be a multiple of 90")
	ErrPermutation = errors.New("invalid page permutation")
)

// Document is a parsed PDF held in memory. It is not safe for concurrent mutation.
type Document struct {
	doc *semantic.Document
}

// Open parses data. A file with no pages is rejected as malformed.
func Open(ctx context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	doc, err := ir.NewDefault().Parse(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrMalformed)
	}
	return &Document{doc: doc}, nil
}

// Wrap adopts an already built semantic document.
func Wrap(doc *semantic.Document) *Document {
	return &Document{doc: doc}
}

func (d *Document) PageCount() int { return len(d.doc.Pages) }

// Page returns the live page at i.
func (d *Document) Page(i int) (*semantic.Page, error) {
	if err := d.checkIndex(i); err != nil {
		return nil, err
	}
	return d.doc.Pages[i], nil
}

// InsertCopy inserts a copy of page src so that it ends up at index at.
func (d *Document) InsertCopy(at, src int) error {
	if err := d.checkIndex(src); err != nil {
		return err
	}
	if at < 0 || at > len(d.doc.Pages) {
		return fmt.Errorf("%w: insert position %d not in [0,%d]", ErrPageRange, at, len(d.doc.Pages))
	}
	cp := clonePage(d.doc.Pages[src])
	pages := make([]*semantic.Page, 0, len(d.doc.Pages)+1)
	pages = append(pages, d.doc.Pages[:at]...)
	pages = append(pages, cp)
	pages = append(pages, d.doc.Pages[at:]...)
	d.setPages(pages)
	return nil
}

func (d *Document) DeletePage(i int) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	pages := make([]*semantic.Page, 0, len(d.doc.Pages)-1)
	pages = append(pages, d.doc.Pages[:i]...)
	pages = append(pages, d.doc.Pages[i+1:]...)
	d.setPages(pages)
	return nil
}

// SetRotation sets the absolute /Rotate of page i. angle is normalized into [0,360).
func (d *Document) SetRotation(i, angle int) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	n := NormalizeRotation(angle)
	if n%90 != 0 {
		return fmt.Errorf("%w: got %d", ErrRotation, angle)
	}
	p := d.doc.Pages[i]
	p.Rotate = n
	p.Dirty = true
	return nil
}

func (d *Document) Rotation(i int) (int, error) {
	if err := d.checkIndex(i); err != nil {
		return 0, err
	}
	return NormalizeRotation(d.doc.Pages[i].Rotate), nil
}

// Reorder rearranges pages so the page at new index i is the one previously at perm[i].
// perm must be a permutation of [0, PageCount).
func (d *Document) Reorder(perm []int) error {
	if err := ValidatePermutation(perm, len(d.doc.Pages)); err != nil {
		return err
	}
	arena := make([]*semantic.Page, len(perm))
	for i, src := range perm {
		arena[i] = clonePage(d.doc.Pages[src])
	}
	d.setPages(arena)
	return nil
}

// Bytes serializes the document.
func (d *Document) Bytes(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	w := (&writer.WriterBuilder{}).Build()
	cfg := writer.Config{
		Deterministic: true,
		Compression:   6,
		ContentFilter: writer.FilterFlate,
	}
	if err := w.Write(ctx, d.doc, &buf, cfg); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Rasterize renders page i at scale pixels per point with its rotation applied.
func (d *Document) Rasterize(i int, scale float64) (*image.RGBA, error) {
	p, err := d.Page(i)
	if err != nil {
		return nil, err
	}
	box := p.MediaBox
	return raster.Render(raster.Page{
		LLX:        box.LLX,
		LLY:        box.LLY,
		Width:      box.URX - box.LLX,
		Height:     box.URY - box.LLY,
		Rotate:     NormalizeRotation(p.Rotate),
		Content:    ContentBytes(p),
		ExtGStates: alphas(p.Resources),
	}, scale)
}

func alphas(r *semantic.Resources) map[string]raster.Alpha {
	if r == nil || len(r.ExtGStates) == 0 {
		return nil
	}
	out := make(map[string]raster.Alpha, len(r.ExtGStates))
	for name, gs := range r.ExtGStates {
		a := raster.Alpha{Fill: 1, Stroke: 1}
		if gs.FillAlpha != nil {
			a.Fill = *gs.FillAlpha
		}
		if gs.StrokeAlpha != nil {
			a.Stroke = *gs.StrokeAlpha
		}
		out[name] = a
	}
	return out
}

// Semantic exposes the underlying pdfkit document.
func (d *Document) Semantic() *semantic.Document { return d.doc }

func (d *Document) checkIndex(i int) error {
	if i < 0 || i >= len(d.doc.Pages) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrPageRange, i, len(d.doc.Pages))
	}
	return nil
}

func (d *Document) setPages(pages []*semantic.Page) {
	for i, p := range pages {
		p.Index = i
	}
	d.doc.Pages = pages
	d.doc.Dirty = true
}

// NormalizeRotation maps any angle into [0,360).
func NormalizeRotation(angle int) int {
	n := angle % 360
	if n < 0 {
		n += 360
	}
	return n
}

// ValidatePermutation reports whether perm is a bijection onto [0,n).
func ValidatePermutation(perm []int, n int) error {
	if len(perm) != n {
		return fmt.Errorf("%w: length %d, page count %d", ErrPermutation, len(perm), n)
	}
	seen := make([]bool, n)
	for _, v := range perm {
		if v < 0 || v >= n {
			return fmt.Errorf("%w: index %d not in [0,%d)", ErrPermutation, v, n)
		}
		if seen[v] {
			return fmt.Errorf("%w: index %d repeated", ErrPermutation, v)
		}
		seen[v] = true
	}
	return nil
}

// clonePage copies everything a later mutation could touch: the content stream list and resource maps.
func clonePage(p *semantic.Page) *semantic.Page {
	cp := *p
	cp.Contents = append([]semantic.ContentStream(nil), p.Contents...)
	cp.Annotations = append([]semantic.Annotation(nil), p.Annotations...)
	cp.Resources = cloneResources(p.Resources)
	cp.Dirty = true
	return &cp
}

func cloneResources(r *semantic.Resources) *semantic.Resources {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Fonts = make(map[string]*semantic.Font, len(r.Fonts))
	for k, v := range r.Fonts {
		cp.Fonts[k] = v
	}
	cp.ExtGStates = make(map[string]semantic.ExtGState, len(r.ExtGStates))
	for k, v := range r.ExtGStates {
		cp.ExtGStates[k] = v
	}
	cp.ColorSpaces = make(map[string]semantic.ColorSpace, len(r.ColorSpaces))
	for k, v := range r.ColorSpaces {
		cp.ColorSpaces[k] = v
	}
	cp.XObjects = make(map[string]semantic.XObject, len(r.XObjects))
	for k, v := range r.XObjects {
		cp.XObjects[k] = v
	}
	return &cp
}
