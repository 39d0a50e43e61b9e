// Package pdftest builds small PDFs for tests.
package pdftest

import (
	"bytes"
	"context"
	"testing"

	"github.com/wudi/pdfkit/builder"
	"github.com/wudi/pdfkit/writer"

	"pdfedit/internal/pdf"
)

const (
	PageWidth  = 200.0
	PageHeight = 300.0
)

// Build returns PDF bytes with one page per label. Each page shows its label and a filled
// square whose size depends on the page position, so pages render differently.
func Build(t testing.TB, labels ...string) []byte {
	t.Helper()
	b := builder.NewBuilder()
	for i, label := range labels {
		side := 10 + float64(i%8)*10
		b.NewPage(PageWidth, PageHeight).
			DrawText(label, 20, PageHeight-40, builder.TextOptions{FontSize: 14}).
			DrawRectangle(20, 20, side, side, builder.RectOptions{
				Fill:      true,
				FillColor: builder.Color{R: 0.2, G: 0.4, B: 0.8},
			}).
			Finish()
	}
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	var buf bytes.Buffer
	if err := (&writer.WriterBuilder{}).Build().Write(context.Background(), doc, &buf, writer.Config{Deterministic: true}); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return buf.Bytes()
}

// Open builds a fixture and parses it back.
func Open(t testing.TB, labels ...string) *pdf.Document {
	t.Helper()
	d, err := pdf.Open(context.Background(), Build(t, labels...))
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	return d
}

// Digests returns the digest of every page in order.
func Digests(t testing.TB, d *pdf.Document) []string {
	t.Helper()
	out := make([]string, d.PageCount())
	for i := range out {
		s, err := d.PageDigest(i)
		if err != nil {
			t.Fatalf("digest page %d: %v", i, err)
		}
		out[i] = s
	}
	return out
}
