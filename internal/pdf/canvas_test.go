package pdf_test

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfedit/internal/pdf"
	"pdfedit/internal/pdf/pdftest"
)

func TestCanvas_TextBox(t *testing.T) {
	d := pdftest.Open(t, "A")
	c, err := d.Canvas(0)
	require.NoError(t, err)

	n, err := c.TextBox(10, 10, 100, 20, "Hi", 12, pdf.Color{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	c.Close()

	p, _ := d.Page(0)
	content := string(pdf.ContentBytes(p))
	assert.True(t, strings.HasPrefix(content, "q\n"))
	assert.Contains(t, content, "/FEdt1 12 Tf")
	// top-left (10,10) with a 12pt first line puts the baseline at 300-22
	assert.Contains(t, content, "10 278 Td")
	assert.Contains(t, content, "(Hi) Tj")
	assert.Contains(t, p.Resources.Fonts, "FEdt1")
	assert.Contains(t, p.Resources.Fonts, "F1")
}

func TestCanvas_TextBoxWrapsAndDrops(t *testing.T) {
	d := pdftest.Open(t, "A")
	c, err := d.Canvas(0)
	require.NoError(t, err)

	// two lines fit: 12 + 14.4 = 26.4 <= 30
	n, err := c.TextBox(0, 0, 40, 30, "alpha beta gamma delta", 12, pdf.Color{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = c.TextBox(0, 0, 40, 5, "x", 12, pdf.Color{})
	assert.ErrorIs(t, err, pdf.ErrTextOverflow)
}

func TestCanvas_TextBoxSizeLimits(t *testing.T) {
	d := pdftest.Open(t, "A")
	c, err := d.Canvas(0)
	require.NoError(t, err)

	for _, size := range []float64{0, -1, 1e-300, math.NaN(), math.Inf(1)} {
		_, err := c.TextBox(0, 0, 100, 20, "x", size, pdf.Color{})
		assert.Error(t, err, "size %g", size)
	}

	// a tall box at the smallest size must not overflow the line count
	n, err := c.TextBox(0, 0, 100, 1e300, "one\ntwo", pdf.MinFontSize, pdf.Color{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCanvas_CenteredTextShrinks(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		w     float64
		size  float64
		check func(t *testing.T, content string)
	}{
		{"already fits", "A", 10, 12, func(t *testing.T, content string) {
			assert.Contains(t, content, "/FEdt1 12 Tf")
		}},
		{"huge size scales to the box", "A", 10, 1e17, func(t *testing.T, content string) {
			// "A" is 667 units wide, so a 10pt box fits just under 15pt
			assert.Contains(t, content, "/FEdt1 14.99")
		}},
		{"floors at the minimum label size", "AAAAAAAAAAAAAAAAAAAA", 1, 1e17, func(t *testing.T, content string) {
			assert.Contains(t, content, "/FEdt1 4 Tf")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := pdftest.Open(t, "A")
			c, err := d.Canvas(0)
			require.NoError(t, err)

			c.CenteredText(0, 0, tt.w, 10, tt.text, tt.size, pdf.Color{})
			c.Close()

			p, _ := d.Page(0)
			content := string(pdf.ContentBytes(p))
			assert.Contains(t, content, ") Tj")
			tt.check(t, content)
		})
	}
}

func TestCanvas_CenteredTextIgnoresBadSize(t *testing.T) {
	d := pdftest.Open(t, "A")
	c, err := d.Canvas(0)
	require.NoError(t, err)
	c.CenteredText(0, 0, 10, 10, "A", math.Inf(1), pdf.Color{})
	c.CenteredText(0, 0, 10, 10, "A", math.NaN(), pdf.Color{})
	assert.True(t, c.Empty())
}

func TestCanvas_Shapes(t *testing.T) {
	d := pdftest.Open(t, "A")
	c, err := d.Canvas(0)
	require.NoError(t, err)

	c.FillRect(0, 0, 10, 10, pdf.White)
	c.FillRectAlpha(0, 0, 10, 10, pdf.Color{R: 1, G: 1}, 0.35)
	c.StrokeLine(0, 0, 10, 10, pdf.Color{B: 1}, 2)
	c.StrokeRect(0, 0, 10, 10, pdf.Color{B: 1}, 2)
	c.StrokeCircle(50, 50, 20, pdf.Color{B: 1}, 2)
	require.NoError(t, c.StrokePolyline([]pdf.Point{{0, 0}, {5, 5}, {10, 0}}, pdf.Color{}, 1))
	assert.Error(t, c.StrokePolyline([]pdf.Point{{0, 0}}, pdf.Color{}, 1))
	c.CenteredText(0, 0, 100, 40, "APPROVED", 14, pdf.Color{G: 1})
	c.Close()
	c.Close()

	p, _ := d.Page(0)
	content := string(pdf.ContentBytes(p))
	assert.Contains(t, content, "/GSEdt350 gs")
	assert.Contains(t, content, " re\nf\n")
	assert.Contains(t, content, " c\n")
	assert.Contains(t, content, "(APPROVED) Tj")
	assert.Equal(t, 1, strings.Count(content, "/GSEdt350 gs"))

	gs, ok := p.Resources.ExtGStates["GSEdt350"]
	require.True(t, ok)
	assert.InDelta(t, 0.35, *gs.FillAlpha, 1e-9)
}

func TestCanvas_SurvivesWrite(t *testing.T) {
	ctx := context.Background()
	d := pdftest.Open(t, "A")
	c, err := d.Canvas(0)
	require.NoError(t, err)
	_, err = c.TextBox(10, 10, 100, 20, "Hi", 12, pdf.Color{})
	require.NoError(t, err)
	c.Close()

	b, err := d.Bytes(ctx)
	require.NoError(t, err)
	again, err := pdf.Open(ctx, b)
	require.NoError(t, err)
	p, _ := again.Page(0)
	assert.Contains(t, string(pdf.ContentBytes(p)), "(Hi) Tj")
}

func TestCanvas_EmptyCloseLeavesPage(t *testing.T) {
	d := pdftest.Open(t, "A")
	before := pdftest.Digests(t, d)
	c, err := d.Canvas(0)
	require.NoError(t, err)
	assert.True(t, c.Empty())
	c.Close()
	assert.Equal(t, before, pdftest.Digests(t, d))
}

func TestWrapText(t *testing.T) {
	lines := pdf.WrapText("one two\nthree", 10, 1000)
	assert.Equal(t, []string{"one two", "three"}, lines)

	lines = pdf.WrapText("aaaaaaaaaa", 10, 20)
	assert.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, pdf.TextWidth(l, 10), 20.0+5.6)
	}
}

func TestEncodeWinAnsi(t *testing.T) {
	assert.Equal(t, []byte{'c', 'a', 'f', 0xe9}, pdf.EncodeWinAnsi("café"))
	assert.Equal(t, []byte("?"), pdf.EncodeWinAnsi("漢"))
	assert.InDelta(t, 0.556*12*2, pdf.TextWidth("ab", 12), 1e-9)
}
