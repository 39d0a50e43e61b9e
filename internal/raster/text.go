package raster

import (
	"image"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/encoding/charmap"
)

type textState struct {
	tm, tlm     matrix
	size        float64
	leading     float64
	charSpacing float64
	wordSpacing float64
	hscale      float64
}

func (t *textState) begin() {
	t.tm, t.tlm = identity, identity
}

func (t *textState) moveLine(tx, ty float64) {
	t.tlm = matrix{1, 0, 0, 1, tx, ty}.mul(t.tlm)
	t.tm = t.tlm
}

func (t *textState) advance(tx float64) {
	t.tm = matrix{1, 0, 0, 1, tx, 0}.mul(t.tm)
}

var (
	regularOnce sync.Once
	regular     *opentype.Font
	regularErr  error
)

func regularFont() (*opentype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = opentype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

// glyphCache holds one face per pixel size for a single render.
type glyphCache struct {
	faces map[int]font.Face
}

func newGlyphCache() *glyphCache {
	return &glyphCache{faces: map[int]font.Face{}}
}

// face returns a face at px pixels, quantized to quarter pixels.
func (g *glyphCache) face(px float64) font.Face {
	key := int(math.Round(px * 4))
	if f, ok := g.faces[key]; ok {
		return f
	}
	ft, err := regularFont()
	if err != nil {
		return nil
	}
	f, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    float64(key) / 4,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil
	}
	g.faces[key] = f
	return f
}

// showText draws s at the current text position and advances it. Every font is substituted by
// Go Regular and strings are read as WinAnsi.
func (in *interpreter) showText(s []byte) {
	if in.text.size == 0 || len(s) == 0 {
		return
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(s)
	if err != nil {
		decoded = s
	}
	str := string(decoded)

	trm := matrix{in.text.size * in.text.hscale, 0, 0, in.text.size, 0, 0}.mul(in.text.tm).mul(in.gs.ctm).mul(in.base)
	px := math.Abs(trm[3])
	if px < 1 {
		in.advanceBy(str, 0.5*float64(len([]rune(str))))
		return
	}
	face := in.glyphs.face(px)
	if face == nil {
		return
	}
	origin := trm.apply(0, 0)
	d := font.Drawer{
		Dst:  in.dst,
		Src:  image.NewUniform(withAlpha(in.gs.fill, in.gs.fillAlpha)),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(origin.x * 64), Y: fixed.Int26_6(origin.y * 64)},
	}
	d.DrawString(str)
	in.advanceBy(str, float64(d.MeasureString(str))/64/px)
}

// advanceBy moves the text matrix by the rendered width (in em) plus spacing.
func (in *interpreter) advanceBy(str string, em float64) {
	t := &in.text
	spaces := 0
	for _, r := range str {
		if r == ' ' {
			spaces++
		}
	}
	n := float64(len([]rune(str)))
	tx := (em*t.size + n*t.charSpacing + float64(spaces)*t.wordSpacing) * t.hscale
	t.advance(tx)
}
