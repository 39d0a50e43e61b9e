package pdf

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// helveticaWidths holds the Helvetica advance widths (1/1000 em) for WinAnsi codes 32..126.
var helveticaWidths = [...]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278, // 32-47
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556, // 48-63
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778, // 64-79
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556, // 80-95
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556, // 96-111
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584, // 112-126
}

const defaultGlyphWidth = 556

// EncodeWinAnsi maps s to WinAnsi bytes. Runes outside the code page become '?'.
func EncodeWinAnsi(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

func glyphWidth(code byte) int {
	if code >= 32 && int(code-32) < len(helveticaWidths) {
		return helveticaWidths[code-32]
	}
	return defaultGlyphWidth
}

// TextWidth is the advance of s set in Helvetica at size points.
func TextWidth(s string, size float64) float64 {
	total := 0
	for _, c := range EncodeWinAnsi(s) {
		total += glyphWidth(c)
	}
	return float64(total) * size / 1000
}

// WrapText breaks text into lines no wider than width. Explicit newlines are kept;
// a single word wider than the box is split by character.
func WrapText(text string, size, width float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := ""
		for _, w := range words {
			cand := w
			if cur != "" {
				cand = cur + " " + w
			}
			if TextWidth(cand, size) <= width {
				cur = cand
				continue
			}
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			for TextWidth(w, size) > width {
				head, tail := splitToWidth(w, size, width)
				lines = append(lines, head)
				w = tail
			}
			cur = w
		}
		lines = append(lines, cur)
	}
	return lines
}

// splitToWidth returns the longest prefix of w that fits (at least one rune) and the rest.
func splitToWidth(w string, size, width float64) (string, string) {
	runes := []rune(w)
	n := 1
	for n < len(runes) && TextWidth(string(runes[:n+1]), size) <= width {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}
