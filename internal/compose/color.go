package compose

import (
	"encoding/json"
	"strconv"
	"strings"

	"pdfedit/internal/pdf"
)

// ParseColor reads #rgb, #rrggbb or #rrggbbaa. The alpha byte is accepted and ignored.
func ParseColor(s string) (pdf.Color, bool) {
	s = strings.TrimSpace(s)
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return pdf.Color{}, false
	}
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	case 8:
		hex = hex[:6]
	default:
		return pdf.Color{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return pdf.Color{}, false
	}
	return pdf.Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, true
}

// colorOr resolves a raw record color. Absent values, non-strings and unparseable strings give def.
func colorOr(raw json.RawMessage, def string) pdf.Color {
	var s string
	if len(raw) > 0 && json.Unmarshal(raw, &s) == nil {
		if c, ok := ParseColor(s); ok {
			return c
		}
	}
	c, _ := ParseColor(def)
	return c
}
