package model

import (
	"encoding/json"
	"strings"
)

// Kind identifies an annotation variant after alias resolution.
type Kind string

const (
	KindTextBox   Kind = "text-box"
	KindCover     Kind = "cover-block"
	KindLine      Kind = "line"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindFreehand  Kind = "freehand-path"
	KindHighlight Kind = "highlight"
	KindRedact    Kind = "redact"
	KindStamp     Kind = "stamp"
)

var kindAliases = map[string]Kind{
	"textbox":       KindTextBox,
	"text-box":      KindTextBox,
	"cover_text":    KindCover,
	"cover-block":   KindCover,
	"cover":         KindCover,
	"line":          KindLine,
	"rectangle":     KindRectangle,
	"circle":        KindCircle,
	"freehand":      KindFreehand,
	"freehand-path": KindFreehand,
	"highlight":     KindHighlight,
	"redact":        KindRedact,
	"stamp":         KindStamp,
}

// ParseKind resolves a wire type name. Matching is case-insensitive.
func ParseKind(s string) (Kind, bool) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

// Annotation is the decoded form of one edit record. Geometry fields are pointers so a missing
// coordinate can be told apart from zero.
type Annotation struct {
	Type string `json:"type"`

	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	W *float64 `json:"w"`
	H *float64 `json:"h"`

	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
	X2 *float64 `json:"x2"`
	Y2 *float64 `json:"y2"`

	Radius *float64    `json:"radius"`
	Points [][]float64 `json:"points"`

	Text  *string `json:"text"`
	Label *string `json:"label"`

	// Colors are kept raw: a value that is not a string resolves to the kind default when painted.
	Color       json.RawMessage `json:"color"`
	StrokeColor json.RawMessage `json:"strokeColor"`
	FontSize    *float64        `json:"fontSize"`
	StrokeWidth *float64        `json:"strokeWidth"`
	Opacity     *float64        `json:"opacity"`
}
