package model

import (
	"encoding/json"
	"time"
)

// EditModel is the per-document overlay: page index (as a decimal string) to annotation records in paint order.
// Records are kept as raw JSON so fields the server does not interpret survive a save and load.
type EditModel struct {
	Version int                          `json:"version"`
	Pages   map[string][]json.RawMessage `json:"pages"`
}

// NewEditModel returns the model served for a document that has never been edited.
func NewEditModel() *EditModel {
	return &EditModel{Version: 1, Pages: map[string][]json.RawMessage{}}
}

// AnnotationCount is the total number of records across all pages.
func (m *EditModel) AnnotationCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, recs := range m.Pages {
		n += len(recs)
	}
	return n
}

// EditRecord is an EditModel as persisted, with its owning document.
type EditRecord struct {
	DocumentID string
	Model      EditModel
	UpdatedAt  time.Time
}
