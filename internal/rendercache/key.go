package rendercache

import (
	"fmt"
	"strconv"
	"strings"
)

const prefix = "renders/"

// Key identifies one rendered page at one zoom factor.
type Key struct {
	DocID string
	Page  int
	Scale float64
}

// String is the object key the raster is stored under.
func (k Key) String() string {
	return fmt.Sprintf("%s%s/p%d_s%s.png", prefix, k.DocID, k.Page, FormatScale(k.Scale))
}

// FormatScale renders a scale without trailing zeros so 2 and 2.0 share an entry.
func FormatScale(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// DocPrefix is the common prefix of every entry of a document.
func DocPrefix(docID string) string {
	return prefix + docID + "/"
}

// parsePage extracts the page index from an object key under DocPrefix.
func parsePage(docID, key string) (int, bool) {
	name, ok := strings.CutPrefix(key, DocPrefix(docID))
	if !ok || !strings.HasPrefix(name, "p") || !strings.HasSuffix(name, ".png") {
		return 0, false
	}
	idx, _, ok := strings.Cut(name[1:], "_s")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Selector chooses which page indices an invalidation removes.
type Selector struct {
	from int
	to   int // inclusive; -1 means no upper bound
}

// Page selects every scale of page i.
func Page(i int) Selector { return Selector{from: i, to: i} }

// From selects page i and everything after it.
func From(i int) Selector { return Selector{from: i, to: -1} }

// All selects the whole document.
func All() Selector { return Selector{from: 0, to: -1} }

func (s Selector) Match(page int) bool {
	if page < s.from {
		return false
	}
	return s.to < 0 || page <= s.to
}

func (s Selector) String() string {
	switch {
	case s.to < 0 && s.from == 0:
		return "all"
	case s.to < 0:
		return fmt.Sprintf("from:%d", s.from)
	default:
		return fmt.Sprintf("page:%d", s.from)
	}
}
