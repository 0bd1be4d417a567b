package document

import (
	"fmt"
	"strings"
)

// PageTexts is the ordered per-page plain text, 1-indexed. Index 0 is
// an empty sentry; Window treats indexes past the end the same way.
// Immutable once built; consumed only for window construction.
type PageTexts []string

// BuildPageTexts normalizes raw per-page text (0-indexed input) into a
// 1-indexed PageTexts.
func BuildPageTexts(raw []string) PageTexts {
	texts := make(PageTexts, len(raw)+1)
	for i, s := range raw {
		texts[i+1] = NormalizeText(s)
	}
	return texts
}

// Len is the page count.
func (p PageTexts) Len() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Label is the page marker embedded in context windows; its presence
// is also the guard against merging the same page's context twice.
func Label(noun string, page int) string {
	return fmt.Sprintf("[%s %d]", noun, page)
}

// Window builds the context string for page: the labeled text of
// page-1, page and page+1 joined in order, with boundary neighbors
// contributing nothing.
func (p PageTexts) Window(page int, noun string) string {
	var parts []string
	for q := page - 1; q <= page+1; q++ {
		if q < 1 || q > p.Len() {
			continue
		}
		parts = append(parts, Label(noun, q)+" "+p[q])
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// AppendContext merges a recurrence of the same image on another page
// into an existing context, skipped when that page's label is already
// present so repeated merges cannot grow the context without bound.
func AppendContext(existing, label, window string) string {
	if strings.Contains(existing, label) {
		return existing
	}
	if existing == "" {
		return window
	}
	return existing + "\n\n[Also seen] " + window
}
