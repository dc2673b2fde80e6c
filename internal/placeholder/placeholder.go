// Package placeholder shields rich-text markup in chapter text from the
// translation backend. HTML tags and character entities become numbered
// markers ([PH0], [PH1], ...) that are put back after translation.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	// opening, closing and self-closing tags
	reTag = regexp.MustCompile(`<[^<>]+>`)

	// named and numeric character references: &nbsp; &#8212; &#x2014;
	reEntity = regexp.MustCompile(`&(?:[A-Za-z][A-Za-z0-9]{1,31}|#[0-9]{1,7}|#[xX][0-9A-Fa-f]{1,6});`)

	reMarker = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protected is a text with its markup swapped out for markers.
type Protected struct {
	Text    string
	markers []string
}

// Protect replaces tags first and entities second, numbering markers in the
// order they are produced.
func Protect(text string) Protected {
	p := Protected{}
	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(p.markers))
		p.markers = append(p.markers, match)
		return id
	}
	text = reTag.ReplaceAllStringFunc(text, replace)
	text = reEntity.ReplaceAllStringFunc(text, replace)
	p.Text = text
	return p
}

// Len is the number of markers created by Protect.
func (p Protected) Len() int {
	return len(p.markers)
}

// Restore puts the original markup back into translated. Unknown marker
// indices are left untouched.
func (p Protected) Restore(translated string) string {
	if len(p.markers) == 0 {
		return translated
	}
	return reMarker.ReplaceAllStringFunc(translated, func(match string) string {
		sub := reMarker.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx >= len(p.markers) {
			return match
		}
		return p.markers[idx]
	})
}

// Missing returns the indices of markers the backend dropped.
func (p Protected) Missing(translated string) []int {
	present := make(map[int]bool)
	for _, sub := range reMarker.FindAllStringSubmatch(translated, -1) {
		if idx, err := strconv.Atoi(sub[1]); err == nil {
			present[idx] = true
		}
	}
	var missing []int
	for i := range p.markers {
		if !present[i] {
			missing = append(missing, i)
		}
	}
	return missing
}

// InstructionHint tells the backend to keep markers intact.
func InstructionHint() string {
	return "The text contains formatting markers such as [PH0]. Keep every [PHn] marker exactly as written and in the matching position; do not translate, move or remove them."
}
