// Package chunker splits chapter text into pieces small enough for a single
// backend request. Paragraphs are packed together up to the size limit; a
// paragraph that is too long on its own is cut at sentence or word
// boundaries.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExtractionChars is the chunk size used for glossary extraction requests.
const ExtractionChars = 8000

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// Paragraphs packs the paragraphs of text into chunks of at most maxChars
// runes, joining packed paragraphs with a blank line. Blank text yields no
// chunks. maxChars <= 0 means unlimited.
func Paragraphs(text string, maxChars int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxChars <= 0 {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, para := range paragraphSep.Split(text, -1) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		n := utf8.RuneCountInString(para)
		switch {
		case n > maxChars:
			flush()
			chunks = append(chunks, Split(para, maxChars)...)
		case currentLen > 0 && currentLen+n+2 > maxChars:
			flush()
			current.WriteString(para)
			currentLen = n
		default:
			if currentLen > 0 {
				current.WriteString("\n\n")
				currentLen += 2
			}
			current.WriteString(para)
			currentLen += n
		}
	}
	flush()
	return chunks
}

// Split cuts a single block of text into trimmed pieces of at most maxChars
// runes, preferring (in order) sentence ends, whitespace and finally a hard
// cut.
func Split(text string, maxChars int) []string {
	remaining := []rune(strings.TrimSpace(text))
	if maxChars <= 0 || len(remaining) <= maxChars {
		if len(remaining) == 0 {
			return nil
		}
		return []string{string(remaining)}
	}

	var pieces []string
	for len(remaining) > maxChars {
		cut := findSplit(remaining, maxChars)
		if piece := strings.TrimSpace(string(remaining[:cut])); piece != "" {
			pieces = append(pieces, piece)
		}
		remaining = []rune(strings.TrimSpace(string(remaining[cut:])))
	}
	if len(remaining) > 0 {
		pieces = append(pieces, string(remaining))
	}
	return pieces
}

// findSplit returns the rune index to cut at, never beyond maxChars.
func findSplit(runes []rune, maxChars int) int {
	candidate := runes[:maxChars]

	for i := len(candidate) - 2; i > 0; i-- {
		switch candidate[i] {
		case '.', '!', '?', '…', '。', '！', '？':
			if unicode.IsSpace(candidate[i+1]) {
				return i + 1
			}
		}
	}

	for i := len(candidate) - 1; i > 0; i-- {
		if unicode.IsSpace(candidate[i]) {
			return i
		}
	}

	return maxChars
}
