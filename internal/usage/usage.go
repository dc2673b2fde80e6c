// Package usage checks a translated chapter against the glossary.
//
// The check is a loose substring test on normalized text, meant as a quick
// sanity signal. Word-boundary precise matching lives in package termmatch.
package usage

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/valpere/glossator/internal"
)

// Result labels every glossary term by its input.
type Result struct {
	Used    []string `json:"used"`
	Unused  []string `json:"unused"`
	Missing []string `json:"missing"`
}

func (r Result) Total() int {
	return len(r.Used) + len(r.Unused) + len(r.Missing)
}

// Percent is the rounded share of used terms; 0 for an empty glossary.
func (r Result) Percent() int {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(len(r.Used)) * 100 / float64(total)))
}

// normalize lowercases s and drops everything that is not a letter, mark,
// digit, underscore or whitespace.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsDigit(r), r == '_', unicode.IsSpace(r):
			return unicode.ToLower(r)
		default:
			return -1
		}
	}, s)
}

// Check classifies each term: unused when its input is absent from the
// source, used when its translation appears in the translation, missing
// otherwise.
func Check(sourceText, translatedText string, glossary []internal.GlossaryTerm) Result {
	source := normalize(sourceText)
	translated := normalize(translatedText)

	var r Result
	for _, term := range glossary {
		switch {
		case !strings.Contains(source, normalize(term.Input)):
			r.Unused = append(r.Unused, term.Input)
		case strings.Contains(translated, normalize(term.Translation)):
			r.Used = append(r.Used, term.Input)
		default:
			r.Missing = append(r.Missing, term.Input)
		}
	}
	return r
}

// Report renders Check as a multi-section human-readable report.
func Report(sourceText, translatedText string, glossary []internal.GlossaryTerm) string {
	r := Check(sourceText, translatedText, glossary)
	byInput := make(map[string]internal.GlossaryTerm, len(glossary))
	for _, t := range glossary {
		if _, ok := byInput[t.Input]; !ok {
			byInput[t.Input] = t
		}
	}

	var sb strings.Builder
	sb.WriteString("GLOSSARY USAGE REPORT\n")

	if len(r.Used) > 0 {
		fmt.Fprintf(&sb, "\nUSED TERMS (%d):\n", len(r.Used))
		for _, in := range r.Used {
			fmt.Fprintf(&sb, "  + %q → %q\n", in, byInput[in].Translation)
		}
	}
	if len(r.Missing) > 0 {
		fmt.Fprintf(&sb, "\nMISSING TERMS (%d) - found in source but not in translation:\n", len(r.Missing))
		for _, in := range r.Missing {
			fmt.Fprintf(&sb, "  ! %q → %q (expected)\n", in, byInput[in].Translation)
		}
	}
	if len(r.Unused) > 0 {
		fmt.Fprintf(&sb, "\nUNUSED TERMS (%d) - not found in source text:\n", len(r.Unused))
		for _, in := range r.Unused {
			fmt.Fprintf(&sb, "  - %q\n", in)
		}
	}

	sb.WriteString("\nSUMMARY:\n")
	fmt.Fprintf(&sb, "  Total glossary terms: %d\n", r.Total())
	fmt.Fprintf(&sb, "  Terms used: %d/%d (%d%%)\n", len(r.Used), r.Total(), r.Percent())
	fmt.Fprintf(&sb, "  Terms missing: %d\n", len(r.Missing))
	if len(r.Missing) > 0 {
		fmt.Fprintf(&sb, "\nWARNING: %d glossary term(s) were found in the source but their translations are missing from the output.\n", len(r.Missing))
	}
	return sb.String()
}
