// Package termmatch locates glossary terms inside arbitrary text.
//
// Matching works on whole words produced by a segmenter.Segmenter, so a
// glossary entry "Long" never matches inside "Longer". Overlaps are resolved
// in favour of the earliest start and then the longest match, which lets
// multi-word entries win over their single-word prefixes.
package termmatch

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/segmenter"
)

// Span is one matched occurrence. Start is a byte offset into the text.
type Span struct {
	Term  internal.GlossaryTerm
	Start int
	Text  string
}

func (s Span) End() int {
	return s.Start + len(s.Text)
}

type Matcher struct {
	seg segmenter.Segmenter
}

// New returns a Matcher using seg for word boundaries. A nil seg selects
// segmenter.Default.
func New(seg segmenter.Segmenter) *Matcher {
	if seg == nil {
		seg = segmenter.Default()
	}
	return &Matcher{seg: segmenter.Safe(seg)}
}

var defaultMatcher = sync.OnceValue(func() *Matcher { return New(nil) })

// Match runs the shared default Matcher.
func Match(text string, glossary []internal.GlossaryTerm, field internal.Field) []Span {
	return defaultMatcher().Match(text, glossary, field)
}

type preparedTerm struct {
	term   internal.GlossaryTerm
	exact  bool
	words  []string
	folded []string
}

// Match returns the non-overlapping occurrences of glossary terms in text,
// sorted by start offset. field selects which side of every term is looked
// for. The result depends only on the arguments.
func (m *Matcher) Match(text string, glossary []internal.GlossaryTerm, field internal.Field) []Span {
	if strings.TrimSpace(text) == "" || len(glossary) == 0 {
		return nil
	}

	tokens := m.seg.Words(text)
	if len(tokens) == 0 {
		return nil
	}
	foldedTokens := make([]string, len(tokens))
	for i, tok := range tokens {
		foldedTokens[i] = Fold(tok.Text)
	}

	terms := m.prepare(glossary, field)

	var candidates []Span
	for i := range tokens {
		for _, pt := range terms {
			n := len(pt.words)
			if i+n > len(tokens) || !pt.matchesAt(tokens, foldedTokens, i) {
				continue
			}
			start, end := tokens[i].Start, tokens[i+n-1].End()
			candidates = append(candidates, Span{Term: pt.term, Start: start, Text: text[start:end]})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].Start != candidates[b].Start {
			return candidates[a].Start < candidates[b].Start
		}
		return len(candidates[a].Text) > len(candidates[b].Text)
	})

	var spans []Span
	lastEnd := 0
	for _, c := range candidates {
		if c.Start < lastEnd {
			continue
		}
		spans = append(spans, c)
		lastEnd = c.End()
	}
	return spans
}

// prepare segments every term once and orders them: more words first, then
// longer text.
func (m *Matcher) prepare(glossary []internal.GlossaryTerm, field internal.Field) []preparedTerm {
	terms := make([]preparedTerm, 0, len(glossary))
	for _, term := range glossary {
		side := strings.TrimSpace(term.Side(field))
		if side == "" {
			continue
		}
		toks := m.seg.Words(side)
		if len(toks) == 0 {
			continue
		}
		pt := preparedTerm{
			term:   term,
			exact:  term.MatchType == internal.MatchExact,
			words:  make([]string, len(toks)),
			folded: make([]string, len(toks)),
		}
		for i, tok := range toks {
			pt.words[i] = tok.Text
			pt.folded[i] = Fold(tok.Text)
		}
		terms = append(terms, pt)
	}

	sort.SliceStable(terms, func(a, b int) bool {
		wa, wb := wordCount(terms[a].term, field), wordCount(terms[b].term, field)
		if wa != wb {
			return wa > wb
		}
		return utf8.RuneCountInString(terms[a].term.Side(field)) > utf8.RuneCountInString(terms[b].term.Side(field))
	})
	return terms
}

func wordCount(term internal.GlossaryTerm, field internal.Field) int {
	return len(strings.Fields(term.Side(field)))
}

func (pt preparedTerm) matchesAt(tokens []segmenter.Token, folded []string, i int) bool {
	for j := range pt.words {
		if pt.exact {
			if tokens[i+j].Text != pt.words[j] {
				return false
			}
		} else if folded[i+j] != pt.folded[j] {
			return false
		}
	}
	return true
}

var dStroke = strings.NewReplacer("đ", "d", "Đ", "d")

// Fold lowercases s and strips diacritics, so "Nguyễn", "nguyen" and
// "NGUYEN" compare equal. The Vietnamese letter đ folds to d.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(dStroke.Replace(folded))
}

// Segment is a piece of an annotated rendering: either a matched span
// (Term set) or the unmatched gap text between spans.
type Segment struct {
	Text string
	Term *internal.GlossaryTerm
}

// Annotate splits text into alternating gaps and spans. Concatenating the
// Text of every segment reproduces text.
func Annotate(text string, spans []Span) []Segment {
	var segments []Segment
	pos := 0
	for i := range spans {
		sp := spans[i]
		if sp.Start > pos {
			segments = append(segments, Segment{Text: text[pos:sp.Start]})
		}
		term := sp.Term
		segments = append(segments, Segment{Text: sp.Text, Term: &term})
		pos = sp.End()
	}
	if pos < len(text) {
		segments = append(segments, Segment{Text: text[pos:]})
	}
	return segments
}

// Mark wraps every span of text in openMark and closeMark.
func Mark(text string, spans []Span, openMark, closeMark string) string {
	var sb strings.Builder
	for _, seg := range Annotate(text, spans) {
		if seg.Term != nil {
			sb.WriteString(openMark)
			sb.WriteString(seg.Text)
			sb.WriteString(closeMark)
			continue
		}
		sb.WriteString(seg.Text)
	}
	return sb.String()
}
