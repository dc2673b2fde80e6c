// Package segmenter splits text into word tokens with byte offsets.
//
// Two implementations are provided: UAX29 follows the Unicode word-boundary
// rules and Regexp approximates them with a pattern that keeps letters,
// combining marks and digits together. Default picks one at startup.
package segmenter

import (
	"regexp"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// Token is a single word and its byte offset in the segmented text.
type Token struct {
	Text  string
	Start int
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Start + len(t.Text)
}

// Segmenter returns the word-like tokens of a text in order of appearance.
// Whitespace and punctuation never appear in the result.
type Segmenter interface {
	Name() string
	Words(text string) []Token
}

// UAX29 segments text with Unicode Standard Annex #29 word boundaries.
type UAX29 struct{}

func (UAX29) Name() string { return "uax29" }

func (UAX29) Words(text string) []Token {
	var tokens []Token
	offset := 0
	seg := words.FromString(text)
	for seg.Next() {
		value := seg.Value()
		if isWordLike(value) {
			tokens = append(tokens, Token{Text: value, Start: offset})
		}
		offset += len(value)
	}
	return tokens
}

func isWordLike(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// wordRe treats accented letter sequences, including decomposed combining
// marks, as part of the word. Inner apostrophes are kept ("don't").
var wordRe = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+(?:['’][\p{L}\p{M}\p{N}_]+)*`)

// Regexp is the fallback segmenter.
type Regexp struct{}

func (Regexp) Name() string { return "regexp" }

func (Regexp) Words(text string) []Token {
	locs := wordRe.FindAllStringIndex(text, -1)
	tokens := make([]Token, 0, len(locs))
	for _, loc := range locs {
		tokens = append(tokens, Token{Text: text[loc[0]:loc[1]], Start: loc[0]})
	}
	return tokens
}

const sampleText = "Nguyễn Feng-Yun's 3 swords."

// Default returns UAX29 when it segments a sample text sanely and Regexp
// otherwise.
func Default() Segmenter {
	if selfCheck(UAX29{}) {
		return UAX29{}
	}
	return Regexp{}
}

func selfCheck(s Segmenter) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	tokens := s.Words(sampleText)
	if len(tokens) == 0 || tokens[0].Text != "Nguyễn" {
		return false
	}
	for _, tok := range tokens {
		if sampleText[tok.Start:tok.End()] != tok.Text {
			return false
		}
	}
	return true
}

// Safe wraps a segmenter so that a panic inside it falls back to the
// regular-expression segmenter for that call.
func Safe(s Segmenter) Segmenter {
	if _, ok := s.(Regexp); ok {
		return s
	}
	return safeSegmenter{inner: s}
}

type safeSegmenter struct {
	inner Segmenter
}

func (s safeSegmenter) Name() string { return s.inner.Name() }

func (s safeSegmenter) Words(text string) (tokens []Token) {
	defer func() {
		if recover() != nil {
			tokens = Regexp{}.Words(text)
		}
	}()
	return s.inner.Words(text)
}
