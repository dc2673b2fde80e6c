// Package detector guesses the language of chapter text for runs whose
// source language is set to "auto".
package detector

import (
	"strings"
	"unicode/utf8"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/glossator/internal"
)

// SampleRunes bounds how much text of each chapter is inspected.
const SampleRunes = 1000

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}

// DetectChapters votes over a sample of every non-empty chapter and returns
// the English name of the winning language ("English", "Chinese"), which is
// the form prompts expect. Ties go to the language seen first.
func (d *Detector) DetectChapters(chapters []internal.Chapter) (string, bool) {
	votes := make(map[lingua.Language]int)
	var order []lingua.Language
	for _, c := range chapters {
		lang, ok := d.Detect(sample(c.SourceText, SampleRunes))
		if !ok {
			continue
		}
		if votes[lang] == 0 {
			order = append(order, lang)
		}
		votes[lang]++
	}

	best, bestVotes := lingua.Unknown, 0
	for _, lang := range order {
		if votes[lang] > bestVotes {
			best, bestVotes = lang, votes[lang]
		}
	}
	if bestVotes == 0 {
		return "", false
	}
	return best.String(), true
}

// sample returns at most n runes of text, cut at a whitespace boundary when
// one is available.
func sample(text string, n int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)[:n]
	cut := string(runes)
	if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
		cut = cut[:i]
	}
	return cut
}
