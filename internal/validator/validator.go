// Package validator checks that translated chapters are written in the
// expected target language.
package validator

import (
	"fmt"
	"strings"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Validator reuses one detector; building it is expensive.
type Validator struct {
	det *detector.Detector
}

func New() *Validator {
	return &Validator{det: detector.New()}
}

// IsValid returns true when translatedText appears to be written in targetLang.
// targetLang may be an ISO 639-1 code ("uk") or an English language name
// ("Ukrainian"), compared case-insensitively.
//
// Short texts and texts whose language cannot be determined pass without
// error. When the detected language differs the error names both.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	targetLang = strings.TrimSpace(targetLang)
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.Detect(text)
	if !ok {
		return true, nil
	}

	if !sameLanguage(detected, targetLang) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}
	return true, nil
}

func sameLanguage(lang lingua.Language, target string) bool {
	return strings.EqualFold(lang.String(), target) ||
		strings.EqualFold(lang.IsoCode639_1().String(), target)
}

// Mismatch is a translated chapter that failed the check.
type Mismatch struct {
	ChapterID string
	Name      string
	Err       error
}

// CheckChapters validates every chapter that has a translation and returns
// the ones that do not read as targetLang, in input order.
func (v *Validator) CheckChapters(chapters []internal.Chapter, targetLang string) []Mismatch {
	var out []Mismatch
	for _, c := range chapters {
		if strings.TrimSpace(c.TranslatedText) == "" {
			continue
		}
		if ok, err := v.IsValid(c.TranslatedText, targetLang); !ok {
			out = append(out, Mismatch{ChapterID: c.ID, Name: c.Name, Err: err})
		}
	}
	return out
}
