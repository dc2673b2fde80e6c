package internal

import "strings"

type Gender string

const (
	GenderMale        Gender = "Male"
	GenderFemale      Gender = "Female"
	GenderNeutral     Gender = "Neutral"
	GenderUnspecified Gender = "Unspecified"
)

// ParseGender maps loosely formatted backend output onto a Gender.
// Anything unrecognised becomes GenderUnspecified.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	case "neutral", "n":
		return GenderNeutral
	default:
		return GenderUnspecified
	}
}

// Specific reports whether the gender names a person's gender, which is the
// only case worth telling the translator about.
func (g Gender) Specific() bool {
	return g == GenderMale || g == GenderFemale
}

type MatchType string

const (
	MatchExact           MatchType = "Exact"
	MatchCaseInsensitive MatchType = "Case-Insensitive"
	MatchUnspecified     MatchType = "Unspecified"
)

func ParseMatchType(s string) MatchType {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)
	switch norm {
	case "exact":
		return MatchExact
	case "caseinsensitive":
		return MatchCaseInsensitive
	default:
		return MatchUnspecified
	}
}

// Field selects which side of a glossary term is matched against text.
type Field string

const (
	FieldInput       Field = "input"
	FieldTranslation Field = "translation"
)

type GlossaryTerm struct {
	ID          string    `json:"id"`
	Input       string    `json:"input"`
	Translation string    `json:"translation"`
	Gender      Gender    `json:"gender"`
	MatchType   MatchType `json:"matchType"`
}

// Side returns the text of the term on the given side.
func (t GlossaryTerm) Side(f Field) string {
	if f == FieldTranslation {
		return t.Translation
	}
	return t.Input
}

func (t GlossaryTerm) Candidate() TermCandidate {
	return TermCandidate{
		Input:       t.Input,
		Translation: t.Translation,
		Gender:      t.Gender,
		MatchType:   t.MatchType,
	}
}

// TermCandidate is a glossary term that has not been assigned an identity yet,
// as proposed by extraction and confirmed by review.
type TermCandidate struct {
	Input       string    `json:"input"`
	Translation string    `json:"translation"`
	Gender      Gender    `json:"gender"`
	MatchType   MatchType `json:"matchType"`
}

func (c TermCandidate) WithID(id string) GlossaryTerm {
	return GlossaryTerm{
		ID:          id,
		Input:       c.Input,
		Translation: c.Translation,
		Gender:      c.Gender,
		MatchType:   c.MatchType,
	}
}

// Key is the case-insensitive identity of a term within a glossary.
func (c TermCandidate) Key() string {
	return strings.ToLower(c.Input)
}

type Chapter struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SourceText     string `json:"sourceText"`
	TranslatedText string `json:"translatedText"`
}

// DedupeCandidates keeps the first occurrence of every input, compared
// case-insensitively. Candidates with an empty input are dropped.
func DedupeCandidates(terms []TermCandidate) []TermCandidate {
	seen := make(map[string]bool, len(terms))
	out := make([]TermCandidate, 0, len(terms))
	for _, t := range terms {
		if t.Input == "" || seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true
		out = append(out, t)
	}
	return out
}
