// Package prompt composes the instruction text sent to translation backends.
//
// Every function is deterministic: the same arguments produce a
// byte-identical prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/placeholder"
	"github.com/valpere/glossator/internal/settings"
)

const TranslatorSystem = "You are a professional literary translator. Respond with the translation only: no explanations, no notes, no quotes around the result."

// Template returns a function that wraps a source text into a full
// translation prompt. The glossary and instruction blocks are rendered once.
func Template(sourceLang, targetLang string, s settings.Settings) func(sourceText string) string {
	prefix := Prefix(sourceLang, targetLang, s)
	return func(sourceText string) string {
		return prefix + sourceText + "\n\"\"\""
	}
}

// Build renders a single translation prompt.
func Build(sourceText, sourceLang, targetLang string, s settings.Settings) string {
	return Template(sourceLang, targetLang, s)(sourceText)
}

// Prefix is everything of a translation prompt that precedes the source text:
// task statement, glossary directives, custom instructions and the opening
// source delimiter.
func Prefix(sourceLang, targetLang string, s settings.Settings) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Translate the following text from %s to %s.\n", sourceLang, targetLang)

	if s.UseGlossaryAI && len(s.Glossary) > 0 {
		sb.WriteString(GlossaryBlock(s.Glossary))
	}

	if instructions := strings.TrimSpace(s.CustomInstructions); instructions != "" {
		sb.WriteString("\n**Style Instructions:**\n")
		sb.WriteString(instructions)
		sb.WriteString("\n")
	}

	if s.PreserveMarkup {
		sb.WriteString("\n")
		sb.WriteString(placeholder.InstructionHint())
		sb.WriteString("\n")
	}

	sb.WriteString("\nSource Text:\n\"\"\"\n")
	return sb.String()
}

// GlossaryBlock lists every term as `"input" → "translation"` together with
// the directives that make the glossary binding.
func GlossaryBlock(terms []internal.GlossaryTerm) string {
	var sb strings.Builder
	sb.WriteString("\n**Glossary (MANDATORY):**\n")
	sb.WriteString("CRITICAL: You MUST translate every glossary term that appears in the source text exactly as listed below.\n")
	sb.WriteString("Mirror the casing of each source occurrence: an ALL-CAPS source term gives an ALL-CAPS translation, a Capitalized term gives a Capitalized translation, a lowercase term gives a lowercase translation.\n")
	for _, t := range terms {
		fmt.Fprintf(&sb, "- %q → %q", t.Input, t.Translation)
		var notes []string
		if t.Gender.Specific() {
			notes = append(notes, "Gender: "+string(t.Gender))
		}
		if t.MatchType != "" && t.MatchType != internal.MatchUnspecified {
			notes = append(notes, "Match: "+string(t.MatchType))
		}
		if len(notes) > 0 {
			sb.WriteString(" (" + strings.Join(notes, ", ") + ")")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ExtractionSystem is the system message for glossary extraction calls.
func ExtractionSystem(targetLang string) string {
	return fmt.Sprintf("You are a linguistic analyst. Your task is to extract key terms and suggest translations into %s based on the user's rules.", targetLang)
}

// Extraction asks the backend for the key terms of one chunk of source text.
func Extraction(chunk, targetLang, instructions, exclusionList string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following text to extract key terms like character names, locations, and unique terminology.\n")

	if exclusions := strings.TrimSpace(exclusionList); exclusions != "" {
		sb.WriteString("\n**Exclusion List:**\nDo not extract any of the following terms. These should be completely ignored:\n\"\"\"\n")
		sb.WriteString(exclusions)
		sb.WriteString("\n\"\"\"\n")
	}
	guidelines := strings.TrimSpace(instructions)
	if guidelines != "" {
		sb.WriteString("\n**Style Guidelines for Translation Suggestions:**\nWhen suggesting translations, strictly adhere to the following style guidelines:\n\"\"\"\n")
		sb.WriteString(guidelines)
		sb.WriteString("\n\"\"\"\n")
	}

	follow := ""
	if guidelines != "" {
		follow = " that follows the Style Guidelines above"
	}
	fmt.Fprintf(&sb, `
**Your Task:**
For each extracted term, you must:
1. Provide a suggested translation into %s%s.
2. Determine the gender ('Male', 'Female', or 'Neutral'). Use 'Neutral' for non-characters or if gender is ambiguous.
3. Suggest a match type: 'Case-Insensitive' is recommended for proper nouns (like names and places), and 'Exact' for other specific terms.
`, targetLang, follow)

	sb.WriteString("\n**Source Text to Analyze:**\n\"\"\"\n")
	sb.WriteString(chunk)
	sb.WriteString("\n\"\"\"")
	return sb.String()
}

// ExtractionJSONHint is appended for backends without tool calling.
const ExtractionJSONHint = `Respond with a JSON array only. Each element: {"input": string, "translation": string, "gender": "Male"|"Female"|"Neutral", "matchType": "Exact"|"Case-Insensitive"}.`

// Proofread asks the backend to polish an existing translation.
func Proofread(text, lang string) string {
	return fmt.Sprintf(`You are an expert editor. Proofread and polish the following %s text. Fix grammar, spelling, punctuation and awkward phrasing while keeping the meaning, tone and formatting intact. Return only the corrected text.

Text:
"""
%s
"""`, lang, text)
}
