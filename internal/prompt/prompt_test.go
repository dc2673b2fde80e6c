package prompt

import (
	"strings"
	"testing"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/settings"
)

func glossarySettings() settings.Settings {
	return settings.Settings{UseGlossaryAI: true}.WithGlossary([]internal.GlossaryTerm{
		{ID: "1", Input: "Feng Yun", Translation: "Phong Vân", Gender: internal.GenderMale, MatchType: internal.MatchCaseInsensitive},
		{ID: "2", Input: "Jade Hall", Translation: "Ngọc Đường", Gender: internal.GenderNeutral},
	})
}

func TestBuild_GlossaryBlock(t *testing.T) {
	p := Build("Feng Yun bowed.", "English", "Vietnamese", glossarySettings())

	checks := []string{
		"Translate the following text from English to Vietnamese.",
		`- "Feng Yun" → "Phong Vân" (Gender: Male, Match: Case-Insensitive)`,
		"CRITICAL",
		"MANDATORY",
		"ALL-CAPS",
	}
	for _, want := range checks {
		if !strings.Contains(p, want) {
			t.Errorf("expected prompt to contain %q:\n%s", want, p)
		}
	}

	// Neutral gender and unspecified match type are not worth mentioning.
	if !strings.Contains(p, "- \"Jade Hall\" → \"Ngọc Đường\"\n") {
		t.Errorf("expected bare line for Jade Hall:\n%s", p)
	}
}

func TestBuild_Ordering(t *testing.T) {
	s := glossarySettings()
	s.CustomInstructions = "Keep Han-Viet names."
	s.PreserveMarkup = true

	p := Build("Body text.", "English", "Vietnamese", s)

	order := []string{"Translate the following", "**Glossary (MANDATORY):**", "**Style Instructions:**", "[PH", "Source Text:", "Body text."}
	last := -1
	for _, marker := range order {
		idx := strings.Index(p, marker)
		if idx < 0 {
			t.Fatalf("missing %q in prompt:\n%s", marker, p)
		}
		if idx <= last {
			t.Errorf("%q appears out of order", marker)
		}
		last = idx
	}
	if !strings.HasSuffix(p, "Body text.\n\"\"\"") {
		t.Errorf("expected source to close the prompt, got tail %q", p[len(p)-20:])
	}
}

func TestBuild_NoGlossary(t *testing.T) {
	tests := []struct {
		name string
		s    settings.Settings
	}{
		{"empty glossary", settings.Settings{UseGlossaryAI: true}},
		{"glossary disabled", func() settings.Settings {
			s := glossarySettings()
			s.UseGlossaryAI = false
			return s
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Build("text", "en", "vi", tt.s)
			if strings.Contains(p, "Glossary") || strings.Contains(p, "→") {
				t.Errorf("expected no glossary block:\n%s", p)
			}
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	s := glossarySettings()
	s.CustomInstructions = "Formal register."
	a := Build("Feng Yun bowed.", "English", "Vietnamese", s)
	b := Build("Feng Yun bowed.", "English", "Vietnamese", s)
	if a != b {
		t.Error("expected identical prompts for identical inputs")
	}
}

func TestTemplate_MatchesBuild(t *testing.T) {
	s := glossarySettings()
	tmpl := Template("English", "Vietnamese", s)
	for _, src := range []string{"one", "two\n\nparagraphs"} {
		if got, want := tmpl(src), Build(src, "English", "Vietnamese", s); got != want {
			t.Errorf("Template(%q) differs from Build", src)
		}
	}
}

func TestExtraction(t *testing.T) {
	p := Extraction("Feng Yun entered.", "Vietnamese", "Use Han-Viet readings.", "Yun\nHall")

	for _, want := range []string{"**Exclusion List:**", "Yun\nHall", "**Style Guidelines for Translation Suggestions:**", "Use Han-Viet readings.", "into Vietnamese that follows the Style Guidelines above.", "Feng Yun entered."} {
		if !strings.Contains(p, want) {
			t.Errorf("expected extraction prompt to contain %q", want)
		}
	}

	bare := Extraction("text", "Vietnamese", "  ", "")
	for _, absent := range []string{"**Exclusion List:**", "**Style Guidelines for Translation Suggestions:**", "Style Guidelines above"} {
		if strings.Contains(bare, absent) {
			t.Errorf("expected %q omitted:\n%s", absent, bare)
		}
	}
	if !strings.Contains(bare, "translation into Vietnamese.\n") {
		t.Errorf("expected plain task line:\n%s", bare)
	}
}

func TestProofread(t *testing.T) {
	p := Proofread("Phong Vân đến.", "Vietnamese")
	if !strings.Contains(p, "Vietnamese text") || !strings.Contains(p, "Phong Vân đến.") {
		t.Errorf("unexpected proofread prompt:\n%s", p)
	}
}
