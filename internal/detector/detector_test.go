package detector

import (
	"strings"
	"testing"

	"github.com/valpere/glossator/internal"
)

func TestDetector_Detect(t *testing.T) {
	d := New()

	tests := []struct {
		text     string
		wantName string
		wantISO  string
	}{
		{"Hello, this is a test in English.", "English", "EN"},
		{"Привіт, це тест українською мовою.", "Ukrainian", "UK"},
		{"Hallo, das ist ein Test auf Deutsch.", "German", "DE"},
		{"Bonjour, ceci est un test en français.", "French", "FR"},
		{"Hola, esto es una prueba en español.", "Spanish", "ES"},
		{"To jest test po polsku.", "Polish", "PL"},
		{"Это тест на русском языке.", "Russian", "RU"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			lang, ok := d.Detect(tt.text)
			if !ok || lang.String() != tt.wantName {
				t.Errorf("Detect(%q) = %v, %v, want %s", tt.text, lang, ok, tt.wantName)
			}
			code, ok := d.DetectISO(tt.text)
			if !ok || code != tt.wantISO {
				t.Errorf("DetectISO(%q) = %q, %v, want %s", tt.text, code, ok, tt.wantISO)
			}
		})
	}
}

func TestDetector_Blank(t *testing.T) {
	d := New()
	for _, text := range []string{"", "   \n\t"} {
		if _, ok := d.Detect(text); ok {
			t.Errorf("Detect(%q) should fail", text)
		}
		if code, ok := d.DetectISO(text); ok || code != "" {
			t.Errorf("DetectISO(%q) = %q, %v, want no result", text, code, ok)
		}
	}
}

func TestDetector_DetectChapters(t *testing.T) {
	d := New()

	chapters := []internal.Chapter{
		{ID: "1", SourceText: "Feng Yun walked alone through the empty hall, listening to the rain."},
		{ID: "2", SourceText: ""},
		{ID: "3", SourceText: "The old master closed the door and sat down beside the fire."},
		{ID: "4", SourceText: "Привіт, це тест українською мовою."},
	}

	got, ok := d.DetectChapters(chapters)
	if !ok || got != "English" {
		t.Errorf("DetectChapters = %q, %v; want English", got, ok)
	}

	if _, ok := d.DetectChapters([]internal.Chapter{{ID: "1"}}); ok {
		t.Error("expected no detection for empty chapters")
	}
}

func TestSample(t *testing.T) {
	text := strings.Repeat("word ", 500)
	s := sample(text, 12)
	if s != "word word" {
		t.Errorf("expected cut at whitespace, got %q", s)
	}
	if got := sample("  short  ", 100); got != "short" {
		t.Errorf("expected trimmed short text, got %q", got)
	}
}
