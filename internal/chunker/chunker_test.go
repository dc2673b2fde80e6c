package chunker_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/valpere/glossator/internal/chunker"
)

// --- Paragraphs tests ---

func TestParagraphs_ShortText(t *testing.T) {
	text := "Feng Yun walked alone."
	chunks := chunker.Paragraphs(text, 100)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("expected %q, got %q", text, chunks[0])
	}
}

func TestParagraphs_Blank(t *testing.T) {
	if chunks := chunker.Paragraphs(" \n\n ", 100); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %q", chunks)
	}
}

func TestParagraphs_Unlimited(t *testing.T) {
	text := strings.Repeat("word ", 500)
	if chunks := chunker.Paragraphs(text, 0); len(chunks) != 1 {
		t.Errorf("expected 1 chunk when maxChars=0, got %d", len(chunks))
	}
}

func TestParagraphs_PacksParagraphs(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph.\n  \nThird paragraph."

	chunks := chunker.Paragraphs(text, 40)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("unexpected first chunk %q", chunks[0])
	}
	if chunks[1] != "Third paragraph." {
		t.Errorf("unexpected second chunk %q", chunks[1])
	}
}

func TestParagraphs_OversizedParagraph(t *testing.T) {
	long := strings.Repeat("Phong Vân bước đi. ", 20)
	text := "Intro.\n\n" + long + "\n\nOutro."

	chunks := chunker.Paragraphs(text, 60)
	if chunks[0] != "Intro." {
		t.Errorf("expected intro to be flushed first, got %q", chunks[0])
	}
	if chunks[len(chunks)-1] != "Outro." {
		t.Errorf("expected outro last, got %q", chunks[len(chunks)-1])
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 60 {
			t.Errorf("chunk %d has %d runes", i, n)
		}
	}
}

// --- Split tests ---

func TestSplit_SentenceBoundary(t *testing.T) {
	text := "First sentence ends here. Second sentence follows. Third sentence."
	chunks := chunker.Split(text, 40)
	if len(chunks) < 2 {
		t.Fatalf("expected ≥2 chunks, got %d", len(chunks))
	}
	if chunks[0] != "First sentence ends here." {
		t.Errorf("expected cut after first sentence, got %q", chunks[0])
	}
	for i, c := range chunks {
		if c != strings.TrimSpace(c) || c == "" {
			t.Errorf("chunk %d is not trimmed or empty: %q", i, c)
		}
	}
}

func TestSplit_WordBoundary(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	chunks := chunker.Split(text, 20)
	if len(chunks) < 2 {
		t.Fatalf("expected ≥2 chunks, got %d", len(chunks))
	}
	rejoined := strings.Join(chunks, " ")
	if rejoined != text {
		t.Errorf("expected words to survive intact, got %q", rejoined)
	}
}

func TestSplit_HardCut(t *testing.T) {
	text := strings.Repeat("x", 25)
	chunks := chunker.Split(text, 10)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Error("expected hard cuts to keep every rune")
	}
}

func TestSplit_Empty(t *testing.T) {
	if chunks := chunker.Split("", 100); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %q", chunks)
	}
}
