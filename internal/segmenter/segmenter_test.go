package segmenter

import "testing"

func texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSegmenters_Words(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "plain words",
			input:    "Feng Yun walked alone.",
			expected: []string{"Feng", "Yun", "walked", "alone"},
		},
		{
			name:     "vietnamese diacritics",
			input:    "Nguyễn Văn Đức",
			expected: []string{"Nguyễn", "Văn", "Đức"},
		},
		{
			name:     "decomposed combining marks",
			input:    "Nguye\u0302\u0303n came",
			expected: []string{"Nguye\u0302\u0303n", "came"},
		},
		{
			name:     "punctuation only",
			input:    "... !!! ,",
			expected: nil,
		},
		{
			name:     "empty",
			input:    "",
			expected: nil,
		},
	}

	for _, seg := range []Segmenter{UAX29{}, Regexp{}} {
		for _, tt := range tests {
			t.Run(seg.Name()+"/"+tt.name, func(t *testing.T) {
				got := texts(seg.Words(tt.input))
				if !equal(got, tt.expected) {
					t.Errorf("Words(%q) = %q, want %q", tt.input, got, tt.expected)
				}
			})
		}
	}
}

func TestSegmenters_Offsets(t *testing.T) {
	input := "«Long Phi» met Long, then Longer."
	for _, seg := range []Segmenter{UAX29{}, Regexp{}} {
		for _, tok := range seg.Words(input) {
			if input[tok.Start:tok.End()] != tok.Text {
				t.Errorf("%s: token %q does not match text at offset %d", seg.Name(), tok.Text, tok.Start)
			}
		}
	}
}

func TestDefault(t *testing.T) {
	seg := Default()
	if seg == nil {
		t.Fatal("expected non-nil segmenter")
	}
	if seg.Name() != "uax29" {
		t.Errorf("expected uax29 to be selected, got %q", seg.Name())
	}
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }
func (panicky) Words(string) []Token { panic("segmentation unavailable") }

func TestSafe_FallsBackOnPanic(t *testing.T) {
	seg := Safe(panicky{})

	got := texts(seg.Words("Long Phi"))
	if !equal(got, []string{"Long", "Phi"}) {
		t.Errorf("unexpected fallback tokens %q", got)
	}
}

func TestSelfCheck_RejectsBrokenSegmenter(t *testing.T) {
	if selfCheck(panicky{}) {
		t.Error("expected the self-check to reject a panicking segmenter")
	}
}
