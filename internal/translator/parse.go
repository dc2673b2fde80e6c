package translator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/glossator/internal"
)

type rawTerm struct {
	Input       string `json:"input"`
	Translation string `json:"translation"`
	Gender      string `json:"gender"`
	MatchType   string `json:"matchType"`
}

func (r rawTerm) candidate() internal.TermCandidate {
	return internal.TermCandidate{
		Input:       strings.TrimSpace(r.Input),
		Translation: strings.TrimSpace(r.Translation),
		Gender:      internal.ParseGender(r.Gender),
		MatchType:   internal.ParseMatchType(r.MatchType),
	}
}

// parseTerms decodes model output that should hold glossary terms. It
// accepts a bare array, an object wrapping the array under any key, a
// single term object, and JSON surrounded by prose or code fences.
func parseTerms(content string) ([]internal.TermCandidate, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	if start := strings.IndexAny(content, "[{"); start > 0 {
		content = content[start:]
	}
	if end := strings.LastIndexAny(content, "]}"); end >= 0 && end < len(content)-1 {
		content = content[:end+1]
	}

	var list []rawTerm
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return candidates(list), nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse glossary terms: %w", err)
	}
	for _, raw := range wrapper {
		if err := json.Unmarshal(raw, &list); err == nil {
			return candidates(list), nil
		}
	}

	var single rawTerm
	if err := json.Unmarshal([]byte(content), &single); err == nil && single.Input != "" {
		return candidates([]rawTerm{single}), nil
	}
	return nil, fmt.Errorf("failed to parse glossary terms: no term list in response")
}

func candidates(list []rawTerm) []internal.TermCandidate {
	out := make([]internal.TermCandidate, 0, len(list))
	for _, r := range list {
		c := r.candidate()
		if c.Input == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// apiErrorMessage extracts {"error":{"message":...}} or {"error":"..."}
// from an error body, falling back to the raw text.
func apiErrorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	return strings.TrimSpace(string(body))
}
