package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/chunker"
	"github.com/valpere/glossator/internal/postprocess"
	"github.com/valpere/glossator/internal/prompt"
	"github.com/valpere/glossator/internal/settings"
)

// NewBackend builds the backend selected by s.Provider. It fails when the
// provider is unknown or its credentials are missing.
func NewBackend(s settings.Settings) (Backend, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.Provider {
	case settings.ProviderGemini:
		return NewOpenAIBackend("gemini", orDefault(s.GeminiEndpoint, DefaultGeminiEndpoint), s.GeminiAPIKey, orDefault(s.Model, "gemini-2.5-flash")), nil
	case settings.ProviderOpenAI:
		return NewOpenAIBackend("openai", orDefault(s.OpenAIEndpoint, DefaultOpenAIEndpoint), s.OpenAIAPIKey, orDefault(s.Model, "gpt-4o")), nil
	case settings.ProviderDeepSeek:
		return NewOpenAIBackend("deepseek", orDefault(s.DeepSeekEndpoint, DefaultDeepSeekEndpoint), s.DeepSeekAPIKey, orDefault(s.Model, "deepseek-chat")), nil
	case settings.ProviderOpenRouter:
		return NewOpenRouterBackend(s.OpenRouterEndpoint, s.OpenRouterAPIKey, orDefault(s.Model, "google/gemini-2.0-flash-exp:free")), nil
	case settings.ProviderOllama:
		return NewOllamaBackend(s.OllamaURL, s.Model), nil
	case settings.ProviderGoogle:
		return NewGoogleBackend(s.GoogleCredentials), nil
	}
	return nil, fmt.Errorf("%w: %q", settings.ErrUnknownProvider, s.Provider)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Service is the provider-agnostic entry point used by the batch pipeline
// and the CLI. The backend is chosen per call from the settings passed in.
type Service struct {
	newBackend func(settings.Settings) (Backend, error)
}

func NewService() *Service {
	return &Service{newBackend: NewBackend}
}

// NewServiceWithBackend always uses b, whatever the settings say.
func NewServiceWithBackend(b Backend) *Service {
	return &Service{newBackend: func(settings.Settings) (Backend, error) { return b, nil }}
}

// ExtractGlossaryTerms proposes glossary terms for sourceText. Long texts
// are sent in paragraph-aligned chunks; the combined result keeps the first
// occurrence of every input, compared case-insensitively.
func (s *Service) ExtractGlossaryTerms(ctx context.Context, sourceText, targetLang, instructions, exclusionList string, set settings.Settings) ([]internal.TermCandidate, error) {
	b, err := s.newBackend(set)
	if err != nil {
		return nil, err
	}

	var all []internal.TermCandidate
	for _, chunk := range chunker.Paragraphs(sourceText, chunker.ExtractionChars) {
		req := ExtractRequest{
			Text:          chunk,
			TargetLang:    targetLang,
			Instructions:  instructions,
			ExclusionList: exclusionList,
		}
		terms, err := b.Extract(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("glossary extraction failed: %w", err)
		}
		all = append(all, terms...)
	}
	return internal.DedupeCandidates(all), nil
}

// TranslateStream translates sourceText, forwarding partial output to
// onChunk. promptOverride, when non-empty, replaces the composed prompt.
//
// On failure the returned text is a StreamErrorPrefix marker, which is also
// passed to onChunk, and err holds the cause.
func (s *Service) TranslateStream(ctx context.Context, sourceText, sourceLang, targetLang string, set settings.Settings, onChunk func(string), promptOverride string) (string, error) {
	if onChunk == nil {
		onChunk = func(string) {}
	}
	text, err := s.translateStream(ctx, sourceText, sourceLang, targetLang, set, onChunk, promptOverride)
	if err != nil {
		marker := streamErrorText(err)
		onChunk(marker)
		return marker, err
	}
	return text, nil
}

func (s *Service) translateStream(ctx context.Context, sourceText, sourceLang, targetLang string, set settings.Settings, onChunk func(string), promptOverride string) (string, error) {
	b, err := s.newBackend(set)
	if err != nil {
		return "", err
	}
	p := promptOverride
	if p == "" {
		p = prompt.Build(sourceText, sourceLang, targetLang, set)
	}
	raw, err := b.TranslateStream(ctx, TranslateRequest{
		Prompt:     p,
		SourceText: sourceText,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}, onChunk)
	if err != nil {
		return "", err
	}
	text := postprocess.Clean(raw)
	if text == "" && strings.TrimSpace(sourceText) != "" {
		return "", fmt.Errorf("%s returned an empty translation", b.Name())
	}
	return text, nil
}

// Proofread polishes text in lang. On failure the original text comes back
// behind a ProofreadErrorPrefix marker together with the error.
func (s *Service) Proofread(ctx context.Context, text, lang string, set settings.Settings) (string, error) {
	out, err := s.proofread(ctx, text, lang, set)
	if err != nil {
		return fmt.Sprintf("%s: Proofreading failed: %v.] \n\n%s", ProofreadErrorPrefix, err, text), err
	}
	return out, nil
}

func (s *Service) proofread(ctx context.Context, text, lang string, set settings.Settings) (string, error) {
	b, err := s.newBackend(set)
	if err != nil {
		return "", err
	}
	out, err := b.Proofread(ctx, ProofreadRequest{Text: text, Lang: lang})
	if err != nil {
		return "", err
	}
	return postprocess.Clean(out), nil
}
