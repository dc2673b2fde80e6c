package translator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"google.golang.org/api/option"

	"github.com/valpere/glossator/internal"
)

// GoogleBackend uses Cloud Translation. It translates the bare source text
// and ignores prompts, so glossary directives do not reach it.
type GoogleBackend struct {
	credentials string
}

func NewGoogleBackend(credentials string) *GoogleBackend {
	return &GoogleBackend{credentials: credentials}
}

func (b *GoogleBackend) Name() string {
	return "google"
}

func (b *GoogleBackend) Extract(ctx context.Context, req ExtractRequest) ([]internal.TermCandidate, error) {
	return nil, fmt.Errorf("google: glossary extraction: %w", ErrUnsupported)
}

func (b *GoogleBackend) Proofread(ctx context.Context, req ProofreadRequest) (string, error) {
	return "", fmt.Errorf("google: proofreading: %w", ErrUnsupported)
}

func (b *GoogleBackend) TranslateStream(ctx context.Context, req TranslateRequest, onChunk func(string)) (string, error) {
	target, err := resolveLanguage(req.TargetLang)
	if err != nil {
		return "", fmt.Errorf("google: invalid target language: %w", err)
	}

	var opts []option.ClientOption
	if b.credentials != "" {
		opts = append(opts, option.WithCredentialsFile(b.credentials))
	}
	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("google: failed to create client: %w", err)
	}
	defer client.Close()

	var topts *translate.Options
	if req.SourceLang != "" && req.SourceLang != "auto" {
		if source, err := resolveLanguage(req.SourceLang); err == nil {
			topts = &translate.Options{Source: source, Format: translate.Text}
		}
	}

	translations, err := client.Translate(ctx, []string{req.SourceText}, target, topts)
	if err != nil {
		return "", fmt.Errorf("google: translation failed: %w", err)
	}
	if len(translations) == 0 {
		return "", fmt.Errorf("google: no translation returned")
	}

	text := translations[0].Text
	if onChunk != nil {
		onChunk(text)
	}
	return text, nil
}

var languageNames = sync.OnceValue(func() map[string]language.Tag {
	tags := []language.Tag{
		language.English, language.Vietnamese, language.Chinese, language.SimplifiedChinese,
		language.TraditionalChinese, language.Japanese, language.Korean, language.Ukrainian,
		language.Russian, language.French, language.German, language.Spanish, language.Italian,
		language.Portuguese, language.Polish, language.Thai, language.Indonesian,
	}
	names := make(map[string]language.Tag, len(tags))
	namer := display.English.Tags()
	for _, t := range tags {
		names[strings.ToLower(namer.Name(t))] = t
	}
	return names
})

// resolveLanguage accepts a BCP 47 tag ("vi") or an English language name
// ("Vietnamese"), which is what LLM-oriented settings usually carry.
func resolveLanguage(s string) (language.Tag, error) {
	s = strings.TrimSpace(s)
	if tag, ok := languageNames()[strings.ToLower(s)]; ok {
		return tag, nil
	}
	return language.Parse(s)
}
