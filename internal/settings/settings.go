// Package settings defines the configuration record threaded through the
// translation pipeline and its loading from viper.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/valpere/glossator/internal"
)

var (
	ErrMissingCredentials = errors.New("missing API credentials")
	ErrUnknownProvider    = errors.New("unknown AI provider")
)

type Provider string

const (
	ProviderGemini     Provider = "gemini"
	ProviderOpenAI     Provider = "openai"
	ProviderDeepSeek   Provider = "deepseek"
	ProviderOpenRouter Provider = "openrouter"
	ProviderOllama     Provider = "ollama"
	ProviderGoogle     Provider = "google"
)

// Settings is treated as an immutable value: methods return modified copies.
type Settings struct {
	Provider Provider `mapstructure:"provider" json:"provider"`
	Model    string   `mapstructure:"model" json:"model,omitempty"`

	GeminiAPIKey       string `mapstructure:"gemini_api_key" json:"-"`
	GeminiEndpoint     string `mapstructure:"gemini_endpoint" json:"gemini_endpoint,omitempty"`
	OpenAIAPIKey       string `mapstructure:"openai_api_key" json:"-"`
	OpenAIEndpoint     string `mapstructure:"openai_endpoint" json:"openai_endpoint,omitempty"`
	DeepSeekAPIKey     string `mapstructure:"deepseek_api_key" json:"-"`
	DeepSeekEndpoint   string `mapstructure:"deepseek_endpoint" json:"deepseek_endpoint,omitempty"`
	OpenRouterAPIKey   string `mapstructure:"openrouter_api_key" json:"-"`
	OpenRouterEndpoint string `mapstructure:"openrouter_endpoint" json:"openrouter_endpoint,omitempty"`
	OllamaURL          string `mapstructure:"ollama_url" json:"ollama_url,omitempty"`
	GoogleCredentials  string `mapstructure:"google_credentials" json:"-"`

	Glossary []internal.GlossaryTerm `mapstructure:"-" json:"glossary"`

	UseGlossaryAI                  bool   `mapstructure:"use_glossary_ai" json:"use_glossary_ai"`
	EditAI                         bool   `mapstructure:"edit_ai" json:"edit_ai"`
	PreserveMarkup                 bool   `mapstructure:"preserve_markup" json:"preserve_markup"`
	CustomInstructions             string `mapstructure:"custom_instructions" json:"custom_instructions,omitempty"`
	GlossaryExtractionInstructions string `mapstructure:"glossary_extraction_instructions" json:"glossary_extraction_instructions,omitempty"`
	ExclusionList                  string `mapstructure:"exclusion_list" json:"exclusion_list,omitempty"`
}

// Defaults registers every recognised key on v so that environment
// variables are picked up by Unmarshal.
func Defaults(v *viper.Viper) {
	v.SetDefault("provider", string(ProviderGemini))
	v.SetDefault("model", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_endpoint", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_endpoint", "")
	v.SetDefault("deepseek_api_key", "")
	v.SetDefault("deepseek_endpoint", "")
	v.SetDefault("openrouter_api_key", "")
	v.SetDefault("openrouter_endpoint", "")
	v.SetDefault("ollama_url", "http://localhost:11434")
	v.SetDefault("google_credentials", "")
	v.SetDefault("use_glossary_ai", true)
	v.SetDefault("edit_ai", false)
	v.SetDefault("preserve_markup", false)
	v.SetDefault("custom_instructions", "")
	v.SetDefault("glossary_extraction_instructions", "")
	v.SetDefault("exclusion_list", "")
}

// Load reads Settings from v. The glossary is not part of the configuration
// file; callers attach it with WithGlossary.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.Provider = Provider(strings.ToLower(strings.TrimSpace(string(s.Provider))))
	return s, nil
}

// Validate checks that the selected provider is known and has credentials.
func (s Settings) Validate() error {
	var key string
	switch s.Provider {
	case ProviderGemini:
		key = s.GeminiAPIKey
	case ProviderOpenAI:
		key = s.OpenAIAPIKey
	case ProviderDeepSeek:
		key = s.DeepSeekAPIKey
	case ProviderOpenRouter:
		key = s.OpenRouterAPIKey
	case ProviderOllama, ProviderGoogle:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, s.Provider)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: %s API key is not set", ErrMissingCredentials, s.Provider)
	}
	return nil
}

// WithGlossary returns a copy of s holding its own copy of terms.
func (s Settings) WithGlossary(terms []internal.GlossaryTerm) Settings {
	s.Glossary = append([]internal.GlossaryTerm(nil), terms...)
	return s
}
