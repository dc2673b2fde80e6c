package translator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/prompt"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"
)

// OllamaBackend uses a local Ollama server's /api/generate endpoint.
type OllamaBackend struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaBackend(baseURL, model string) *OllamaBackend {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (b *OllamaBackend) Name() string {
	return "ollama"
}

type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (b *OllamaBackend) post(ctx context.Context, gr generateRequest) (*http.Response, error) {
	body, err := json.Marshal(gr)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	resp, err := fetchWithRetry(ctx, b.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return resp, nil
}

func (b *OllamaBackend) generate(ctx context.Context, gr generateRequest) (string, error) {
	resp, err := b.post(ctx, gr)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: failed to decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Response, nil
}

func (b *OllamaBackend) Extract(ctx context.Context, req ExtractRequest) ([]internal.TermCandidate, error) {
	content, err := b.generate(ctx, generateRequest{
		Model:  b.model,
		System: prompt.ExtractionSystem(req.TargetLang),
		Prompt: prompt.Extraction(req.Text, req.TargetLang, req.Instructions, req.ExclusionList) + "\n\n" + prompt.ExtractionJSONHint,
		Format: "json",
	})
	if err != nil {
		return nil, err
	}
	return parseTerms(content)
}

// TranslateStream reads Ollama's newline-delimited JSON stream.
func (b *OllamaBackend) TranslateStream(ctx context.Context, req TranslateRequest, onChunk func(string)) (string, error) {
	resp, err := b.post(ctx, generateRequest{
		Model:  b.model,
		System: prompt.TranslatorSystem,
		Prompt: req.Prompt,
		Stream: true,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var part generateResponse
		if err := json.Unmarshal(line, &part); err != nil {
			continue
		}
		if part.Error != "" {
			return full.String(), fmt.Errorf("ollama: %s", part.Error)
		}
		if part.Response != "" {
			full.WriteString(part.Response)
			if onChunk != nil {
				onChunk(part.Response)
			}
		}
		if part.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("ollama: stream interrupted: %w", err)
	}
	return full.String(), nil
}

func (b *OllamaBackend) Proofread(ctx context.Context, req ProofreadRequest) (string, error) {
	return b.generate(ctx, generateRequest{
		Model:  b.model,
		Prompt: prompt.Proofread(req.Text, req.Lang),
	})
}

// IsAvailable pings the server's model list.
func (b *OllamaBackend) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama not available: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}
	return nil
}
