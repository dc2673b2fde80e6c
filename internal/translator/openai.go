package translator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/prompt"
)

const (
	DefaultOpenAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	DefaultDeepSeekEndpoint   = "https://api.deepseek.com/v1/chat/completions"
	DefaultGeminiEndpoint     = "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"
	DefaultOpenRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"
)

// OpenAIBackend talks to any OpenAI-compatible chat completions endpoint:
// OpenAI itself, DeepSeek, Gemini's compatibility layer and OpenRouter.
type OpenAIBackend struct {
	name     string
	endpoint string
	apiKey   string
	model    string
	headers  map[string]string
	client   *http.Client
}

func NewOpenAIBackend(name, endpoint, apiKey, model string) *OpenAIBackend {
	return &OpenAIBackend{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// NewOpenRouterBackend adds the attribution headers OpenRouter asks for.
func NewOpenRouterBackend(endpoint, apiKey, model string) *OpenAIBackend {
	if endpoint == "" {
		endpoint = DefaultOpenRouterEndpoint
	}
	b := NewOpenAIBackend("openrouter", endpoint, apiKey, model)
	b.headers = map[string]string{
		"HTTP-Referer": "https://glossator.local",
		"X-Title":      "Glossator",
	}
	return b
}

func (b *OpenAIBackend) Name() string {
	return b.name
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Stream     bool          `json:"stream,omitempty"`
	Tools      []chatTool    `json:"tools,omitempty"`
	ToolChoice any           `json:"tool_choice,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

const extractToolName = "extract_glossary_terms"

var extractTool = chatTool{
	Type: "function",
	Function: toolFunction{
		Name:        extractToolName,
		Description: "Extracts key terms from text and provides their details.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"terms": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"input":       map[string]any{"type": "string"},
							"translation": map[string]any{"type": "string"},
							"gender":      map[string]any{"type": "string", "enum": []string{"Male", "Female", "Neutral"}},
							"matchType":   map[string]any{"type": "string", "enum": []string{"Exact", "Case-Insensitive"}},
						},
						"required": []string{"input", "translation"},
					},
				},
			},
			"required": []string{"terms"},
		},
	},
}

func (b *OpenAIBackend) newRequest(ctx context.Context, body []byte) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
		for k, v := range b.headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}
}

func (b *OpenAIBackend) complete(ctx context.Context, cr chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(cr)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	resp, err := fetchWithRetry(ctx, b.client, b.newRequest(ctx, body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", b.name, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty response from API", b.name)
	}
	return &out, nil
}

func (b *OpenAIBackend) Extract(ctx context.Context, req ExtractRequest) ([]internal.TermCandidate, error) {
	resp, err := b.complete(ctx, chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.ExtractionSystem(req.TargetLang)},
			{Role: "user", Content: prompt.Extraction(req.Text, req.TargetLang, req.Instructions, req.ExclusionList)},
		},
		Tools: []chatTool{extractTool},
		ToolChoice: map[string]any{
			"type":     "function",
			"function": map[string]string{"name": extractToolName},
		},
	})
	if err != nil {
		return nil, err
	}

	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Name == extractToolName || call.Function.Name == "" {
			return parseTerms(call.Function.Arguments)
		}
	}
	return parseTerms(msg.Content)
}

func (b *OpenAIBackend) TranslateStream(ctx context.Context, req TranslateRequest, onChunk func(string)) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.TranslatorSystem},
			{Role: "user", Content: req.Prompt},
		},
		Stream: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := fetchWithRetry(ctx, b.client, b.newRequest(ctx, body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.name, err)
	}
	defer resp.Body.Close()

	return readEventStream(resp.Body, onChunk)
}

// readEventStream consumes a server-sent event stream of chat completion
// deltas until [DONE] or EOF. Malformed events are skipped.
func readEventStream(r io.Reader, onChunk func(string)) (string, error) {
	var full strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil || len(event.Choices) == 0 {
			continue
		}
		if chunk := event.Choices[0].Delta.Content; chunk != "" {
			full.WriteString(chunk)
			if onChunk != nil {
				onChunk(chunk)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("stream interrupted: %w", err)
	}
	return full.String(), nil
}

func (b *OpenAIBackend) Proofread(ctx context.Context, req ProofreadRequest) (string, error) {
	resp, err := b.complete(ctx, chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt.Proofread(req.Text, req.Lang)},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}
