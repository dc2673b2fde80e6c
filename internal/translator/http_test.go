package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valpere/glossator/internal"
)

func noRetryDelays(t *testing.T) {
	t.Helper()
	saved := RetryDelays
	RetryDelays = []time.Duration{0, 0}
	t.Cleanup(func() { RetryDelays = saved })
}

func TestOpenAIBackend_TranslateStream(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"Phong "}}]}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `: keep-alive`)
		fmt.Fprintln(w, `data: not-json`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"Vân"}}]}`)
		fmt.Fprintln(w, `data: [DONE]`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"ignored"}}]}`)
	}))
	defer server.Close()

	b := NewOpenAIBackend("deepseek", server.URL, "test-key", "deepseek-chat")
	var chunks []string
	full, err := b.TranslateStream(context.Background(), TranslateRequest{Prompt: "Translate: Feng Yun"}, func(c string) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if full != "Phong Vân" {
		t.Errorf("expected 'Phong Vân', got %q", full)
	}
	if !reflect.DeepEqual(chunks, []string{"Phong ", "Vân"}) {
		t.Errorf("unexpected chunks %q", chunks)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if !gotReq.Stream || gotReq.Model != "deepseek-chat" {
		t.Errorf("unexpected request %+v", gotReq)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "Translate: Feng Yun" {
		t.Errorf("expected prompt as user message, got %+v", gotReq.Messages)
	}
}

func TestOpenAIBackend_Extract_ToolCall(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		args := `{"terms":[{"input":"Feng Yun","translation":"Phong Vân","gender":"Male","matchType":"Case-Insensitive"},{"input":"Jade Hall","translation":"Ngọc Đường"}]}`
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{
					"tool_calls": []any{map[string]any{
						"function": map[string]any{"name": extractToolName, "arguments": args},
					}},
				},
			}},
		})
	}))
	defer server.Close()

	b := NewOpenAIBackend("openai", server.URL, "k", "gpt-4o")
	terms, err := b.Extract(context.Background(), ExtractRequest{Text: "Feng Yun entered the Jade Hall.", TargetLang: "Vietnamese"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []internal.TermCandidate{
		{Input: "Feng Yun", Translation: "Phong Vân", Gender: internal.GenderMale, MatchType: internal.MatchCaseInsensitive},
		{Input: "Jade Hall", Translation: "Ngọc Đường", Gender: internal.GenderUnspecified, MatchType: internal.MatchUnspecified},
	}
	if !reflect.DeepEqual(terms, want) {
		t.Errorf("Extract = %+v, want %+v", terms, want)
	}
	if len(gotReq.Tools) != 1 || gotReq.Tools[0].Function.Name != extractToolName {
		t.Errorf("expected extraction tool in request, got %+v", gotReq.Tools)
	}
}

func TestOpenAIBackend_Extract_ContentFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{"content": "```json\n[{\"input\":\"Long Phi\",\"translation\":\"Long Phi\"}]\n```"},
			}},
		})
	}))
	defer server.Close()

	b := NewOpenAIBackend("gemini", server.URL, "k", "gemini")
	terms, err := b.Extract(context.Background(), ExtractRequest{Text: "Long Phi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms) != 1 || terms[0].Input != "Long Phi" {
		t.Errorf("unexpected terms %+v", terms)
	}
}

func TestOpenAIBackend_RetriesOnRateLimit(t *testing.T) {
	noRetryDelays(t)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "Polished."}}},
		})
	}))
	defer server.Close()

	b := NewOpenAIBackend("openai", server.URL, "k", "gpt-4o")
	out, err := b.Proofread(context.Background(), ProofreadRequest{Text: "polished", Lang: "English"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Polished." {
		t.Errorf("unexpected output %q", out)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestOpenAIBackend_GivesUpAfterRetries(t *testing.T) {
	noRetryDelays(t)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	b := NewOpenAIBackend("openai", server.URL, "k", "gpt-4o")
	_, err := b.TranslateStream(context.Background(), TranslateRequest{Prompt: "x"}, nil)

	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 1 call + 2 retries, got %d", calls.Load())
	}
}

func TestOpenAIBackend_NoRetryOnClientError(t *testing.T) {
	noRetryDelays(t)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	b := NewOpenAIBackend("openai", server.URL, "k", "gpt-4o")
	_, err := b.Extract(context.Background(), ExtractRequest{Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Body != "bad key" {
		t.Errorf("expected API message in error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retries, got %d calls", calls.Load())
	}
}

func TestOpenRouterBackend_Headers(t *testing.T) {
	var title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("X-Title")
		fmt.Fprintln(w, `data: [DONE]`)
	}))
	defer server.Close()

	b := NewOpenRouterBackend(server.URL, "k", "m")
	if _, err := b.TranslateStream(context.Background(), TranslateRequest{Prompt: "x"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Glossator" {
		t.Errorf("expected X-Title header, got %q", title)
	}
	if b.Name() != "openrouter" {
		t.Errorf("unexpected name %q", b.Name())
	}
}

func TestOllamaBackend_TranslateStream(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		fmt.Fprintln(w, `{"response":"Phong ","done":false}`)
		fmt.Fprintln(w, `{"response":"Vân","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
	defer server.Close()

	b := NewOllamaBackend(server.URL+"/", "qwen2.5:3b")
	var chunks []string
	full, err := b.TranslateStream(context.Background(), TranslateRequest{Prompt: "p"}, func(c string) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if full != "Phong Vân" || len(chunks) != 2 {
		t.Errorf("unexpected stream result %q / %q", full, chunks)
	}
	if !gotReq.Stream || gotReq.Model != "qwen2.5:3b" || gotReq.Prompt != "p" {
		t.Errorf("unexpected request %+v", gotReq)
	}
}

func TestOllamaBackend_StreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"Phong","done":false}`)
		fmt.Fprintln(w, `{"error":"model crashed"}`)
	}))
	defer server.Close()

	b := NewOllamaBackend(server.URL, "")
	if _, err := b.TranslateStream(context.Background(), TranslateRequest{Prompt: "p"}, nil); err == nil {
		t.Error("expected error from stream")
	}
}

func TestOllamaBackend_Extract(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"response": `{"glossary":[{"input":"Feng Yun","translation":"Phong Vân","gender":"male"}]}`,
			"done":     true,
		})
	}))
	defer server.Close()

	b := NewOllamaBackend(server.URL, "")
	terms, err := b.Extract(context.Background(), ExtractRequest{Text: "Feng Yun", TargetLang: "Vietnamese"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms) != 1 || terms[0].Gender != internal.GenderMale {
		t.Errorf("unexpected terms %+v", terms)
	}
	if gotReq.Format != "json" || gotReq.Stream || gotReq.Model != DefaultOllamaModel {
		t.Errorf("unexpected request %+v", gotReq)
	}
}

func TestOllamaBackend_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	if err := NewOllamaBackend(server.URL, "").IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGoogleBackend_Unsupported(t *testing.T) {
	b := NewGoogleBackend("")

	if _, err := b.Extract(context.Background(), ExtractRequest{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Extract: expected ErrUnsupported, got %v", err)
	}
	if _, err := b.Proofread(context.Background(), ProofreadRequest{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Proofread: expected ErrUnsupported, got %v", err)
	}
}

func TestResolveLanguage(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"vi", "vi"},
		{"Vietnamese", "vi"},
		{" english ", "en"},
		{"uk", "uk"},
	}
	for _, tt := range tests {
		tag, err := resolveLanguage(tt.input)
		if err != nil {
			t.Errorf("resolveLanguage(%q) failed: %v", tt.input, err)
			continue
		}
		if tag.String() != tt.want {
			t.Errorf("resolveLanguage(%q) = %q, want %q", tt.input, tag.String(), tt.want)
		}
	}
	if _, err := resolveLanguage("Klingonese"); err == nil {
		t.Error("expected error for unknown language")
	}
}
