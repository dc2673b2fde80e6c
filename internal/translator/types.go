package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/glossator/internal"
)

// ErrUnsupported is returned by backends that cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported by this backend")

const (
	// StreamErrorPrefix starts every translation result that stands for a
	// failure. Callers must not store such a result as a translation.
	StreamErrorPrefix    = "[STREAM_TRANSLATION_ERROR"
	ProofreadErrorPrefix = "[PROOFREADING_ERROR"
)

// IsErrorText reports whether a translation result is a failure marker.
func IsErrorText(s string) bool {
	return strings.HasPrefix(s, StreamErrorPrefix)
}

func streamErrorText(err error) string {
	return fmt.Sprintf("%s: Streaming translation failed: %v.]", StreamErrorPrefix, err)
}

type ExtractRequest struct {
	Text          string `json:"text"`
	TargetLang    string `json:"target_lang"`
	Instructions  string `json:"instructions"`
	ExclusionList string `json:"exclusion_list"`
}

type TranslateRequest struct {
	// Prompt is the full user prompt; SourceText is the bare text for
	// backends that do not take instructions.
	Prompt     string `json:"prompt"`
	SourceText string `json:"source_text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type ProofreadRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// Backend is one AI provider.
type Backend interface {
	Name() string
	Extract(ctx context.Context, req ExtractRequest) ([]internal.TermCandidate, error)
	// TranslateStream calls onChunk with partial output as it arrives and
	// returns the complete raw output.
	TranslateStream(ctx context.Context, req TranslateRequest, onChunk func(string)) (string, error)
	Proofread(ctx context.Context, req ProofreadRequest) (string, error)
}
