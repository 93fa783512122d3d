// Package llm is the narrow interface to the optional fallback
// extraction capability: entity-type instruction plus document text in,
// one candidate span or a "none found" sentinel out. The capability is
// safely absent - a nil Provider means pattern-only extraction, which is
// a configuration state, not an error.
package llm

import (
	"context"
	"strings"

	"github.com/chartlinehq/chartline/internal/model"
)

// NoneSentinel is the response text meaning "nothing found". Matching is
// case-insensitive after trimming.
const NoneSentinel = "NONE"

// Provider is the fallback extraction capability
type Provider interface {
	// Name returns the provider name
	Name() string

	// ExtractEntity asks for a single entity span of the requested type.
	// A NoneSentinel response means the document does not contain one.
	ExtractEntity(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)

	// IsAvailable checks if the provider is properly configured and reachable
	IsAvailable(ctx context.Context) bool
}

// ExtractRequest is one fallback extraction call
type ExtractRequest struct {
	EntityType  model.FactType
	Instruction string // Type-specific instruction built by the extractor
	Document    string // Full document text
	MaxTokens   int
}

// ExtractResponse is the fallback's answer
type ExtractResponse struct {
	Text       string // Extracted span, or NoneSentinel
	Model      string
	TokensUsed int
}

// IsNone reports whether the response is the none-found sentinel
func (r *ExtractResponse) IsNone() bool {
	return strings.EqualFold(strings.TrimSpace(r.Text), NoneSentinel)
}

// Config holds fallback provider configuration
type Config struct {
	Provider      string // "openai" or "" (disabled)
	Model         string
	APIKey        string
	BaseURL       string // For OpenAI-compatible endpoints
	Timeout       int    // Seconds per call
	MaxTokens     int
	RatePerSecond float64 // Call rate ceiling
}

// DefaultConfig returns sensible defaults with the fallback disabled
func DefaultConfig() Config {
	return Config{
		Provider:      "",
		Timeout:       30,
		MaxTokens:     500,
		RatePerSecond: 1,
	}
}

// BuildInstruction constructs the default per-type instruction. The
// fallback must return a verbatim span so the result stays source-
// attributed, even though it cannot be line-anchored.
func BuildInstruction(entityType model.FactType) string {
	base := "You are reading a clinical hospital document. " +
		"Answer with the single most relevant verbatim text span, or the word NONE if the document contains none. " +
		"Do not paraphrase, explain, or add anything else.\n\n"

	switch entityType {
	case model.FactMedication:
		return base + "Extract one medication order with its dose and frequency."
	case model.FactLabValue:
		return base + "Extract one laboratory result with its numeric value."
	case model.FactScore:
		return base + "Extract one clinical score (e.g. GCS, NIHSS) with its numeric value."
	case model.FactDiagnosis:
		return base + "Extract the primary diagnosis."
	case model.FactProcedure:
		return base + "Extract the surgical procedure performed."
	case model.FactComplication:
		return base + "Extract one documented complication."
	default:
		return base + "Extract one clinically relevant statement of type " + string(entityType) + "."
	}
}
