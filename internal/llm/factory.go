package llm

import (
	"fmt"
	"strings"

	"github.com/chartlinehq/chartline/internal/model"
)

// NewProvider creates a fallback provider from configuration. An empty
// provider name returns (nil, nil): the fallback is disabled and the
// extractor runs pattern-only.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:      mc.Provider,
		Model:         mc.Model,
		APIKey:        mc.APIKey,
		BaseURL:       mc.BaseURL,
		Timeout:       mc.TimeoutSeconds,
		MaxTokens:     mc.MaxTokens,
		RatePerSecond: mc.RatePerSecond,
	}
}
