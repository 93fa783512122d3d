package model

import "time"

// Config is the complete chartline configuration
type Config struct {
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Cache       CacheConfig       `yaml:"cache"`
	LLM         LLMConfig         `yaml:"llm"`
	Learning    LearningConfig    `yaml:"learning"`
	Validation  ValidationConfig  `yaml:"validation"`
	Knowledge   KnowledgeConfig   `yaml:"knowledge"`
}

// ConcurrencyConfig controls the document-level extraction fan-out
type ConcurrencyConfig struct {
	ExtractionWorkers int `yaml:"extraction_workers"`
}

// CacheConfig controls the memoization layer in front of the pipeline
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// LLMConfig configures the optional fallback extraction capability.
// An empty Provider disables the fallback; the pipeline runs
// pattern-only in that case.
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // "openai" or "" (disabled)
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"-"` // From environment only, never persisted
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxTokens      int     `yaml:"max_tokens"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
}

// LearningConfig tunes the correction-learning loop
type LearningConfig struct {
	SuccessThreshold float64 `yaml:"success_threshold"` // Deactivation floor for the EMA success rate
	MatchThreshold   float64 `yaml:"match_threshold"`   // Minimum similarity to apply a correction
	SuccessAlpha     float64 `yaml:"success_alpha"`     // EMA learning rate
	StorePath        string  `yaml:"store_path"`        // SQLite pattern store location
}

// ValidationConfig tunes validator thresholds
type ValidationConfig struct {
	DocGapDays        int           `yaml:"doc_gap_days"`       // Documentation gap flagged above this
	ConflictWindow    time.Duration `yaml:"conflict_window"`    // Cross-fact conflict window
	DischargeLookback time.Duration `yaml:"discharge_lookback"` // Critical-finding window before discharge
}

// KnowledgeConfig points at optional reference-table overrides
type KnowledgeConfig struct {
	OverridesPath string `yaml:"overrides_path"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Concurrency: ConcurrencyConfig{
			ExtractionWorkers: 4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:       "",
			Model:          "",
			TimeoutSeconds: 30,
			MaxTokens:      500,
			RatePerSecond:  1,
		},
		Learning: LearningConfig{
			SuccessThreshold: DefaultSuccessThreshold,
			MatchThreshold:   DefaultMatchThreshold,
			SuccessAlpha:     DefaultSuccessAlpha,
			StorePath:        "",
		},
		Validation: ValidationConfig{
			DocGapDays:        3,
			ConflictWindow:    time.Hour,
			DischargeLookback: 48 * time.Hour,
		},
	}
}
