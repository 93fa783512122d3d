package model

import "time"

// TemporalConflict records an unresolvable or inconsistent temporal reference.
// The implicated facts are retained with unresolved timestamps, never dropped.
type TemporalConflict struct {
	Type        string   `json:"type"` // POD_WITHOUT_SURGERY, HD_WITHOUT_ADMISSION, BEFORE_ADMISSION
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	FactIDs     []string `json:"fact_ids,omitempty"`
}

// StageTiming records the wall-clock duration of one pipeline stage
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Metrics are the processing metrics attached to a pipeline result
type Metrics struct {
	DocumentCount      int              `json:"document_count"`
	FailedDocuments    int              `json:"failed_documents"`
	FactCount          int              `json:"fact_count"`
	FactsByType        map[FactType]int `json:"facts_by_type"`
	CorrectionsApplied int              `json:"corrections_applied"`
	FallbackFacts      int              `json:"fallback_facts"`
	UncertaintyCount   int              `json:"uncertainty_count"`
	CacheHit           bool             `json:"cache_hit"`
	StageTimings       []StageTiming    `json:"stage_timings"`
}

// Result is the structured output of a complete pipeline run, consumed
// by the external presentation/API layer.
type Result struct {
	Facts         []*Fact            `json:"facts"`
	Timeline      *Timeline          `json:"timeline"`
	Uncertainties []Uncertainty      `json:"uncertainties"`
	Conflicts     []TemporalConflict `json:"conflicts"`
	Metrics       Metrics            `json:"metrics"`
}
