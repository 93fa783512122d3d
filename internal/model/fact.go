package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FactType categorizes the nature of an extracted fact
type FactType string

const (
	FactMedication   FactType = "medication"
	FactLabValue     FactType = "lab_value"
	FactScore        FactType = "clinical_score"
	FactVitalSign    FactType = "vital_sign"
	FactProcedure    FactType = "procedure"
	FactConsultation FactType = "consultation"
	FactComplication FactType = "complication"
	FactTemporalRef  FactType = "temporal_reference"
	FactDiagnosis    FactType = "diagnosis"
	FactFinding      FactType = "finding"
	FactRecommendation FactType = "recommendation"
)

// Severity classifies a normalized value against reference ranges
type Severity string

const (
	SeverityNormal   Severity = "NORMAL"
	SeverityLow      Severity = "LOW"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
	SeverityUnknown  Severity = "UNKNOWN"
)

// Provenance records which extraction path produced a fact
type Provenance string

const (
	ProvenancePattern     Provenance = "pattern"
	ProvenanceLLMFallback Provenance = "llm_fallback"
)

// Fact is the atomic unit of extracted clinical information.
//
// A fact is immutable after extraction except for the resolution fields
// (set once by the temporal resolver) and the correction fields (set once
// by the learning subsystem).
type Fact struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`                 // Raw extracted span
	Type       FactType   `json:"type"`                 // Entity type tag
	SourceDoc  string     `json:"source_doc"`           // Originating document identifier
	SourceLine int        `json:"source_line"`          // Line number for traceability (0 = not line-anchored)
	Timestamp  time.Time  `json:"timestamp"`            // Document timestamp
	Confidence float64    `json:"confidence"`           // In [0,1]
	Provenance Provenance `json:"provenance,omitempty"` // pattern or llm_fallback

	RequiresReview bool     `json:"requires_review"`         // Flagged for human validation
	Severity       Severity `json:"severity,omitempty"`      // Severity of normalized value, if any
	Significance   string   `json:"significance,omitempty"`  // Clinical-significance annotation

	// Set exactly once by the temporal resolver.
	AbsoluteTime *time.Time `json:"absolute_time,omitempty"`

	// Normalized/structured value: numeric for labs, scores, doses.
	NormalizedValue *float64 `json:"normalized_value,omitempty"`
	Unit            string   `json:"unit,omitempty"`

	// Set exactly once by the learning subsystem.
	CorrectionApplied bool   `json:"correction_applied,omitempty"`
	CorrectionPattern string `json:"correction_pattern,omitempty"`

	// Knowledge-base enrichment (drug class, monitoring, normal range, ...).
	Context map[string]string `json:"context,omitempty"`

	DedupeCount int `json:"dedupe_count,omitempty"` // How many raw extractions collapsed into this fact
}

// NewFact constructs a fact, enforcing the construction contract:
// non-empty text and confidence within [0,1].
func NewFact(text string, factType FactType, sourceDoc string, sourceLine int, ts time.Time, confidence float64) (*Fact, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("fact text must not be empty")
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("fact confidence %.3f outside [0,1]", confidence)
	}

	return &Fact{
		ID:         uuid.NewString(),
		Text:       text,
		Type:       factType,
		SourceDoc:  sourceDoc,
		SourceLine: sourceLine,
		Timestamp:  ts,
		Confidence: confidence,
		Provenance: ProvenancePattern,
		Context:    map[string]string{},
	}, nil
}

// EffectiveTime returns the resolved timestamp if set, else the document timestamp.
func (f *Fact) EffectiveTime() time.Time {
	if f.AbsoluteTime != nil {
		return *f.AbsoluteTime
	}
	return f.Timestamp
}

// SetValue attaches a normalized numeric value.
func (f *Fact) SetValue(v float64, unit string) {
	f.NormalizedValue = &v
	f.Unit = unit
}
