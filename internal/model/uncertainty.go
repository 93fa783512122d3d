package model

import (
	"time"

	"github.com/google/uuid"
)

// UncertaintySeverity ranks how urgently a flagged issue needs review
type UncertaintySeverity string

const (
	UncertaintyHigh   UncertaintySeverity = "HIGH"
	UncertaintyMedium UncertaintySeverity = "MEDIUM"
	UncertaintyLow    UncertaintySeverity = "LOW"
)

// UncertaintyCategory names the validation stage that produced an uncertainty
type UncertaintyCategory string

const (
	CategoryFormat        UncertaintyCategory = "format"
	CategoryClinicalRule  UncertaintyCategory = "clinical_rule"
	CategoryTemporal      UncertaintyCategory = "temporal_consistency"
	CategoryCrossFact     UncertaintyCategory = "cross_fact"
	CategoryContradiction UncertaintyCategory = "contradiction"
	CategoryCompleteness  UncertaintyCategory = "completeness"
)

// Uncertainty is a flagged issue produced by the validator. Clinical
// irregularities are never raised as errors; they become uncertainties
// for asynchronous human review.
type Uncertainty struct {
	ID          string              `json:"id"`
	Severity    UncertaintySeverity `json:"severity"`
	Category    UncertaintyCategory `json:"category"`
	IssueType   string              `json:"issue_type"` // e.g. CRITICAL_LAB_VALUE, CONTRADICTORY_STATEMENTS
	Description string              `json:"description"`
	FactIDs     []string            `json:"fact_ids,omitempty"` // Implicated fact(s)
	CreatedAt   time.Time           `json:"created_at"`

	Resolved   bool   `json:"resolved"`
	Resolution string `json:"resolution,omitempty"` // Human-supplied resolution text
}

// NewUncertainty creates an unresolved uncertainty referencing the given facts
func NewUncertainty(severity UncertaintySeverity, category UncertaintyCategory, issueType, description string, factIDs ...string) Uncertainty {
	return Uncertainty{
		ID:          uuid.NewString(),
		Severity:    severity,
		Category:    category,
		IssueType:   issueType,
		Description: description,
		FactIDs:     factIDs,
		CreatedAt:   time.Now().UTC(),
	}
}
