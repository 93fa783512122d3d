package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// PatternStatus is the three-state approval status of a learning pattern
type PatternStatus string

const (
	PatternPending  PatternStatus = "PENDING"
	PatternApproved PatternStatus = "APPROVED"
	PatternRejected PatternStatus = "REJECTED"
)

// Learning-loop tuning constants. The success rate is an exponential
// moving average updated once per recorded human verdict:
//
//	rate = (1-alpha)*rate + alpha*outcome
//
// With DefaultSuccessAlpha = 0.3, three overrides across five
// applications drive a pattern that started at 1.0 below the activation
// threshold regardless of ordering.
const (
	DefaultSuccessAlpha     = 0.3
	DefaultSuccessThreshold = 0.70
	DefaultMatchThreshold   = 0.70
)

// LearningPattern is a human-sourced correction candidate. Patterns are
// created PENDING, gated behind explicit approval, and never deleted:
// a degraded pattern is excluded from application while its stored
// status and history remain intact for audit.
type LearningPattern struct {
	Hash          string        `json:"hash"` // Stable content identity
	FactType      FactType      `json:"fact_type"`
	OriginalText  string        `json:"original_text"`
	CorrectedText string        `json:"corrected_text"`
	Context       map[string]string `json:"context,omitempty"` // e.g. source_doc, surrounding_context

	Status       PatternStatus `json:"status"`
	CreatedBy    string        `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	ApprovedBy   string        `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time    `json:"approved_at,omitempty"`
	RejectedBy   string        `json:"rejected_by,omitempty"`
	RejectReason string        `json:"reject_reason,omitempty"`

	SuccessRate  float64 `json:"success_rate"`
	AppliedCount int     `json:"applied_count"`
}

// PatternHash derives the stable content identity for a correction
func PatternHash(factType FactType, original, corrected string) string {
	sum := sha256.Sum256([]byte(string(factType) + "\x00" + original + "\x00" + corrected))
	return hex.EncodeToString(sum[:])
}

// IsActive reports whether the pattern may be applied to extraction
// output. Activation is derived at call time, never stored: approval
// alone is not enough once the success rate has degraded.
func (p *LearningPattern) IsActive(threshold float64) bool {
	return p.Status == PatternApproved && p.SuccessRate >= threshold
}

// ShortHash returns the abbreviated identity used in logs and listings
func (p *LearningPattern) ShortHash() string {
	if len(p.Hash) < 8 {
		return p.Hash
	}
	return p.Hash[:8]
}
