// Package validate runs the six-stage review pass over an extracted
// fact set: format, clinical rules, temporal consistency, cross-fact
// agreement, contradiction detection, and completeness. Clinical
// irregularities never become errors; every finding is an uncertainty
// for asynchronous human review. All stages always run.
package validate

import (
	"fmt"
	"time"

	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/model"
)

// Issue types
const (
	IssueEmptyFact          = "EMPTY_FACT"
	IssueMissingTimestamp   = "MISSING_TIMESTAMP"
	IssueCriticalLab        = "CRITICAL_LAB_VALUE"
	IssueInvalidScore       = "INVALID_SCORE_RANGE"
	IssueExcessiveDose      = "EXCESSIVE_MEDICATION_DOSE"
	IssueTemporalOrder      = "TEMPORAL_INCONSISTENCY"
	IssueDocumentationGap   = "DOCUMENTATION_GAP"
	IssueConflictingInfo    = "CONFLICTING_INFORMATION"
	IssueMedInteraction     = "MEDICATION_INTERACTION"
	IssueContradictoryStmt  = "CONTRADICTORY_STATEMENTS"
	IssueContradictoryOutc  = "CONTRADICTORY_OUTCOMES"
	IssueDischargeStatus    = "DISCHARGE_STATUS_CONTRADICTION"
	IssueMissingInformation = "MISSING_INFORMATION"
)

// Validator runs the staged review pass. Holds only immutable reference
// data and configuration, safe for concurrent use.
type Validator struct {
	kb  *knowledge.Base
	cfg model.ValidationConfig
}

// NewValidator creates a validator with the given thresholds
func NewValidator(kb *knowledge.Base, cfg model.ValidationConfig) *Validator {
	return &Validator{kb: kb, cfg: cfg}
}

// Validate runs every stage over the fact set. Facts come back
// unmodified except for confidence clamping; findings accumulate across
// stages with no short-circuit.
func (v *Validator) Validate(facts []*model.Fact, tl *model.Timeline) ([]*model.Fact, []model.Uncertainty) {
	var issues []model.Uncertainty

	issues = append(issues, v.checkFormat(facts)...)
	issues = append(issues, v.checkClinicalRules(facts)...)
	issues = append(issues, v.checkTemporalConsistency(tl)...)
	issues = append(issues, v.checkCrossFact(facts)...)
	issues = append(issues, v.checkContradictions(facts, tl)...)
	issues = append(issues, v.checkCompleteness(facts, tl)...)

	return facts, issues
}

// Stage 1: structural sanity of each fact.
func (v *Validator) checkFormat(facts []*model.Fact) []model.Uncertainty {
	var issues []model.Uncertainty
	for _, f := range facts {
		if f.Text == "" {
			issues = append(issues, model.NewUncertainty(
				model.UncertaintyMedium, model.CategoryFormat, IssueEmptyFact,
				"fact has empty text", f.ID))
		}
		if f.Timestamp.IsZero() {
			issues = append(issues, model.NewUncertainty(
				model.UncertaintyMedium, model.CategoryFormat, IssueMissingTimestamp,
				fmt.Sprintf("fact %q has no timestamp", f.Text), f.ID))
		}
		if f.Confidence < 0 {
			f.Confidence = 0
		}
		if f.Confidence > 1 {
			f.Confidence = 1
		}
	}
	return issues
}

// Stage 2: facts against the clinical reference tables.
func (v *Validator) checkClinicalRules(facts []*model.Fact) []model.Uncertainty {
	var issues []model.Uncertainty
	for _, f := range facts {
		if f.NormalizedValue == nil {
			continue
		}

		switch f.Type {
		case model.FactLabValue:
			name := f.Context["lab"]
			if name == "" {
				continue
			}
			concept := v.kb.NormalizeLab(name, *f.NormalizedValue)
			if concept.Severity == model.SeverityCritical {
				desc := fmt.Sprintf("critical %s value %g", name, *f.NormalizedValue)
				if len(concept.Implications) > 0 {
					desc += ": " + concept.Implications[0]
				}
				issues = append(issues, model.NewUncertainty(
					model.UncertaintyHigh, model.CategoryClinicalRule, IssueCriticalLab, desc, f.ID))
			}

		case model.FactScore:
			name := f.Context["score"]
			if name == "" {
				continue
			}
			if valid, reason := v.kb.ValidateScore(name, int(*f.NormalizedValue)); !valid {
				issues = append(issues, model.NewUncertainty(
					model.UncertaintyHigh, model.CategoryClinicalRule, IssueInvalidScore, reason, f.ID))
			}

		case model.FactMedication:
			drug := f.Context["drug"]
			if drug == "" {
				continue
			}
			maxDose, unit, ok := v.kb.MaxDose(drug)
			if ok && f.Unit == unit && *f.NormalizedValue > maxDose {
				issues = append(issues, model.NewUncertainty(
					model.UncertaintyHigh, model.CategoryClinicalRule, IssueExcessiveDose,
					fmt.Sprintf("%s dose %g%s exceeds maximum %g%s", drug, *f.NormalizedValue, unit, maxDose, unit),
					f.ID))
			}
		}
	}
	return issues
}

// Stage 3: ordering and coverage of the derived timeline.
func (v *Validator) checkTemporalConsistency(tl *model.Timeline) []model.Uncertainty {
	if tl == nil {
		return nil
	}
	var issues []model.Uncertainty

	if tl.AdmissionDate != nil && tl.DischargeDate != nil && tl.DischargeDate.Before(*tl.AdmissionDate) {
		issues = append(issues, model.NewUncertainty(
			model.UncertaintyHigh, model.CategoryTemporal, IssueTemporalOrder,
			fmt.Sprintf("discharge %s precedes admission %s",
				tl.DischargeDate.Format("2006-01-02"), tl.AdmissionDate.Format("2006-01-02"))))
	}

	for i := 1; i < len(tl.Days); i++ {
		prev, err1 := time.Parse("2006-01-02", tl.Days[i-1].Date)
		cur, err2 := time.Parse("2006-01-02", tl.Days[i].Date)
		if err1 != nil || err2 != nil {
			continue
		}
		gap := int(cur.Sub(prev).Hours() / 24)
		if gap > v.cfg.DocGapDays {
			issues = append(issues, model.NewUncertainty(
				model.UncertaintyMedium, model.CategoryTemporal, IssueDocumentationGap,
				fmt.Sprintf("%d-day documentation gap between %s and %s", gap, tl.Days[i-1].Date, tl.Days[i].Date)))
		}
	}
	return issues
}

// Stage 4: agreement between facts that measure the same thing, plus
// medication interactions.
func (v *Validator) checkCrossFact(facts []*model.Fact) []model.Uncertainty {
	var issues []model.Uncertainty

	// Same measurement, materially different values, within the
	// conflict window.
	for i := 0; i < len(facts); i++ {
		for j := i + 1; j < len(facts); j++ {
			a, b := facts[i], facts[j]
			if a.Type != b.Type || a.NormalizedValue == nil || b.NormalizedValue == nil {
				continue
			}
			name := measurementName(a)
			if name == "" || name != measurementName(b) {
				continue
			}

			dt := a.EffectiveTime().Sub(b.EffectiveTime())
			if dt < 0 {
				dt = -dt
			}
			if dt > v.cfg.ConflictWindow {
				continue
			}
			if !materiallyDifferent(*a.NormalizedValue, *b.NormalizedValue) {
				continue
			}

			issues = append(issues, model.NewUncertainty(
				model.UncertaintyHigh, model.CategoryCrossFact, IssueConflictingInfo,
				fmt.Sprintf("conflicting %s values %g and %g within %s",
					name, *a.NormalizedValue, *b.NormalizedValue, v.cfg.ConflictWindow),
				a.ID, b.ID))
		}
	}

	// Knowledge-base medication interaction rules.
	var meds []string
	var medIDs []string
	for _, f := range facts {
		if f.Type == model.FactMedication && f.Context["drug"] != "" {
			meds = append(meds, f.Context["drug"])
			medIDs = append(medIDs, f.ID)
		}
	}
	for _, in := range v.kb.Interactions(meds) {
		issues = append(issues, model.NewUncertainty(
			in.Severity, model.CategoryCrossFact, IssueMedInteraction,
			in.Description+"; "+in.Recommendation, medIDs...))
	}

	return issues
}

func measurementName(f *model.Fact) string {
	switch f.Type {
	case model.FactLabValue:
		return f.Context["lab"]
	case model.FactScore:
		return f.Context["score"]
	case model.FactVitalSign:
		return f.Context["vital"]
	}
	return ""
}

// materiallyDifferent: over 10% relative difference against the larger
// magnitude.
func materiallyDifferent(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	base := a
	if b > a {
		base = b
	}
	if base == 0 {
		return diff != 0
	}
	return diff/base > 0.10
}
