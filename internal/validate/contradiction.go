package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/chartlinehq/chartline/internal/model"
)

// noComplicationMarkers identify narrative claims that the course was
// uncomplicated.
var noComplicationMarkers = []string{
	"no complication", "without complication", "uncomplicated",
	"no complications noted", "no acute events",
}

var revisionMarkers = []string{
	"revision", "reoperation", "re-operation", "re-exploration",
	"return to or", "takeback", "taken back to",
}

var stableDischargeMarkers = []string{
	"stable for discharge", "discharged in stable condition",
	"stable condition for discharge", "cleared for discharge",
}

// Stage 5: statements against each other and against the computed
// timeline.
func (v *Validator) checkContradictions(facts []*model.Fact, tl *model.Timeline) []model.Uncertainty {
	var issues []model.Uncertainty
	issues = append(issues, v.checkComplicationDenial(facts)...)
	issues = append(issues, v.checkOutcomeReversal(facts)...)
	issues = append(issues, v.checkDischargeStatus(facts, tl)...)
	issues = append(issues, v.checkImprovementClaims(facts, tl)...)
	return issues
}

// checkComplicationDenial flags "no complications" narratives that
// coexist with a complication fact on the same or a later date. One
// uncertainty per narrative/complication pair.
func (v *Validator) checkComplicationDenial(facts []*model.Fact) []model.Uncertainty {
	var issues []model.Uncertainty
	seen := make(map[string]bool)

	for _, narrative := range facts {
		if narrative.Type == model.FactComplication {
			continue
		}
		if !containsAny(strings.ToLower(narrative.Text), noComplicationMarkers) {
			continue
		}

		narrativeDate := narrative.EffectiveTime().Format("2006-01-02")
		for _, comp := range facts {
			if comp.Type != model.FactComplication {
				continue
			}
			if comp.EffectiveTime().Format("2006-01-02") < narrativeDate {
				continue
			}
			key := narrative.ID + "|" + comp.ID
			if seen[key] {
				continue
			}
			seen[key] = true
			issues = append(issues, model.NewUncertainty(
				model.UncertaintyHigh, model.CategoryContradiction, IssueContradictoryStmt,
				fmt.Sprintf("%q contradicts documented complication %q", narrative.Text, comp.Text),
				narrative.ID, comp.ID))
		}
	}
	return issues
}

// checkOutcomeReversal flags procedures narrated as successful that are
// followed by a revision or reoperation.
func (v *Validator) checkOutcomeReversal(facts []*model.Fact) []model.Uncertainty {
	var issues []model.Uncertainty

	for _, proc := range facts {
		if proc.Type != model.FactProcedure || !strings.Contains(strings.ToLower(proc.Text), "successful") {
			continue
		}
		for _, later := range facts {
			if later.Type != model.FactProcedure || later.ID == proc.ID {
				continue
			}
			if !later.EffectiveTime().After(proc.EffectiveTime()) {
				continue
			}
			if !containsAny(strings.ToLower(later.Text), revisionMarkers) {
				continue
			}
			issues = append(issues, model.NewUncertainty(
				model.UncertaintyMedium, model.CategoryContradiction, IssueContradictoryOutc,
				fmt.Sprintf("procedure reported successful (%q) but followed by %q", proc.Text, later.Text),
				proc.ID, later.ID))
		}
	}
	return issues
}

// checkDischargeStatus flags "stable for discharge" claims made while a
// critical lab value or an out-of-range clinical score sits within the
// lookback window before discharge.
func (v *Validator) checkDischargeStatus(facts []*model.Fact, tl *model.Timeline) []model.Uncertainty {
	if tl == nil || tl.DischargeDate == nil {
		return nil
	}
	windowStart := tl.DischargeDate.Add(-v.cfg.DischargeLookback)

	var issues []model.Uncertainty
	for _, claim := range facts {
		if !containsAny(strings.ToLower(claim.Text), stableDischargeMarkers) {
			continue
		}
		for _, crit := range facts {
			if !v.criticalFinding(crit) {
				continue
			}
			ts := crit.EffectiveTime()
			if ts.Before(windowStart) || ts.After(*tl.DischargeDate) {
				continue
			}
			issues = append(issues, model.NewUncertainty(
				model.UncertaintyHigh, model.CategoryContradiction, IssueDischargeStatus,
				fmt.Sprintf("%q contradicted by critical finding %q within %s of discharge",
					claim.Text, crit.Text, v.cfg.DischargeLookback),
				claim.ID, crit.ID))
		}
	}
	return issues
}

// criticalFinding reports whether a fact carries critical-severity
// information: a critical normalized value, or a clinical score outside
// its valid range.
func (v *Validator) criticalFinding(f *model.Fact) bool {
	if f.Severity == model.SeverityCritical {
		return true
	}
	if f.Type == model.FactScore && f.NormalizedValue != nil && f.Context["score"] != "" {
		valid, _ := v.kb.ValidateScore(f.Context["score"], int(*f.NormalizedValue))
		return !valid
	}
	return false
}

// checkImprovementClaims flags "improving" narratives for measurements
// whose computed progression is worsening.
func (v *Validator) checkImprovementClaims(facts []*model.Fact, tl *model.Timeline) []model.Uncertainty {
	if tl == nil {
		return nil
	}

	var issues []model.Uncertainty
	for _, p := range tl.Progressions {
		if p.Trend != model.TrendWorsening {
			continue
		}
		nameLower := strings.ToLower(p.Measurement)
		for _, f := range facts {
			lower := strings.ToLower(f.Text)
			if !strings.Contains(lower, "improving") || !strings.Contains(lower, nameLower) {
				continue
			}
			issues = append(issues, model.NewUncertainty(
				model.UncertaintyMedium, model.CategoryContradiction, IssueContradictoryOutc,
				fmt.Sprintf("%q contradicts worsening %s trend", f.Text, p.Measurement),
				f.ID))
		}
	}
	return issues
}

// Stage 6: required elements of a complete record.
func (v *Validator) checkCompleteness(facts []*model.Fact, tl *model.Timeline) []model.Uncertainty {
	var issues []model.Uncertainty

	counts := make(map[model.FactType]int)
	var hasFollowUp, hasConservative bool
	for _, f := range facts {
		counts[f.Type]++
		lower := strings.ToLower(f.Text)
		if strings.Contains(lower, "follow-up") || strings.Contains(lower, "follow up") {
			hasFollowUp = true
		}
		if strings.Contains(lower, "conservative management") ||
			strings.Contains(lower, "nonoperative") ||
			strings.Contains(lower, "no surgical intervention") {
			hasConservative = true
		}
	}

	if counts[model.FactDiagnosis] == 0 {
		issues = append(issues, model.NewUncertainty(
			model.UncertaintyHigh, model.CategoryCompleteness, IssueMissingInformation,
			"no diagnosis documented"))
	}
	if counts[model.FactProcedure] == 0 && !hasConservative {
		issues = append(issues, model.NewUncertainty(
			model.UncertaintyHigh, model.CategoryCompleteness, IssueMissingInformation,
			"no procedure documented and no nonoperative justification"))
	}
	if tl != nil && tl.DischargeDate != nil && !medicationNearDischarge(facts, tl, v.cfg.DischargeLookback) {
		issues = append(issues, model.NewUncertainty(
			model.UncertaintyHigh, model.CategoryCompleteness, IssueMissingInformation,
			"discharge medications not documented"))
	}
	if counts[model.FactRecommendation] == 0 && !hasFollowUp {
		issues = append(issues, model.NewUncertainty(
			model.UncertaintyMedium, model.CategoryCompleteness, IssueMissingInformation,
			"no follow-up or discharge instructions documented"))
	}
	return issues
}

func medicationNearDischarge(facts []*model.Fact, tl *model.Timeline, lookback time.Duration) bool {
	windowStart := tl.DischargeDate.Add(-lookback)
	for _, f := range facts {
		if f.Type != model.FactMedication {
			continue
		}
		ts := f.EffectiveTime()
		if !ts.Before(windowStart) && !ts.After(*tl.DischargeDate) {
			return true
		}
	}
	return false
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
