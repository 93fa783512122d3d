package validate

import (
	"testing"
	"time"

	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/model"
)

func day(d, hour int) time.Time {
	return time.Date(2024, 3, d, hour, 0, 0, 0, time.UTC)
}

func newValidator() *Validator {
	return NewValidator(knowledge.NewBase(), model.DefaultConfig().Validation)
}

func fact(t *testing.T, text string, factType model.FactType, ts time.Time) *model.Fact {
	t.Helper()
	f, err := model.NewFact(text, factType, "doc-1", 1, ts, 0.9)
	if err != nil {
		t.Fatalf("NewFact: %v", err)
	}
	return f
}

func labFact(t *testing.T, name string, value float64, ts time.Time) *model.Fact {
	f := fact(t, name, model.FactLabValue, ts)
	f.SetValue(value, "")
	f.Context["lab"] = name
	return f
}

func byIssueType(issues []model.Uncertainty, issueType string) []model.Uncertainty {
	var out []model.Uncertainty
	for _, u := range issues {
		if u.IssueType == issueType {
			out = append(out, u)
		}
	}
	return out
}

func TestFormatStage(t *testing.T) {
	v := newValidator()

	noTS := fact(t, "no timestamp", model.FactFinding, time.Time{})
	overConfident := fact(t, "clamped", model.FactFinding, day(1, 8))
	overConfident.Confidence = 1.7

	facts, issues := v.Validate([]*model.Fact{noTS, overConfident}, nil)

	if got := byIssueType(issues, IssueMissingTimestamp); len(got) != 1 {
		t.Errorf("got %d missing-timestamp issues, want 1", len(got))
	}
	if facts[1].Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped to 1.0", facts[1].Confidence)
	}
}

func TestCriticalLabBoundaries(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name  string
		value float64
		want  int
	}{
		{"below critical", 124, 1},
		{"at critical boundary", 125, 1},
		{"just above critical", 126, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := labFact(t, "sodium", tt.value, day(2, 6))
			_, issues := v.Validate([]*model.Fact{f}, nil)
			got := byIssueType(issues, IssueCriticalLab)
			if len(got) != tt.want {
				t.Fatalf("got %d critical-lab issues for sodium %g, want %d", len(got), tt.value, tt.want)
			}
			if tt.want == 1 && got[0].Severity != model.UncertaintyHigh {
				t.Errorf("severity = %s, want HIGH", got[0].Severity)
			}
		})
	}
}

func TestInvalidScore(t *testing.T) {
	v := newValidator()

	f := fact(t, "GCS 20", model.FactScore, day(2, 6))
	f.SetValue(20, "")
	f.Context["score"] = "GCS"

	_, issues := v.Validate([]*model.Fact{f}, nil)
	if got := byIssueType(issues, IssueInvalidScore); len(got) != 1 {
		t.Errorf("got %d invalid-score issues, want 1", len(got))
	}
}

func TestExcessiveDose(t *testing.T) {
	v := newValidator()

	over := fact(t, "morphine 50 mg", model.FactMedication, day(2, 6))
	over.SetValue(50, "mg")
	over.Context["drug"] = "morphine"

	within := fact(t, "morphine 4 mg", model.FactMedication, day(2, 8))
	within.SetValue(4, "mg")
	within.Context["drug"] = "morphine"

	_, issues := v.Validate([]*model.Fact{over, within}, nil)
	got := byIssueType(issues, IssueExcessiveDose)
	if len(got) != 1 {
		t.Fatalf("got %d excessive-dose issues, want 1", len(got))
	}
	if got[0].FactIDs[0] != over.ID {
		t.Error("issue references the wrong fact")
	}
}

func TestDocumentationGap(t *testing.T) {
	v := newValidator()

	tl := &model.Timeline{
		Days: []model.TimelineDay{
			{Date: "2024-03-01"},
			{Date: "2024-03-02"},
			{Date: "2024-03-07"}, // 5-day gap
		},
	}

	_, issues := v.Validate(nil, tl)
	if got := byIssueType(issues, IssueDocumentationGap); len(got) != 1 {
		t.Errorf("got %d documentation-gap issues, want 1", len(got))
	}
}

func TestDischargeBeforeAdmission(t *testing.T) {
	v := newValidator()

	admission := day(5, 10)
	discharge := day(2, 10)
	tl := &model.Timeline{AdmissionDate: &admission, DischargeDate: &discharge}

	_, issues := v.Validate(nil, tl)
	if got := byIssueType(issues, IssueTemporalOrder); len(got) != 1 {
		t.Errorf("got %d temporal-order issues, want 1", len(got))
	}
}

func TestConflictingValuesWithinWindow(t *testing.T) {
	v := newValidator()

	a := labFact(t, "sodium", 124, day(2, 6))
	b := labFact(t, "sodium", 140, day(2, 6).Add(30*time.Minute))
	c := labFact(t, "sodium", 139, day(2, 6).Add(45*time.Minute)) // close to b, not material

	_, issues := v.Validate([]*model.Fact{a, b, c}, nil)
	got := byIssueType(issues, IssueConflictingInfo)
	// 124 vs 140 and 124 vs 139 are material; 140 vs 139 is not.
	if len(got) != 2 {
		t.Fatalf("got %d conflicting-info issues, want 2", len(got))
	}
	for _, u := range got {
		if len(u.FactIDs) != 2 {
			t.Errorf("conflict references %d facts, want 2", len(u.FactIDs))
		}
	}
}

func TestConflictOutsideWindowIgnored(t *testing.T) {
	v := newValidator()

	a := labFact(t, "sodium", 124, day(2, 6))
	b := labFact(t, "sodium", 140, day(2, 9)) // 3h apart

	_, issues := v.Validate([]*model.Fact{a, b}, nil)
	if got := byIssueType(issues, IssueConflictingInfo); len(got) != 0 {
		t.Errorf("got %d conflicting-info issues, want 0 outside window", len(got))
	}
}

func TestMedicationInteraction(t *testing.T) {
	v := newValidator()

	hep := fact(t, "heparin 5000 units", model.FactMedication, day(3, 8))
	hep.Context["drug"] = "heparin"

	_, issues := v.Validate([]*model.Fact{hep}, nil)
	got := byIssueType(issues, IssueMedInteraction)
	if len(got) != 1 {
		t.Fatalf("got %d interaction issues, want 1", len(got))
	}
	if got[0].Severity != model.UncertaintyHigh {
		t.Errorf("severity = %s, want HIGH", got[0].Severity)
	}
}

func TestComplicationDenialContradiction(t *testing.T) {
	v := newValidator()

	narrative := fact(t, "No complications noted during the stay", model.FactFinding, day(4, 9))
	comp := fact(t, "CSF leak at incision site", model.FactComplication, day(5, 10))

	_, issues := v.Validate([]*model.Fact{narrative, comp}, nil)
	got := byIssueType(issues, IssueContradictoryStmt)
	if len(got) != 1 {
		t.Fatalf("got %d contradictory-statement issues, want exactly 1", len(got))
	}
	u := got[0]
	if u.Severity != model.UncertaintyHigh {
		t.Errorf("severity = %s, want HIGH", u.Severity)
	}
	if len(u.FactIDs) != 2 || u.FactIDs[0] != narrative.ID || u.FactIDs[1] != comp.ID {
		t.Errorf("fact ids = %v, want narrative and complication", u.FactIDs)
	}
}

func TestComplicationBeforeDenialIgnored(t *testing.T) {
	v := newValidator()

	comp := fact(t, "seizure on arrival", model.FactComplication, day(1, 10))
	narrative := fact(t, "no complications since surgery", model.FactFinding, day(4, 9))

	_, issues := v.Validate([]*model.Fact{comp, narrative}, nil)
	if got := byIssueType(issues, IssueContradictoryStmt); len(got) != 0 {
		t.Errorf("got %d issues for earlier complication, want 0", len(got))
	}
}

func TestOutcomeReversal(t *testing.T) {
	v := newValidator()

	proc := fact(t, "Aneurysm successfully clipped", model.FactProcedure, day(2, 9))
	revision := fact(t, "Revision craniotomy for clip repositioning", model.FactProcedure, day(4, 9))

	_, issues := v.Validate([]*model.Fact{proc, revision}, nil)
	got := byIssueType(issues, IssueContradictoryOutc)
	if len(got) != 1 {
		t.Fatalf("got %d outcome issues, want 1", len(got))
	}
	if got[0].Severity != model.UncertaintyMedium {
		t.Errorf("severity = %s, want MEDIUM", got[0].Severity)
	}
}

func TestDischargeStatusContradiction(t *testing.T) {
	v := newValidator()

	discharge := day(6, 12)
	tl := &model.Timeline{DischargeDate: &discharge}

	claim := fact(t, "Patient stable for discharge", model.FactFinding, day(6, 10))
	crit := labFact(t, "sodium", 124, day(5, 6))
	crit.Severity = model.SeverityCritical

	_, issues := v.Validate([]*model.Fact{claim, crit}, tl)
	got := byIssueType(issues, IssueDischargeStatus)
	if len(got) != 1 {
		t.Fatalf("got %d discharge-status issues, want 1", len(got))
	}
}

func TestDischargeStatusOutsideLookback(t *testing.T) {
	v := newValidator()

	discharge := day(10, 12)
	tl := &model.Timeline{DischargeDate: &discharge}

	claim := fact(t, "stable for discharge", model.FactFinding, day(10, 10))
	crit := labFact(t, "sodium", 124, day(2, 6)) // Long before the lookback window
	crit.Severity = model.SeverityCritical

	_, issues := v.Validate([]*model.Fact{claim, crit}, tl)
	if got := byIssueType(issues, IssueDischargeStatus); len(got) != 0 {
		t.Errorf("got %d discharge-status issues, want 0 outside lookback", len(got))
	}
}

func TestDischargeStatusOutOfRangeScore(t *testing.T) {
	v := newValidator()

	discharge := day(6, 12)
	tl := &model.Timeline{DischargeDate: &discharge}

	claim := fact(t, "Patient stable for discharge", model.FactFinding, day(6, 10))
	score := fact(t, "GCS 20", model.FactScore, day(5, 6))
	score.SetValue(20, "")
	score.Context["score"] = "GCS"

	_, issues := v.Validate([]*model.Fact{claim, score}, tl)
	if got := byIssueType(issues, IssueDischargeStatus); len(got) != 1 {
		t.Fatalf("got %d discharge-status issues, want 1 for out-of-range score", len(got))
	}
}

func TestDischargeStatusValidScoreIgnored(t *testing.T) {
	v := newValidator()

	discharge := day(6, 12)
	tl := &model.Timeline{DischargeDate: &discharge}

	claim := fact(t, "Patient stable for discharge", model.FactFinding, day(6, 10))
	score := fact(t, "GCS 14", model.FactScore, day(5, 6))
	score.SetValue(14, "")
	score.Context["score"] = "GCS"

	_, issues := v.Validate([]*model.Fact{claim, score}, tl)
	if got := byIssueType(issues, IssueDischargeStatus); len(got) != 0 {
		t.Errorf("got %d discharge-status issues, want 0 for an in-range score", len(got))
	}
}

func TestImprovementClaimVsWorseningTrend(t *testing.T) {
	v := newValidator()

	tl := &model.Timeline{
		Progressions: []model.Progression{
			{Measurement: "NIHSS", Family: "neurological", Trend: model.TrendWorsening},
		},
	}
	claim := fact(t, "NIHSS improving daily", model.FactFinding, day(4, 9))

	_, issues := v.Validate([]*model.Fact{claim}, tl)
	if got := byIssueType(issues, IssueContradictoryOutc); len(got) != 1 {
		t.Errorf("got %d outcome issues, want 1", len(got))
	}
}

func TestCompleteness(t *testing.T) {
	v := newValidator()

	// A record with only a finding misses diagnosis, procedure
	// justification, and follow-up.
	f := fact(t, "resting comfortably", model.FactFinding, day(2, 9))
	_, issues := v.Validate([]*model.Fact{f}, nil)

	got := byIssueType(issues, IssueMissingInformation)
	if len(got) != 3 {
		t.Fatalf("got %d missing-information issues, want 3", len(got))
	}
}

func TestCompletenessSatisfied(t *testing.T) {
	v := newValidator()

	discharge := day(6, 12)
	tl := &model.Timeline{DischargeDate: &discharge}

	dx := fact(t, "Subarachnoid hemorrhage", model.FactDiagnosis, day(1, 10))
	proc := fact(t, "Craniotomy for clipping", model.FactProcedure, day(2, 9))
	med := fact(t, "levetiracetam 500 mg", model.FactMedication, day(6, 8))
	rec := fact(t, "Follow-up in clinic in 2 weeks", model.FactRecommendation, day(6, 11))

	_, issues := v.Validate([]*model.Fact{dx, proc, med, rec}, tl)
	if got := byIssueType(issues, IssueMissingInformation); len(got) != 0 {
		t.Errorf("got %d missing-information issues, want 0: %+v", len(got), got)
	}
}

func TestAllStagesRun(t *testing.T) {
	// One input that trips several stages at once; no short-circuit.
	v := newValidator()

	noTS := fact(t, "no timestamp", model.FactFinding, time.Time{})
	crit := labFact(t, "sodium", 124, day(2, 6))

	_, issues := v.Validate([]*model.Fact{noTS, crit}, nil)

	categories := make(map[model.UncertaintyCategory]bool)
	for _, u := range issues {
		categories[u.Category] = true
	}
	for _, want := range []model.UncertaintyCategory{
		model.CategoryFormat, model.CategoryClinicalRule, model.CategoryCompleteness,
	} {
		if !categories[want] {
			t.Errorf("category %s produced no issues", want)
		}
	}
}
