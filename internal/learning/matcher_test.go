package learning

import (
	"testing"
	"time"

	"github.com/chartlinehq/chartline/internal/model"
)

func testFact(t *testing.T, text string, factType model.FactType) *model.Fact {
	t.Helper()
	f, err := model.NewFact(text, factType, "doc-1", 1, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), 0.9)
	if err != nil {
		t.Fatalf("NewFact: %v", err)
	}
	return f
}

func pattern(factType model.FactType, original, corrected string) *model.LearningPattern {
	return &model.LearningPattern{
		Hash:          model.PatternHash(factType, original, corrected),
		FactType:      factType,
		OriginalText:  original,
		CorrectedText: corrected,
		Status:        model.PatternApproved,
		SuccessRate:   1.0,
	}
}

func TestScoreExactSubstring(t *testing.T) {
	m := NewMatcher()
	p := pattern(model.FactLabValue, "sodium 135", "sodium 135 mmol/L")
	f := testFact(t, "Sodium 135 on morning labs", model.FactLabValue)

	if got := m.Score(p, f); got != 1.0 {
		t.Errorf("score = %v, want 1.0 for substring match", got)
	}
}

func TestScoreTypeMismatch(t *testing.T) {
	m := NewMatcher()
	p := pattern(model.FactLabValue, "sodium 135", "sodium 135 mmol/L")
	f := testFact(t, "sodium 135", model.FactMedication)

	if got := m.Score(p, f); got != 0 {
		t.Errorf("score = %v, want 0 for type mismatch", got)
	}
}

func TestScoreTokenOverlap(t *testing.T) {
	m := NewMatcher()
	p := pattern(model.FactDiagnosis, "patient has hypertension", "hypertension")
	f := testFact(t, "patient has severe hypertension", model.FactDiagnosis)

	got := m.Score(p, f)
	// Token sets overlap 3 of 4; above the application threshold.
	if got < model.DefaultMatchThreshold {
		t.Errorf("score = %v, want >= %v", got, model.DefaultMatchThreshold)
	}
	if got >= 1.0 {
		t.Errorf("score = %v, want < 1.0 for partial match", got)
	}
}

func TestScoreUnrelatedText(t *testing.T) {
	m := NewMatcher()
	p := pattern(model.FactDiagnosis, "subarachnoid hemorrhage", "SAH")
	f := testFact(t, "mild knee pain", model.FactDiagnosis)

	if got := m.Score(p, f); got >= model.DefaultMatchThreshold {
		t.Errorf("score = %v for unrelated text, want below threshold", got)
	}
}

func TestScoreContextBonus(t *testing.T) {
	m := NewMatcher()

	p := pattern(model.FactDiagnosis, "right sided weakness", "right hemiparesis")
	f := testFact(t, "weakness right sided arm", model.FactDiagnosis)

	base := m.Score(p, f)

	p.Context = map[string]string{"source_doc": "doc-1"}
	boosted := m.Score(p, f)

	if boosted <= base {
		t.Errorf("boosted score %v not above base %v", boosted, base)
	}
	if diff := boosted - base; diff < 0.099 || diff > 0.101 {
		t.Errorf("context bonus = %v, want 0.1", diff)
	}
}

func TestScoreCappedAtOne(t *testing.T) {
	m := NewMatcher()

	p := pattern(model.FactDiagnosis, "acute subdural hematoma", "acute SDH")
	p.Context = map[string]string{"source_doc": "doc-1"}
	f := testFact(t, "large acute subdural hematoma noted", model.FactDiagnosis)

	if got := m.Score(p, f); got > 1.0 {
		t.Errorf("score = %v, want capped at 1.0", got)
	}
}

func TestSequenceRatio(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"abc", "abc", 1.0, 1.0},
		{"abc", "xyz", 0.0, 0.0},
		{"sodium 135", "sodium 136", 0.8, 1.0},
		{"", "", 1.0, 1.0},
	}
	for _, tt := range tests {
		got := sequenceRatio(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("sequenceRatio(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}
