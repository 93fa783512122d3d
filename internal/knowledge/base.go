// Package knowledge holds the static clinical reference tables: lab
// reference ranges with critical thresholds, medication classifications
// with monitoring requirements, clinical-score valid ranges, and the
// temporal-expression pattern catalog. The tables are plain data behind
// an explicitly constructed, immutable Base so tests can swap them.
package knowledge

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chartlinehq/chartline/internal/model"
)

// Base is the immutable clinical knowledge base. Construct with NewBase;
// never mutate after construction (it is shared read-only across
// concurrent extraction tasks).
type Base struct {
	labRanges        map[string]LabRange
	medications      map[string]Medication
	scoreRanges      map[string]ScoreRange
	scorePolarity    map[string]Polarity
	highRiskPatterns []string
	temporal         []compiledTemporal
}

type compiledTemporal struct {
	re   *regexp.Regexp
	kind TemporalKind
}

// NewBase builds the knowledge base from the built-in tables
func NewBase() *Base {
	b := &Base{
		labRanges:        defaultLabRanges(),
		medications:      defaultMedications(),
		scoreRanges:      defaultScoreRanges(),
		scorePolarity:    defaultScorePolarity(),
		highRiskPatterns: defaultHighRiskPatterns(),
	}
	for _, p := range defaultTemporalPatterns() {
		b.temporal = append(b.temporal, compiledTemporal{
			re:   regexp.MustCompile(`(?i)` + p.expr),
			kind: p.kind,
		})
	}
	return b
}

// overrides is the YAML shape for table overrides
type overrides struct {
	LabRanges   map[string]LabRange   `yaml:"lab_ranges"`
	Medications map[string]Medication `yaml:"medications"`
	ScoreRanges map[string]ScoreRange `yaml:"score_ranges"`
}

// LoadOverrides merges site-specific reference tables from a YAML file
// over the built-in defaults. Call before sharing the Base.
func (b *Base) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read overrides: %w", err)
	}

	var ov overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("parse overrides: %w", err)
	}

	for name, r := range ov.LabRanges {
		b.labRanges[strings.ToLower(name)] = r
	}
	for name, m := range ov.Medications {
		b.medications[strings.ToLower(name)] = m
	}
	for name, s := range ov.ScoreRanges {
		b.scoreRanges[name] = s
	}
	return nil
}

// LabConcept is the interpreted form of a lab measurement
type LabConcept struct {
	Name         string
	Value        float64
	Unit         string
	Low          float64
	High         float64
	Severity     model.Severity
	Implications []string
}

// NormalizeLab interprets a lab value against the reference ranges.
// Critical thresholds are inclusive: a value equal to the boundary is
// itself critical. Unknown labs come back with SeverityUnknown.
func (b *Base) NormalizeLab(name string, value float64) LabConcept {
	info, ok := b.labRanges[strings.ToLower(name)]
	if !ok {
		return LabConcept{Name: name, Value: value, Severity: model.SeverityUnknown}
	}

	var severity model.Severity
	var key string
	switch {
	case value <= info.CriticalLow:
		severity, key = model.SeverityCritical, "critical_low"
	case value >= info.CriticalHigh:
		severity, key = model.SeverityCritical, "critical_high"
	case value < info.Low:
		severity, key = model.SeverityLow, "low"
	case value > info.High:
		severity, key = model.SeverityHigh, "high"
	default:
		severity = model.SeverityNormal
	}

	var implications []string
	if key != "" {
		if imp, ok := info.Implications[key]; ok {
			implications = append(implications, imp)
		}
	}

	return LabConcept{
		Name:         name,
		Value:        value,
		Unit:         info.Unit,
		Low:          info.Low,
		High:         info.High,
		Severity:     severity,
		Implications: implications,
	}
}

// KnownLabs lists the lab names present in the reference tables
func (b *Base) KnownLabs() []string {
	names := make([]string, 0, len(b.labRanges))
	for name := range b.labRanges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClassifyMedication looks up classification data by substring match
// against the known drug names. The zero Medication (class "Unknown")
// is returned for unrecognized drugs.
func (b *Base) ClassifyMedication(name string) (Medication, bool) {
	lower := strings.ToLower(name)
	for key, info := range b.medications {
		if strings.Contains(lower, key) {
			return info, true
		}
	}
	return Medication{Class: "Unknown"}, false
}

// IsHighRisk reports whether a medication is high-risk, either by its
// classification or by name-fragment match.
func (b *Base) IsHighRisk(name string) bool {
	if info, ok := b.ClassifyMedication(name); ok && info.HighRisk {
		return true
	}
	lower := strings.ToLower(name)
	for _, pattern := range b.highRiskPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// MaxDose returns the per-drug maximum safe dose, if the drug is known
// and a ceiling is recorded for it.
func (b *Base) MaxDose(name string) (float64, string, bool) {
	info, ok := b.ClassifyMedication(name)
	if !ok || info.MaxDose == 0 {
		return 0, "", false
	}
	return info.MaxDose, info.DoseUnit, true
}

// ValidateScore checks a clinical score against its valid range.
// Unknown score names pass: there is no range to check.
func (b *Base) ValidateScore(name string, value int) (bool, string) {
	r, ok := b.scoreRanges[name]
	if !ok {
		return true, ""
	}
	if value < r.Min || value > r.Max {
		return false, fmt.Sprintf("%s score %d outside valid range [%d-%d]", name, value, r.Min, r.Max)
	}
	return true, ""
}

// KnownScores lists the clinical score names present in the tables
func (b *Base) KnownScores() []string {
	names := make([]string, 0, len(b.scoreRanges))
	for name := range b.scoreRanges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScorePolarity reports which direction counts as improvement for a
// score. The second return is false for untracked measurements.
func (b *Base) ScorePolarity(name string) (Polarity, bool) {
	p, ok := b.scorePolarity[name]
	return p, ok
}

// TemporalPattern identifies the first temporal expression in text,
// returning its kind and the matched span.
func (b *Base) TemporalPattern(text string) (TemporalKind, string, bool) {
	for _, p := range b.temporal {
		if m := p.re.FindString(text); m != "" {
			return p.kind, m, true
		}
	}
	return "", "", false
}

// TemporalMatches returns every temporal expression in text in pattern
// order, deduplicated by matched span.
func (b *Base) TemporalMatches(text string) []struct {
	Kind TemporalKind
	Text string
} {
	var out []struct {
		Kind TemporalKind
		Text string
	}
	seen := map[string]bool{}
	for _, p := range b.temporal {
		for _, m := range p.re.FindAllString(text, -1) {
			key := string(p.kind) + ":" + strings.ToLower(m)
			if !seen[key] {
				seen[key] = true
				out = append(out, struct {
					Kind TemporalKind
					Text string
				}{p.kind, m})
			}
		}
	}
	return out
}

// Interaction is one medication-interaction warning
type Interaction struct {
	Severity       model.UncertaintySeverity
	Description    string
	Recommendation string
}

// Interactions checks a medication list for known interaction classes:
// any anticoagulant in a neurosurgical patient, and stacked opioids.
func (b *Base) Interactions(meds []string) []Interaction {
	var out []Interaction

	hasAnticoagulant := false
	opioids := 0
	for _, med := range meds {
		info, _ := b.ClassifyMedication(med)
		if info.Class == "Anticoagulant" {
			hasAnticoagulant = true
		}
		if strings.Contains(strings.ToLower(info.Class), "opioid") {
			opioids++
		}
	}

	if hasAnticoagulant {
		out = append(out, Interaction{
			Severity:       model.UncertaintyHigh,
			Description:    "Anticoagulant use in neurosurgical patient - verify appropriateness",
			Recommendation: "Review timing of anticoagulation initiation post-surgery",
		})
	}
	if opioids > 1 {
		out = append(out, Interaction{
			Severity:       model.UncertaintyMedium,
			Description:    "Multiple opioid medications",
			Recommendation: "Monitor for excessive sedation and respiratory depression",
		})
	}
	return out
}

// LabTrend classifies the direction of a date-ordered lab series.
// Under 10% change counts as stable.
func (b *Base) LabTrend(name string, values []float64) model.Trend {
	if len(values) < 2 {
		return model.TrendInsufficient
	}
	first, last := values[0], values[len(values)-1]
	if first != 0 && abs(last-first)/abs(first) < 0.1 {
		return model.TrendStable
	}

	info, ok := b.labRanges[strings.ToLower(name)]
	if !ok {
		return model.TrendStable
	}
	firstAbnormal := first < info.Low || first > info.High
	lastAbnormal := last < info.Low || last > info.High
	switch {
	case firstAbnormal && !lastAbnormal:
		return model.TrendImproving
	case !firstAbnormal && lastAbnormal:
		return model.TrendWorsening
	case distanceFromRange(last, info) < distanceFromRange(first, info):
		return model.TrendImproving
	case distanceFromRange(last, info) > distanceFromRange(first, info):
		return model.TrendWorsening
	default:
		return model.TrendStable
	}
}

func distanceFromRange(v float64, r LabRange) float64 {
	switch {
	case v < r.Low:
		return r.Low - v
	case v > r.High:
		return v - r.High
	default:
		return 0
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
