package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/model"
)

// labPattern matches "sodium 128", "Na: 135 mmol/L", "Hgb of 7.2" style
// mentions. Aliases map abbreviations to canonical lab names.
var labPattern = regexp.MustCompile(`(?i)\b(sodium|potassium|glucose|hemoglobin|hgb|platelets?|plt|inr|wbc|creatinine)\b\s*(?:of|was|is|at|:|=)?\s*(\d+(?:\.\d+)?)`)

var labAliases = map[string]string{
	"hgb":      "hemoglobin",
	"plt":      "platelets",
	"platelet": "platelets",
}

func canonicalLab(name string) string {
	lower := strings.ToLower(name)
	if canonical, ok := labAliases[lower]; ok {
		return canonical
	}
	return lower
}

// labStrategy extracts lab value mentions and normalizes them against
// the reference ranges.
type labStrategy struct {
	kb *knowledge.Base
}

func (s *labStrategy) Types() []model.FactType {
	return []model.FactType{model.FactLabValue}
}

func (s *labStrategy) Extract(doc *model.Document, lines []string) []*model.Fact {
	return eachLine(doc, lines, s.extractLine)
}

func (s *labStrategy) extractLine(doc *model.Document, line string, lineNo int) []*model.Fact {
	matches := labPattern.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}

	conf := confLab
	if doc.Type == model.DocLabReport {
		conf = confLabReport
	}

	var out []*model.Fact
	for _, m := range matches {
		name := canonicalLab(m[1])
		value, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}

		concept := s.kb.NormalizeLab(name, value)
		f := makeFact(m[0], model.FactLabValue, doc, lineNo, conf)
		if f == nil {
			continue
		}
		f.SetValue(value, concept.Unit)
		f.Severity = concept.Severity
		f.Context["lab"] = name
		if concept.Severity != model.SeverityUnknown {
			f.Context["normal_range"] = fmt.Sprintf("%g-%g", concept.Low, concept.High)
		}
		if len(concept.Implications) > 0 {
			f.Significance = strings.Join(concept.Implications, "; ")
		}
		if concept.Severity == model.SeverityCritical {
			f.RequiresReview = true
		}
		out = append(out, f)
	}
	return out
}

// scorePattern matches "GCS 14", "Hunt-Hess grade 3", "NIHSS: 12".
var scorePattern = regexp.MustCompile(`(?i)\b(GCS|NIHSS|mRS|Hunt[- ]Hess|Fisher|WFNS|Spetzler[- ]Martin)\b\s*(?:grade|score)?\s*(?:of|was|is|:|=)?\s*(\d+)`)

var scoreAliases = map[string]string{
	"gcs":             "GCS",
	"nihss":           "NIHSS",
	"mrs":             "mRS",
	"hunt-hess":       "Hunt-Hess",
	"hunt hess":       "Hunt-Hess",
	"fisher":          "Fisher",
	"wfns":            "WFNS",
	"spetzler-martin": "Spetzler-Martin",
	"spetzler martin": "Spetzler-Martin",
}

// scoreStrategy extracts clinical score mentions and range-checks them
type scoreStrategy struct {
	kb *knowledge.Base
}

func (s *scoreStrategy) Types() []model.FactType {
	return []model.FactType{model.FactScore}
}

func (s *scoreStrategy) Extract(doc *model.Document, lines []string) []*model.Fact {
	return eachLine(doc, lines, s.extractLine)
}

func (s *scoreStrategy) extractLine(doc *model.Document, line string, lineNo int) []*model.Fact {
	matches := scorePattern.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}

	var out []*model.Fact
	for _, m := range matches {
		name, ok := scoreAliases[strings.ToLower(m[1])]
		if !ok {
			continue
		}
		value, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		conf := confScore
		valid, reason := s.kb.ValidateScore(name, value)
		f := makeFact(m[0], model.FactScore, doc, lineNo, conf)
		if f == nil {
			continue
		}
		f.SetValue(float64(value), "")
		f.Context["score"] = name
		if !valid {
			f.Confidence = confScoreInvalid
			f.RequiresReview = true
			f.Significance = reason
		}
		out = append(out, f)
	}
	return out
}

// vitalPatterns cover the common bedside measurements
var vitalPatterns = []struct {
	re   *regexp.Regexp
	name string
	unit string
}{
	{regexp.MustCompile(`(?i)\b(?:BP|blood pressure)\s*:?\s*(\d{2,3})/(\d{2,3})`), "blood_pressure", "mmHg"},
	{regexp.MustCompile(`(?i)\b(?:HR|heart rate|pulse)\s*:?\s*(\d{2,3})\b`), "heart_rate", "bpm"},
	{regexp.MustCompile(`(?i)\b(?:RR|respiratory rate)\s*:?\s*(\d{1,2})\b`), "respiratory_rate", "breaths/min"},
	{regexp.MustCompile(`(?i)\btemp(?:erature)?\s*:?\s*(\d{2,3}(?:\.\d)?)`), "temperature", "F"},
	{regexp.MustCompile(`(?i)\b(?:SpO2|O2 sat(?:uration)?)\s*:?\s*(\d{2,3})\s*%`), "spo2", "%"},
}

// vitalStrategy extracts bedside vital sign measurements
type vitalStrategy struct{}

func (s *vitalStrategy) Types() []model.FactType {
	return []model.FactType{model.FactVitalSign}
}

func (s *vitalStrategy) Extract(doc *model.Document, lines []string) []*model.Fact {
	return eachLine(doc, lines, s.extractLine)
}

func (s *vitalStrategy) extractLine(doc *model.Document, line string, lineNo int) []*model.Fact {
	var out []*model.Fact
	for _, vp := range vitalPatterns {
		for _, m := range vp.re.FindAllStringSubmatch(line, -1) {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			f := makeFact(m[0], model.FactVitalSign, doc, lineNo, confVital)
			if f == nil {
				continue
			}
			// For blood pressure the normalized value is the systolic.
			f.SetValue(value, vp.unit)
			f.Context["vital"] = vp.name
			out = append(out, f)
		}
	}
	return out
}

// medPattern matches "drug dose unit" mentions such as
// "nimodipine 60mg" or "Levetiracetam 1000 mg".
var medPattern = regexp.MustCompile(`(?i)\b([a-z][a-z-]{3,})\s+(\d+(?:\.\d+)?)\s*(mg|mcg|g|units?)\b`)

// medStopwords are non-drug words the generic pattern would otherwise
// capture ("received 2 g", "glucose 180 mg").
var medStopwords = map[string]bool{
	"received": true, "receiving": true, "given": true, "gave": true,
	"total": true, "dose": true, "doses": true, "about": true,
	"approximately": true, "over": true, "than": true, "with": true,
	"patient": true, "taking": true, "takes": true, "another": true,
	// Lab names the lab strategy owns
	"sodium": true, "potassium": true, "glucose": true,
	"hemoglobin": true, "platelets": true, "creatinine": true,
}

// medicationStrategy extracts drug-dose-unit mentions and classifies
// them against the formulary tables.
type medicationStrategy struct {
	kb *knowledge.Base
}

func (s *medicationStrategy) Types() []model.FactType {
	return []model.FactType{model.FactMedication}
}

func (s *medicationStrategy) Extract(doc *model.Document, lines []string) []*model.Fact {
	return eachLine(doc, lines, s.extractLine)
}

func (s *medicationStrategy) extractLine(doc *model.Document, line string, lineNo int) []*model.Fact {
	matches := medPattern.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}

	var out []*model.Fact
	for _, m := range matches {
		drug := strings.ToLower(m[1])
		if medStopwords[drug] {
			continue
		}
		dose, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}

		info, known := s.kb.ClassifyMedication(drug)
		conf := confMedUnknown
		if known {
			conf = confMedKnown
		}

		f := makeFact(m[0], model.FactMedication, doc, lineNo, conf)
		if f == nil {
			continue
		}
		f.SetValue(dose, strings.ToLower(m[3]))
		f.Context["drug"] = drug
		f.Context["class"] = info.Class
		if info.Subclass != "" {
			f.Context["subclass"] = info.Subclass
		}
		if len(info.Monitoring) > 0 {
			f.Context["monitoring"] = strings.Join(info.Monitoring, "; ")
		}
		if s.kb.IsHighRisk(drug) {
			f.Confidence = confMedHighRisk
			f.RequiresReview = true
			f.Significance = "High-risk medication - verify dose and indication"
		}
		out = append(out, f)
	}
	return out
}

// temporalStrategy extracts relative time references for the resolver
type temporalStrategy struct {
	kb *knowledge.Base
}

func (s *temporalStrategy) Types() []model.FactType {
	return []model.FactType{model.FactTemporalRef}
}

func (s *temporalStrategy) Extract(doc *model.Document, lines []string) []*model.Fact {
	return eachLine(doc, lines, s.extractLine)
}

func (s *temporalStrategy) extractLine(doc *model.Document, line string, lineNo int) []*model.Fact {
	var out []*model.Fact
	for _, m := range s.kb.TemporalMatches(line) {
		f := makeFact(m.Text, model.FactTemporalRef, doc, lineNo, confTemporalRef)
		if f == nil {
			continue
		}
		f.Context["kind"] = string(m.Kind)
		out = append(out, f)
	}
	return out
}
