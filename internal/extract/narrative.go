package extract

import (
	"regexp"
	"strings"

	"github.com/chartlinehq/chartline/internal/model"
)

// complicationTerms flag adverse events wherever they are narrated
var complicationTerms = []string{
	"csf leak", "hemorrhage", "rebleed", "vasospasm", "hydrocephalus",
	"seizure", "meningitis", "wound infection", "wound dehiscence",
	"dvt", "pulmonary embolism", "respiratory failure", "stroke",
}

// negationMarkers guard against extracting negated mentions
// ("no complications", "without evidence of vasospasm").
var negationMarkers = []string{
	"no ", "not ", "without", "denies", "denied", "negative for",
	"free of", "none", "ruled out", "r/o",
}

// complicationStrategy extracts adverse events narrated anywhere in
// the text, guarded against negated mentions.
type complicationStrategy struct{}

func (s *complicationStrategy) Types() []model.FactType {
	return []model.FactType{model.FactComplication}
}

func (s *complicationStrategy) Extract(doc *model.Document, lines []string) []*model.Fact {
	return eachLine(doc, lines, s.extractLine)
}

func (s *complicationStrategy) extractLine(doc *model.Document, line string, lineNo int) []*model.Fact {
	lower := strings.ToLower(line)

	var out []*model.Fact
	for _, term := range complicationTerms {
		idx := strings.Index(lower, term)
		if idx < 0 {
			continue
		}
		if isNegated(lower[:idx]) {
			continue
		}

		f := makeFact(line, model.FactComplication, doc, lineNo, confComplication)
		if f == nil {
			continue
		}
		f.RequiresReview = true
		f.Severity = model.SeverityHigh
		f.Context["complication"] = term
		out = append(out, f)
		break // One complication fact per line; dedupe handles repeats
	}
	return out
}

func isNegated(prefix string) bool {
	for _, marker := range negationMarkers {
		if strings.Contains(prefix, marker) {
			return true
		}
	}
	return false
}

// sectionHeader matches "FINDINGS:", "Postoperative Diagnosis: ..." style
// headers with optional inline body text after the colon.
var sectionHeader = regexp.MustCompile(`(?i)^\s*(pre[- ]?op(?:erative)? diagnosis|post[- ]?op(?:erative)? diagnosis|discharge diagnosis|diagnosis|diagnoses|impression|procedure(?:s)?(?: performed)?|operation|findings|complications|recommendations)\s*:\s*(.*)$`)

type section struct {
	name      string // Lowercased canonical header
	body      []string
	startLine int
}

// scanSections splits a document into header-delimited sections. Text on
// the header line after the colon counts as the first body line.
func scanSections(lines []string) []section {
	var sections []section
	var current *section

	for i, line := range lines {
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &section{
				name:      canonicalSection(m[1]),
				startLine: i + 1,
			}
			if body := strings.TrimSpace(m[2]); body != "" {
				current.body = append(current.body, body)
			}
			continue
		}
		if current != nil {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				current.body = append(current.body, trimmed)
			}
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

func canonicalSection(header string) string {
	lower := strings.ToLower(strings.TrimSpace(header))
	switch {
	case strings.Contains(lower, "diagnos"), lower == "impression":
		return "diagnosis"
	case strings.HasPrefix(lower, "procedure"), lower == "operation":
		return "procedure"
	default:
		return lower
	}
}

// sectionStrategy pulls structured facts out of header-delimited note
// sections: procedures and findings from operative notes, diagnoses and
// recommendations from any note that carries those headers.
type sectionStrategy struct{}

func (s *sectionStrategy) Types() []model.FactType {
	return []model.FactType{
		model.FactProcedure,
		model.FactFinding,
		model.FactComplication,
		model.FactDiagnosis,
		model.FactRecommendation,
	}
}

func (s *sectionStrategy) Extract(doc *model.Document, lines []string) []*model.Fact {
	var out []*model.Fact

	for _, sec := range scanSections(lines) {
		switch sec.name {
		case "procedure":
			for _, body := range sec.body {
				if f := makeFact(body, model.FactProcedure, doc, sec.startLine, confProcedure); f != nil {
					out = append(out, f)
				}
			}

		case "findings":
			if doc.Type != model.DocOperativeNote && doc.Type != model.DocImagingReport {
				continue
			}
			for _, body := range sec.body {
				if f := makeFact(body, model.FactFinding, doc, sec.startLine, confFinding); f != nil {
					out = append(out, f)
				}
			}

		case "complications":
			for _, body := range sec.body {
				if isNegated(strings.ToLower(body)) {
					continue
				}
				f := makeFact(body, model.FactComplication, doc, sec.startLine, confComplication)
				if f == nil {
					continue
				}
				f.RequiresReview = true
				f.Severity = model.SeverityHigh
				out = append(out, f)
			}

		case "diagnosis":
			for _, body := range sec.body {
				if f := makeFact(body, model.FactDiagnosis, doc, sec.startLine, confDiagnosis); f != nil {
					out = append(out, f)
				}
			}

		case "recommendations":
			for _, body := range sec.body {
				text := strings.TrimSpace(strings.TrimPrefix(body, "-"))
				f := makeFact(text, model.FactRecommendation, doc, sec.startLine, confRecommendation)
				if f == nil {
					continue
				}
				if doc.Specialty != "" {
					f.Context["specialty"] = doc.Specialty
				}
				out = append(out, f)
			}
		}
	}
	return out
}
