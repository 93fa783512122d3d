// Package extract turns free-text clinical documents into typed facts.
// Strategies are ordered regex passes over document lines so every fact
// stays line-anchored to its source; the optional fallback capability
// fills in entity types the patterns missed.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/llm"
	"github.com/chartlinehq/chartline/internal/model"
)

// Per-strategy base confidences
const (
	confLab           = 0.95
	confLabReport     = 0.97 // Lab values from structured lab reports
	confScore         = 0.95
	confScoreInvalid  = 0.75 // Out-of-range score, flagged for review
	confVital         = 0.90
	confMedKnown      = 0.92
	confMedUnknown    = 0.85
	confMedHighRisk   = 0.75 // High-risk drug, flagged for review
	confTemporalRef   = 0.80
	confProcedure     = 0.95
	confFinding       = 0.92
	confComplication  = 0.90
	confRecommendation = 0.88
	confDiagnosis     = 0.90
	confFallback      = 0.85
)

// Extractor extracts typed facts from a single document by dispatching
// over the strategy registry. Safe for concurrent use: it holds only
// immutable reference data.
type Extractor struct {
	registry  *Registry
	fallback  llm.Provider // nil means pattern-only extraction
	maxTokens int
}

// New creates an extractor with the built-in strategies. A nil fallback
// provider disables the fallback pass.
func New(kb *knowledge.Base, fallback llm.Provider) *Extractor {
	return &Extractor{
		registry:  defaultRegistry(kb),
		fallback:  fallback,
		maxTokens: llm.DefaultConfig().MaxTokens,
	}
}

// Extract runs every registered strategy over the document and returns
// the deduplicated facts. It never mutates shared state.
func (e *Extractor) Extract(ctx context.Context, doc *model.Document) ([]*model.Fact, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("document %s: empty content", doc.ID)
	}

	lines := strings.Split(doc.Content, "\n")

	var facts []*model.Fact
	for _, s := range e.registry.Strategies() {
		facts = append(facts, s.Extract(doc, lines)...)
	}

	facts = dedupe(facts)
	facts = append(facts, e.fallbackPass(ctx, doc, facts)...)

	return facts, nil
}

// makeFact constructs one fact, dropping it silently if construction
// fails (empty span after trimming).
func makeFact(text string, t model.FactType, doc *model.Document, line int, conf float64) *model.Fact {
	f, err := model.NewFact(strings.TrimSpace(text), t, doc.ID, line, doc.Timestamp, conf)
	if err != nil {
		return nil
	}
	return f
}

// dedupe collapses facts with the same type and normalized text,
// keeping the highest-confidence instance and counting the collapse.
func dedupe(facts []*model.Fact) []*model.Fact {
	seen := make(map[string]*model.Fact)
	var order []string

	for _, f := range facts {
		if f == nil {
			continue
		}
		key := string(f.Type) + "|" + normalizeText(f.Text)
		if prev, ok := seen[key]; ok {
			if f.Confidence > prev.Confidence {
				f.DedupeCount = prev.DedupeCount + 1
				seen[key] = f
			} else {
				prev.DedupeCount++
			}
			continue
		}
		f.DedupeCount = 1
		seen[key] = f
		order = append(order, key)
	}

	out := make([]*model.Fact, 0, len(order))
	for _, k := range order {
		out = append(out, seen[k])
	}
	return out
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// fallbackTypes are the entity types worth a fallback call when the
// pattern pass comes up empty.
var fallbackTypes = []model.FactType{
	model.FactDiagnosis,
	model.FactMedication,
	model.FactProcedure,
	model.FactComplication,
}

// fallbackPass asks the fallback capability for entity types the
// pattern strategies found nothing for, at most one call per type.
func (e *Extractor) fallbackPass(ctx context.Context, doc *model.Document, existing []*model.Fact) []*model.Fact {
	if e.fallback == nil {
		return nil
	}

	have := make(map[model.FactType]bool)
	for _, f := range existing {
		have[f.Type] = true
	}

	var out []*model.Fact
	for _, t := range fallbackTypes {
		if have[t] || !plausiblyContains(doc, t) {
			continue
		}

		resp, err := e.fallback.ExtractEntity(ctx, llm.ExtractRequest{
			EntityType:  t,
			Instruction: llm.BuildInstruction(t),
			Document:    doc.Content,
			MaxTokens:   e.maxTokens,
		})
		if err != nil || resp == nil || resp.IsNone() {
			continue
		}

		// Line 0: the fallback cannot attribute a span to a line.
		f := makeFact(resp.Text, t, doc, 0, confFallback)
		if f == nil {
			continue
		}
		f.Provenance = model.ProvenanceLLMFallback
		out = append(out, f)
	}
	return out
}

// plausiblyContains is the narrative heuristic gating fallback calls:
// only ask when the document looks like it should contain the type.
func plausiblyContains(doc *model.Document, t model.FactType) bool {
	lower := strings.ToLower(doc.Content)
	switch t {
	case model.FactDiagnosis:
		return doc.Type == model.DocAdmissionNote || doc.Type == model.DocDischargeSummary ||
			strings.Contains(lower, "diagnos") || strings.Contains(lower, "impression")
	case model.FactMedication:
		return strings.Contains(lower, "medication") || strings.Contains(lower, " mg") ||
			strings.Contains(lower, "dose")
	case model.FactProcedure:
		return doc.Type == model.DocOperativeNote || strings.Contains(lower, "procedure") ||
			strings.Contains(lower, "underwent")
	case model.FactComplication:
		return strings.Contains(lower, "complicat")
	}
	return false
}
