// Package pipeline orchestrates a processing run: cache probe,
// concurrent per-document extraction, correction pass, temporal
// resolution, timeline build, and validation. Only extraction fans out;
// everything after it is sequential over the merged fact set.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/chartlinehq/chartline/internal/cache"
	"github.com/chartlinehq/chartline/internal/extract"
	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/learning"
	"github.com/chartlinehq/chartline/internal/llm"
	"github.com/chartlinehq/chartline/internal/model"
	"github.com/chartlinehq/chartline/internal/temporal"
	"github.com/chartlinehq/chartline/internal/timeline"
	"github.com/chartlinehq/chartline/internal/validate"
	"github.com/chartlinehq/chartline/internal/worker"
)

// Pipeline wires the processing stages together
type Pipeline struct {
	cfg       *model.Config
	extractor *extract.Extractor
	builder   *timeline.Builder
	validator *validate.Validator
	learner   *learning.Manager // nil disables the correction pass
	cache     cache.Cache       // nil disables memoization
	log       zerolog.Logger
}

// New assembles a pipeline. The fallback provider, learner, and cache
// may each be nil; the corresponding stage degrades to a no-op.
func New(cfg *model.Config, kb *knowledge.Base, provider llm.Provider, learner *learning.Manager, c cache.Cache, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		extractor: extract.New(kb, provider),
		builder:   timeline.NewBuilder(kb),
		validator: validate.NewValidator(kb, cfg.Validation),
		learner:   learner,
		cache:     c,
		log:       log,
	}
}

// Process runs the full pipeline over a document set. Per-document
// extraction failures are isolated; the run fails only when there is
// nothing to process at all.
func (p *Pipeline) Process(ctx context.Context, docs []*model.Document) (*model.Result, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to process")
	}

	if result, ok := p.cachedResult(docs); ok {
		p.log.Debug().Int("documents", len(docs)).Msg("pipeline result served from cache")
		return result, nil
	}

	result := &model.Result{
		Metrics: model.Metrics{
			DocumentCount: len(docs),
			FactsByType:   make(map[model.FactType]int),
		},
	}

	// Extraction fans out over the worker pool; one failed or panicked
	// document costs its own facts and nothing else.
	start := time.Now()
	facts, failed := p.extractAll(docs)
	result.Metrics.FailedDocuments = failed
	p.recordTiming(result, "extract", start)

	// Correction pass over the approved-pattern snapshot.
	start = time.Now()
	if p.learner != nil {
		result.Metrics.CorrectionsApplied = p.learner.ApplyCorrections(facts)
	}
	p.recordTiming(result, "correct", start)

	// Anchor identification and temporal resolution.
	start = time.Now()
	anchors := temporal.IdentifyAnchors(docs)
	result.Conflicts = temporal.Resolve(facts, anchors)
	p.recordTiming(result, "resolve", start)

	start = time.Now()
	result.Timeline = p.builder.Build(facts, anchors)
	p.recordTiming(result, "timeline", start)

	start = time.Now()
	facts, uncertainties := p.validator.Validate(facts, result.Timeline)
	result.Uncertainties = uncertainties
	p.recordTiming(result, "validate", start)

	result.Facts = facts
	for _, f := range facts {
		result.Metrics.FactsByType[f.Type]++
		if f.Provenance == model.ProvenanceLLMFallback {
			result.Metrics.FallbackFacts++
		}
	}
	result.Metrics.FactCount = len(facts)
	result.Metrics.UncertaintyCount = len(uncertainties)

	p.log.Info().
		Int("documents", len(docs)).
		Int("failed_documents", failed).
		Int("facts", result.Metrics.FactCount).
		Int("uncertainties", result.Metrics.UncertaintyCount).
		Int("conflicts", len(result.Conflicts)).
		Msg("pipeline run complete")

	p.storeResult(docs, result)
	return result, nil
}

// extractAll runs extraction over the pool and merges facts in input
// document order so runs are deterministic. Documents whose extraction
// is already cached skip the pool entirely.
func (p *Pipeline) extractAll(docs []*model.Document) ([]*model.Fact, int) {
	byDoc := make(map[string][]*model.Fact, len(docs))
	docByID := make(map[string]*model.Document, len(docs))

	var misses []*model.Document
	for _, doc := range docs {
		docByID[doc.ID] = doc
		if cached, ok := p.cachedFacts(doc); ok {
			byDoc[doc.ID] = cached
			continue
		}
		misses = append(misses, doc)
	}

	failed := 0
	if len(misses) > 0 {
		pool := worker.NewPool(p.cfg.Concurrency.ExtractionWorkers)
		pool.Start()

		for _, doc := range misses {
			pool.Submit(&worker.ExtractJob{Extractor: p.extractor, Document: doc})
		}
		for _, r := range pool.Wait() {
			if err := r.GetError(); err != nil {
				failed++
				p.log.Warn().Err(err).Msg("document extraction failed")
				continue
			}
			if er, ok := r.(*worker.ExtractResult); ok {
				byDoc[er.DocumentID] = er.Facts
				if doc := docByID[er.DocumentID]; doc != nil {
					p.storeFacts(doc, er.Facts)
				}
			}
		}
	}

	var facts []*model.Fact
	for _, doc := range docs {
		facts = append(facts, byDoc[doc.ID]...)
	}
	return facts, failed
}

func (p *Pipeline) factKey(doc *model.Document) string {
	return cache.Key("extract", doc.Content)
}

// cachedFacts returns the pre-correction extraction for one document
func (p *Pipeline) cachedFacts(doc *model.Document) ([]*model.Fact, bool) {
	if p.cache == nil || !p.cfg.Cache.Enabled {
		return nil, false
	}
	data, found := p.cache.Get(p.factKey(doc))
	if !found {
		return nil, false
	}
	var facts []*model.Fact
	if err := json.Unmarshal(data, &facts); err != nil {
		p.log.Warn().Err(err).Msg("discarding unreadable cache entry")
		return nil, false
	}
	return facts, true
}

func (p *Pipeline) storeFacts(doc *model.Document, facts []*model.Fact) {
	if p.cache == nil || !p.cfg.Cache.Enabled {
		return
	}
	data, err := json.Marshal(facts)
	if err != nil {
		return
	}
	if err := p.cache.Set(p.factKey(doc), data, p.cfg.Cache.DiskTTL); err != nil {
		p.log.Warn().Err(err).Msg("cache write failed")
	}
}

func (p *Pipeline) recordTiming(result *model.Result, stage string, start time.Time) {
	result.Metrics.StageTimings = append(result.Metrics.StageTimings, model.StageTiming{
		Stage:    stage,
		Duration: time.Since(start),
	})
}

func (p *Pipeline) resultKey(docs []*model.Document) string {
	contents := make([]string, 0, len(docs))
	for _, doc := range docs {
		contents = append(contents, doc.Content)
	}
	return cache.BatchKey("result", contents)
}

func (p *Pipeline) cachedResult(docs []*model.Document) (*model.Result, bool) {
	if p.cache == nil || !p.cfg.Cache.Enabled {
		return nil, false
	}

	data, found := p.cache.Get(p.resultKey(docs))
	if !found {
		return nil, false
	}

	var result model.Result
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry degrades to full computation.
		p.log.Warn().Err(err).Msg("discarding unreadable cache entry")
		return nil, false
	}
	result.Metrics.CacheHit = true
	return &result, true
}

func (p *Pipeline) storeResult(docs []*model.Document, result *model.Result) {
	if p.cache == nil || !p.cfg.Cache.Enabled {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		p.log.Warn().Err(err).Msg("result not cacheable")
		return
	}
	if err := p.cache.Set(p.resultKey(docs), data, p.cfg.Cache.DiskTTL); err != nil {
		p.log.Warn().Err(err).Msg("cache write failed")
	}
}
