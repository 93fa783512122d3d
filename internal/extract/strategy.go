package extract

import (
	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/model"
)

// Strategy is one extraction pass over a document, producing facts of a
// fixed set of entity types.
type Strategy interface {
	// Types lists the fact types the strategy can produce
	Types() []model.FactType

	// Extract runs the pass over the document's lines
	Extract(doc *model.Document, lines []string) []*model.Fact
}

// Registry holds extraction strategies in registration order and
// indexes them by the fact types they produce.
type Registry struct {
	ordered []Strategy
	byType  map[model.FactType]Strategy
}

// NewRegistry creates an empty strategy registry
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[model.FactType]Strategy),
	}
}

// Register adds a strategy. The first strategy registered for a type
// owns the type index entry.
func (r *Registry) Register(s Strategy) {
	r.ordered = append(r.ordered, s)
	for _, t := range s.Types() {
		if _, ok := r.byType[t]; !ok {
			r.byType[t] = s
		}
	}
}

// For returns the strategy that produces the given fact type
func (r *Registry) For(t model.FactType) (Strategy, bool) {
	s, ok := r.byType[t]
	return s, ok
}

// Strategies returns the registered strategies in registration order
func (r *Registry) Strategies() []Strategy {
	return r.ordered
}

// defaultRegistry wires up the built-in strategies
func defaultRegistry(kb *knowledge.Base) *Registry {
	r := NewRegistry()
	r.Register(&labStrategy{kb: kb})
	r.Register(&scoreStrategy{kb: kb})
	r.Register(&vitalStrategy{})
	r.Register(&medicationStrategy{kb: kb})
	r.Register(&temporalStrategy{kb: kb})
	r.Register(&complicationStrategy{})
	r.Register(&sectionStrategy{})
	return r
}

// eachLine applies a per-line extraction across the document so every
// fact stays line-anchored to its source.
func eachLine(doc *model.Document, lines []string, fn func(doc *model.Document, line string, lineNo int) []*model.Fact) []*model.Fact {
	var out []*model.Fact
	for i, line := range lines {
		out = append(out, fn(doc, line, i+1)...)
	}
	return out
}
