package extract

import (
	"context"
	"testing"

	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/model"
)

type stubStrategy struct {
	typ    model.FactType
	called int
}

func (s *stubStrategy) Types() []model.FactType {
	return []model.FactType{s.typ}
}

func (s *stubStrategy) Extract(doc *model.Document, lines []string) []*model.Fact {
	s.called++
	f, _ := model.NewFact("stub span", s.typ, doc.ID, 1, doc.Timestamp, 0.5)
	return []*model.Fact{f}
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	diag := &stubStrategy{typ: model.FactDiagnosis}
	proc := &stubStrategy{typ: model.FactProcedure}
	r.Register(diag)
	r.Register(proc)

	if got := len(r.Strategies()); got != 2 {
		t.Fatalf("got %d strategies, want 2", got)
	}
	if r.Strategies()[0] != Strategy(diag) {
		t.Error("registration order not preserved")
	}

	s, ok := r.For(model.FactProcedure)
	if !ok || s != Strategy(proc) {
		t.Error("For(procedure) did not return the registered strategy")
	}
	if _, ok := r.For(model.FactMedication); ok {
		t.Error("For returned a strategy for an unregistered type")
	}
}

func TestRegistryFirstRegistrationOwnsType(t *testing.T) {
	r := NewRegistry()
	first := &stubStrategy{typ: model.FactComplication}
	second := &stubStrategy{typ: model.FactComplication}
	r.Register(first)
	r.Register(second)

	if s, _ := r.For(model.FactComplication); s != Strategy(first) {
		t.Error("type index does not point at the first registered strategy")
	}
	if got := len(r.Strategies()); got != 2 {
		t.Errorf("got %d strategies, want both registered", got)
	}
}

func TestDefaultRegistryCoversBuiltinTypes(t *testing.T) {
	r := defaultRegistry(knowledge.NewBase())

	for _, typ := range []model.FactType{
		model.FactLabValue,
		model.FactScore,
		model.FactVitalSign,
		model.FactMedication,
		model.FactTemporalRef,
		model.FactComplication,
		model.FactProcedure,
		model.FactFinding,
		model.FactDiagnosis,
		model.FactRecommendation,
	} {
		if _, ok := r.For(typ); !ok {
			t.Errorf("no strategy registered for %s", typ)
		}
	}
}

func TestExtractorDispatchesThroughRegistry(t *testing.T) {
	r := NewRegistry()
	stub := &stubStrategy{typ: model.FactConsultation}
	r.Register(stub)

	e := &Extractor{registry: r}
	doc := &model.Document{ID: "doc-1", Content: "some narrative text"}

	facts, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if stub.called != 1 {
		t.Errorf("strategy called %d times, want 1", stub.called)
	}
	if len(facts) != 1 || facts[0].Type != model.FactConsultation {
		t.Fatalf("facts = %v, want one consultation fact from the stub", facts)
	}
}
