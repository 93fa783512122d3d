// Package timeline derives the chronological view of a fact set: facts
// grouped by resolved calendar date, key clinical events, and
// progression trends for repeated measurements.
package timeline

import (
	"sort"
	"time"

	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/model"
)

const dateLayout = "2006-01-02"

// Builder assembles timelines. Holds only the immutable knowledge base,
// safe for concurrent use.
type Builder struct {
	kb *knowledge.Base
}

// NewBuilder creates a timeline builder
func NewBuilder(kb *knowledge.Base) *Builder {
	return &Builder{kb: kb}
}

// Build groups facts by resolved calendar date and derives key events,
// measurement progressions, and the stay boundaries. Facts are not
// mutated.
func (b *Builder) Build(facts []*model.Fact, anchors []model.Anchor) *model.Timeline {
	tl := &model.Timeline{
		Days:         buildDays(facts),
		KeyEvents:    buildKeyEvents(facts, anchors),
		Progressions: b.buildProgressions(facts),
		Anchors:      anchors,
	}

	b.setStayBounds(tl, facts, anchors)
	return tl
}

func buildDays(facts []*model.Fact) []model.TimelineDay {
	byDate := make(map[string][]*model.Fact)
	for _, f := range facts {
		date := f.EffectiveTime().Format(dateLayout)
		byDate[date] = append(byDate[date], f)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	days := make([]model.TimelineDay, 0, len(dates))
	for _, date := range dates {
		dayFacts := byDate[date]
		// Time of day first, then descending confidence.
		sort.SliceStable(dayFacts, func(i, j int) bool {
			ti, tj := dayFacts[i].EffectiveTime(), dayFacts[j].EffectiveTime()
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return dayFacts[i].Confidence > dayFacts[j].Confidence
		})
		days = append(days, model.TimelineDay{Date: date, Facts: dayFacts})
	}
	return days
}

func buildKeyEvents(facts []*model.Fact, anchors []model.Anchor) []model.KeyEvent {
	var events []model.KeyEvent

	for _, a := range anchors {
		events = append(events, model.KeyEvent{
			Date:        a.Timestamp.Format(dateLayout),
			Timestamp:   a.Timestamp,
			Type:        string(a.Kind),
			Description: a.Description,
		})
	}

	for _, f := range facts {
		switch {
		case f.Type == model.FactComplication:
			events = append(events, keyEvent(f, "complication"))
		case f.Type == model.FactLabValue && f.Severity == model.SeverityCritical:
			events = append(events, keyEvent(f, "critical_lab"))
		case f.Type == model.FactProcedure:
			events = append(events, keyEvent(f, "procedure"))
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

func keyEvent(f *model.Fact, eventType string) model.KeyEvent {
	return model.KeyEvent{
		Date:        f.EffectiveTime().Format(dateLayout),
		Timestamp:   f.EffectiveTime(),
		Type:        eventType,
		Description: f.Text,
		FactID:      f.ID,
	}
}

// buildProgressions tracks repeated measurements: clinical scores by
// score name, known labs by lab name.
func (b *Builder) buildProgressions(facts []*model.Fact) []model.Progression {
	type series struct {
		family string
		facts  []*model.Fact
	}
	byName := make(map[string]*series)
	var order []string

	for _, f := range facts {
		if f.NormalizedValue == nil {
			continue
		}
		var name, family string
		switch f.Type {
		case model.FactScore:
			name, family = f.Context["score"], "neurological"
		case model.FactLabValue:
			name, family = f.Context["lab"], "laboratory"
		}
		if name == "" {
			continue
		}
		s, ok := byName[name]
		if !ok {
			s = &series{family: family}
			byName[name] = s
			order = append(order, name)
		}
		s.facts = append(s.facts, f)
	}

	var progressions []model.Progression
	for _, name := range order {
		s := byName[name]
		if len(s.facts) < 2 {
			continue
		}

		sort.SliceStable(s.facts, func(i, j int) bool {
			return s.facts[i].EffectiveTime().Before(s.facts[j].EffectiveTime())
		})

		points := make([]model.MeasurementPoint, 0, len(s.facts))
		values := make([]float64, 0, len(s.facts))
		for _, f := range s.facts {
			points = append(points, model.MeasurementPoint{
				Date:       f.EffectiveTime().Format(dateLayout),
				Value:      *f.NormalizedValue,
				SourceDoc:  f.SourceDoc,
				Confidence: f.Confidence,
			})
			values = append(values, *f.NormalizedValue)
		}

		progressions = append(progressions, model.Progression{
			Measurement: name,
			Family:      s.family,
			Trend:       b.classifyTrend(name, s.family, values),
			Points:      points,
		})
	}
	return progressions
}

// classifyTrend applies polarity: a falling deficit score is improving,
// a falling consciousness score is worsening. Score changes of a single
// point count as stable.
func (b *Builder) classifyTrend(name, family string, values []float64) model.Trend {
	if len(values) < 2 {
		return model.TrendInsufficient
	}

	if family == "laboratory" {
		return b.kb.LabTrend(name, values)
	}

	delta := values[len(values)-1] - values[0]
	if delta >= -1 && delta <= 1 {
		return model.TrendStable
	}

	polarity, tracked := b.kb.ScorePolarity(name)
	if !tracked {
		return model.TrendStable
	}

	falling := delta < 0
	if (polarity == knowledge.LowerIsBetter) == falling {
		return model.TrendImproving
	}
	return model.TrendWorsening
}

// setStayBounds derives admission, discharge, and inclusive length of
// stay. Admission prefers the earliest admission anchor; discharge is
// the latest fact date.
func (b *Builder) setStayBounds(tl *model.Timeline, facts []*model.Fact, anchors []model.Anchor) {
	var admission *time.Time
	for _, a := range anchors {
		if a.Kind != model.AnchorAdmission {
			continue
		}
		if admission == nil || a.Timestamp.Before(*admission) {
			ts := a.Timestamp
			admission = &ts
		}
	}

	var earliest, latest *time.Time
	for _, f := range facts {
		ts := f.EffectiveTime()
		if earliest == nil || ts.Before(*earliest) {
			t := ts
			earliest = &t
		}
		if latest == nil || ts.After(*latest) {
			t := ts
			latest = &t
		}
	}

	if admission == nil {
		admission = earliest
	}
	tl.AdmissionDate = admission
	tl.DischargeDate = latest

	if admission != nil && latest != nil {
		a := time.Date(admission.Year(), admission.Month(), admission.Day(), 0, 0, 0, 0, time.UTC)
		d := time.Date(latest.Year(), latest.Month(), latest.Day(), 0, 0, 0, 0, time.UTC)
		tl.LengthOfStay = int(d.Sub(a).Hours()/24) + 1
	}
}
