package temporal

import (
	"testing"
	"time"

	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/model"
)

func day(d int, hour int) time.Time {
	return time.Date(2024, 3, d, hour, 0, 0, 0, time.UTC)
}

func refFact(t *testing.T, text string, kind knowledge.TemporalKind, ts time.Time) *model.Fact {
	t.Helper()
	f, err := model.NewFact(text, model.FactTemporalRef, "doc-1", 1, ts, 0.80)
	if err != nil {
		t.Fatalf("NewFact: %v", err)
	}
	f.Context["kind"] = string(kind)
	return f
}

func TestIdentifyAnchors(t *testing.T) {
	docs := []*model.Document{
		{ID: "op", Type: model.DocOperativeNote, Timestamp: day(2, 9), Content: "Craniotomy for clipping"},
		{ID: "adm", Type: model.DocAdmissionNote, Timestamp: day(1, 14), Content: "Admitted with SAH"},
		{ID: "prog", Type: model.DocProgressNote, Timestamp: day(3, 8), Content: "Stable"},
	}

	anchors := IdentifyAnchors(docs)
	if len(anchors) != 2 {
		t.Fatalf("got %d anchors, want 2", len(anchors))
	}
	if anchors[0].Kind != model.AnchorAdmission || !anchors[0].Timestamp.Equal(day(1, 14)) {
		t.Errorf("first anchor = %+v, want admission on day 1", anchors[0])
	}
	if anchors[1].Kind != model.AnchorSurgery {
		t.Errorf("second anchor kind = %s, want surgery", anchors[1].Kind)
	}
	if anchors[1].Description != "Craniotomy for clipping" {
		t.Errorf("description = %q", anchors[1].Description)
	}
}

func TestResolvePOD(t *testing.T) {
	anchors := []model.Anchor{
		{Kind: model.AnchorSurgery, Timestamp: day(2, 9)},
	}
	f := refFact(t, "POD#2", knowledge.TemporalPOD, day(4, 8))

	conflicts := Resolve([]*model.Fact{f}, anchors)
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %+v", conflicts)
	}
	if f.AbsoluteTime == nil {
		t.Fatal("reference not resolved")
	}
	if want := day(4, 9); !f.AbsoluteTime.Equal(want) {
		t.Errorf("resolved = %s, want %s", f.AbsoluteTime, want)
	}
	if f.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", f.Confidence)
	}
}

func TestResolvePODUsesMostRecentSurgery(t *testing.T) {
	// Two surgeries; POD counts from the most recent one at or before
	// the referencing document.
	anchors := []model.Anchor{
		{Kind: model.AnchorSurgery, Timestamp: day(2, 9)},
		{Kind: model.AnchorSurgery, Timestamp: day(7, 10)},
	}
	f := refFact(t, "POD#2", knowledge.TemporalPOD, day(8, 8))

	if conflicts := Resolve([]*model.Fact{f}, anchors); len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %+v", conflicts)
	}
	if want := day(9, 10); f.AbsoluteTime == nil || !f.AbsoluteTime.Equal(want) {
		t.Errorf("resolved = %v, want %s", f.AbsoluteTime, want)
	}
}

func TestResolvePODWithoutSurgery(t *testing.T) {
	f := refFact(t, "POD#1", knowledge.TemporalPOD, day(3, 8))

	conflicts := Resolve([]*model.Fact{f}, nil)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	if conflicts[0].Type != ConflictPODWithoutSurgery {
		t.Errorf("type = %s, want %s", conflicts[0].Type, ConflictPODWithoutSurgery)
	}
	if f.AbsoluteTime != nil {
		t.Error("fact should remain unresolved")
	}
	if f.Confidence != 0.80 {
		t.Errorf("confidence changed on failed resolution: %v", f.Confidence)
	}
}

func TestResolveHD(t *testing.T) {
	anchors := []model.Anchor{
		{Kind: model.AnchorAdmission, Timestamp: day(1, 14)},
	}
	// Hospital day 1 is the admission day itself.
	f := refFact(t, "HD#3", knowledge.TemporalHD, day(3, 8))

	if conflicts := Resolve([]*model.Fact{f}, anchors); len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %+v", conflicts)
	}
	if want := day(3, 14); f.AbsoluteTime == nil || !f.AbsoluteTime.Equal(want) {
		t.Errorf("resolved = %v, want %s", f.AbsoluteTime, want)
	}
}

func TestResolveHDWithoutAdmission(t *testing.T) {
	f := refFact(t, "HD#2", knowledge.TemporalHD, day(3, 8))

	conflicts := Resolve([]*model.Fact{f}, nil)
	if len(conflicts) != 1 || conflicts[0].Type != ConflictHDWithoutAdmission {
		t.Fatalf("conflicts = %+v, want one HD_WITHOUT_ADMISSION", conflicts)
	}
}

func TestResolveRelativeExpressions(t *testing.T) {
	docTS := day(5, 14)

	tests := []struct {
		name string
		text string
		kind knowledge.TemporalKind
		want time.Time
	}{
		{"hours after", "6 hours later", knowledge.TemporalHoursAfter, day(5, 20)},
		{"days after", "2 days later", knowledge.TemporalDaysAfter, day(7, 14)},
		{"yesterday", "yesterday", knowledge.TemporalPrevDay, day(4, 14)},
		{"overnight", "overnight", knowledge.TemporalNextMorning, day(6, 8)},
		{"today", "today", knowledge.TemporalSameDay, day(5, 0)},
		{"tonight", "tonight", knowledge.TemporalSameEvening, day(5, 18)},
		{"following day", "the following day", knowledge.TemporalNextDay, day(6, 14)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := refFact(t, tt.text, tt.kind, docTS)
			if conflicts := Resolve([]*model.Fact{f}, nil); len(conflicts) != 0 {
				t.Fatalf("unexpected conflicts: %+v", conflicts)
			}
			if f.AbsoluteTime == nil {
				t.Fatal("not resolved")
			}
			if !f.AbsoluteTime.Equal(tt.want) {
				t.Errorf("resolved = %s, want %s", f.AbsoluteTime, tt.want)
			}
		})
	}
}

func TestResolveBeforeAdmissionConflict(t *testing.T) {
	anchors := []model.Anchor{
		{Kind: model.AnchorAdmission, Timestamp: day(3, 10)},
	}
	f := refFact(t, "yesterday", knowledge.TemporalPrevDay, day(3, 12))

	conflicts := Resolve([]*model.Fact{f}, anchors)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	if conflicts[0].Type != ConflictBeforeAdmission {
		t.Errorf("type = %s, want %s", conflicts[0].Type, ConflictBeforeAdmission)
	}
	// The fact keeps its resolved time; the conflict flags it.
	if f.AbsoluteTime == nil {
		t.Error("fact should still be resolved")
	}
}

func TestResolveIdempotent(t *testing.T) {
	anchors := []model.Anchor{
		{Kind: model.AnchorSurgery, Timestamp: day(2, 9)},
	}
	f := refFact(t, "POD#1", knowledge.TemporalPOD, day(3, 8))

	Resolve([]*model.Fact{f}, anchors)
	first := *f.AbsoluteTime
	conf := f.Confidence

	Resolve([]*model.Fact{f}, anchors)
	if !f.AbsoluteTime.Equal(first) {
		t.Error("second resolve changed the timestamp")
	}
	if f.Confidence != conf {
		t.Error("second resolve changed the confidence")
	}
}

func TestResolutionStats(t *testing.T) {
	anchors := []model.Anchor{
		{Kind: model.AnchorSurgery, Timestamp: day(2, 9)},
	}
	resolved := refFact(t, "POD#1", knowledge.TemporalPOD, day(3, 8))
	unresolved := refFact(t, "HD#2", knowledge.TemporalHD, day(3, 8))

	Resolve([]*model.Fact{resolved, unresolved}, anchors)

	s := ResolutionStats([]*model.Fact{resolved, unresolved})
	if s.Total != 2 || s.Resolved != 1 || s.Unresolved != 1 {
		t.Errorf("stats = %+v, want total 2, resolved 1, unresolved 1", s)
	}
}
