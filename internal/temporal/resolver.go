// Package temporal resolves relative time references against anchor
// events. Anchors come from document metadata (operative notes are
// surgeries, admission notes are admissions); relative expressions like
// POD#2 are converted to absolute timestamps by anchor arithmetic.
// Unresolvable references become conflicts, the facts are kept.
package temporal

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chartlinehq/chartline/internal/knowledge"
	"github.com/chartlinehq/chartline/internal/model"
)

// Conflict types
const (
	ConflictPODWithoutSurgery  = "POD_WITHOUT_SURGERY"
	ConflictHDWithoutAdmission = "HD_WITHOUT_ADMISSION"
	ConflictBeforeAdmission    = "BEFORE_ADMISSION"
)

// Confidence boost applied when a reference resolves, capped at 0.95.
const resolveBoost = 0.15

var (
	podNumber   = regexp.MustCompile(`(?i)POD[#\s]*(\d+)`)
	hdNumber    = regexp.MustCompile(`(?i)HD[#\s]*(\d+)`)
	hoursNumber = regexp.MustCompile(`(?i)(\d+)\s*hours?`)
	daysNumber  = regexp.MustCompile(`(?i)(\d+)\s*days?`)
)

// IdentifyAnchors derives anchor events from document metadata:
// operative notes are surgery anchors, admission notes are admission
// anchors. Returned sorted by timestamp.
func IdentifyAnchors(docs []*model.Document) []model.Anchor {
	var anchors []model.Anchor
	for _, doc := range docs {
		switch doc.Type {
		case model.DocOperativeNote:
			anchors = append(anchors, model.Anchor{
				Kind:        model.AnchorSurgery,
				Timestamp:   doc.Timestamp,
				Description: anchorDescription(doc, "surgery"),
				DocumentID:  doc.ID,
				Specialty:   doc.Specialty,
			})
		case model.DocAdmissionNote:
			anchors = append(anchors, model.Anchor{
				Kind:        model.AnchorAdmission,
				Timestamp:   doc.Timestamp,
				Description: anchorDescription(doc, "admission"),
				DocumentID:  doc.ID,
				Specialty:   doc.Specialty,
			})
		}
	}

	sort.Slice(anchors, func(i, j int) bool {
		return anchors[i].Timestamp.Before(anchors[j].Timestamp)
	})
	return anchors
}

// anchorDescription uses the first non-empty content line as the human
// description, falling back to the anchor kind.
func anchorDescription(doc *model.Document, fallback string) string {
	for _, line := range strings.Split(doc.Content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

// Resolve converts temporal-reference facts to absolute timestamps using
// the anchors. Resolution mutates only AbsoluteTime and Confidence on
// the passed facts; unresolvable references are reported as conflicts
// and their facts retained unresolved.
func Resolve(facts []*model.Fact, anchors []model.Anchor) []model.TemporalConflict {
	var conflicts []model.TemporalConflict

	for _, f := range facts {
		if f.Type != model.FactTemporalRef || f.AbsoluteTime != nil {
			continue
		}

		abs, conflict := resolveReference(f, anchors)
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
			continue
		}
		if abs == nil {
			continue
		}

		f.AbsoluteTime = abs
		f.Confidence = min(0.95, f.Confidence+resolveBoost)
	}

	// Nothing in the record may predate the earliest admission.
	if admission, ok := earliestAnchor(anchors, model.AnchorAdmission); ok {
		for _, f := range facts {
			if f.EffectiveTime().Before(admission) {
				conflicts = append(conflicts, model.TemporalConflict{
					Type:     ConflictBeforeAdmission,
					Severity: string(model.UncertaintyMedium),
					Description: fmt.Sprintf("fact %q resolves to %s, before admission on %s",
						f.Text, f.EffectiveTime().Format("2006-01-02 15:04"), admission.Format("2006-01-02")),
					FactIDs: []string{f.ID},
				})
			}
		}
	}

	return conflicts
}

// resolveReference applies the arithmetic for one reference. A nil,nil
// return means the expression kind is unrecognized.
func resolveReference(f *model.Fact, anchors []model.Anchor) (*time.Time, *model.TemporalConflict) {
	kind := knowledge.TemporalKind(f.Context["kind"])

	switch kind {
	case knowledge.TemporalPOD:
		n, ok := extractNumber(podNumber, f.Text)
		if !ok {
			return nil, nil
		}
		// Most recent surgery at or before the referencing document,
		// never blindly the first: repeat surgery resets the count.
		surgery, found := latestAnchorAtOrBefore(anchors, model.AnchorSurgery, f.Timestamp)
		if !found {
			return nil, &model.TemporalConflict{
				Type:        ConflictPODWithoutSurgery,
				Severity:    string(model.UncertaintyHigh),
				Description: fmt.Sprintf("reference %q has no surgery anchor at or before %s", f.Text, f.Timestamp.Format("2006-01-02")),
				FactIDs:     []string{f.ID},
			}
		}
		t := surgery.AddDate(0, 0, n)
		return &t, nil

	case knowledge.TemporalHD:
		n, ok := extractNumber(hdNumber, f.Text)
		if !ok {
			return nil, nil
		}
		admission, found := latestAnchorAtOrBefore(anchors, model.AnchorAdmission, f.Timestamp)
		if !found {
			return nil, &model.TemporalConflict{
				Type:        ConflictHDWithoutAdmission,
				Severity:    string(model.UncertaintyHigh),
				Description: fmt.Sprintf("reference %q has no admission anchor at or before %s", f.Text, f.Timestamp.Format("2006-01-02")),
				FactIDs:     []string{f.ID},
			}
		}
		// Hospital day 1 is the admission day itself.
		t := admission.AddDate(0, 0, n-1)
		return &t, nil

	case knowledge.TemporalHoursAfter:
		n, ok := extractNumber(hoursNumber, f.Text)
		if !ok {
			return nil, nil
		}
		t := f.Timestamp.Add(time.Duration(n) * time.Hour)
		return &t, nil

	case knowledge.TemporalDaysAfter:
		n, ok := extractNumber(daysNumber, f.Text)
		if !ok {
			return nil, nil
		}
		t := f.Timestamp.AddDate(0, 0, n)
		return &t, nil

	case knowledge.TemporalPrevDay:
		t := f.Timestamp.AddDate(0, 0, -1)
		return &t, nil

	case knowledge.TemporalNextMorning:
		t := atHour(f.Timestamp.AddDate(0, 0, 1), 8)
		return &t, nil

	case knowledge.TemporalSameDay:
		t := atHour(f.Timestamp, 0)
		return &t, nil

	case knowledge.TemporalSameEvening:
		t := atHour(f.Timestamp, 18)
		return &t, nil

	case knowledge.TemporalNextDay:
		t := f.Timestamp.AddDate(0, 0, 1)
		return &t, nil
	}

	return nil, nil
}

func extractNumber(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// latestAnchorAtOrBefore returns the most recent anchor of the kind
// whose timestamp does not exceed the cutoff.
func latestAnchorAtOrBefore(anchors []model.Anchor, kind model.AnchorKind, cutoff time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, a := range anchors {
		if a.Kind != kind || a.Timestamp.After(cutoff) {
			continue
		}
		if !found || a.Timestamp.After(best) {
			best = a.Timestamp
			found = true
		}
	}
	return best, found
}

func earliestAnchor(anchors []model.Anchor, kind model.AnchorKind) (time.Time, bool) {
	var best time.Time
	found := false
	for _, a := range anchors {
		if a.Kind != kind {
			continue
		}
		if !found || a.Timestamp.Before(best) {
			best = a.Timestamp
			found = true
		}
	}
	return best, found
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Stats summarizes how resolution went over a fact set
type Stats struct {
	Total      int `json:"total"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
}

// ResolutionStats counts resolved and unresolved temporal references
func ResolutionStats(facts []*model.Fact) Stats {
	var s Stats
	for _, f := range facts {
		if f.Type != model.FactTemporalRef {
			continue
		}
		s.Total++
		if f.AbsoluteTime != nil {
			s.Resolved++
		} else {
			s.Unresolved++
		}
	}
	return s
}
