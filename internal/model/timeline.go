package model

import "time"

// Trend is the computed direction of a repeated measurement
type Trend string

const (
	TrendImproving    Trend = "improving"
	TrendWorsening    Trend = "worsening"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient_data"
)

// TimelineDay holds the facts resolved to a single calendar date,
// ordered by time-of-day then by descending confidence.
type TimelineDay struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Facts []*Fact `json:"facts"`
}

// KeyEvent is a clinically significant event surfaced on the timeline
type KeyEvent struct {
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"` // admission, surgery, complication, critical_lab, procedure
	Description string    `json:"description"`
	FactID      string    `json:"fact_id,omitempty"`
}

// MeasurementPoint is one observation of a tracked measurement
type MeasurementPoint struct {
	Date       string  `json:"date"`
	Value      float64 `json:"value"`
	SourceDoc  string  `json:"source_doc"`
	Confidence float64 `json:"confidence"`
}

// Progression summarizes the direction of a repeated measurement,
// classified with type-specific polarity (a falling deficit score is
// improving, a falling consciousness score is worsening).
type Progression struct {
	Measurement string             `json:"measurement"`
	Family      string             `json:"family"` // neurological, laboratory
	Trend       Trend              `json:"trend"`
	Points      []MeasurementPoint `json:"points"`
}

// Timeline is the derived chronological view of a fact set
type Timeline struct {
	Days         []TimelineDay `json:"days"`
	KeyEvents    []KeyEvent    `json:"key_events"`
	Progressions []Progression `json:"progressions"`
	Anchors      []Anchor      `json:"anchors"`

	AdmissionDate *time.Time `json:"admission_date,omitempty"`
	DischargeDate *time.Time `json:"discharge_date,omitempty"`
	LengthOfStay  int        `json:"length_of_stay_days"` // Inclusive day difference
}

// Day returns the facts for a calendar date, or nil if none
func (t *Timeline) Day(date string) []*Fact {
	for _, d := range t.Days {
		if d.Date == date {
			return d.Facts
		}
	}
	return nil
}

// FactCount returns the total number of facts across all days
func (t *Timeline) FactCount() int {
	n := 0
	for _, d := range t.Days {
		n += len(d.Facts)
	}
	return n
}

// ProgressionFor returns the progression for a measurement name, or nil
func (t *Timeline) ProgressionFor(measurement string) *Progression {
	for i := range t.Progressions {
		if t.Progressions[i].Measurement == measurement {
			return &t.Progressions[i]
		}
	}
	return nil
}
