package model

import "time"

// DocumentType classifies a clinical document
type DocumentType string

const (
	DocAdmissionNote    DocumentType = "admission_note"
	DocOperativeNote    DocumentType = "operative_note"
	DocProgressNote     DocumentType = "progress_note"
	DocNursingNote      DocumentType = "nursing_note"
	DocConsultNote      DocumentType = "consult_note"
	DocLabReport        DocumentType = "lab_report"
	DocDischargeSummary DocumentType = "discharge_summary"
	DocImagingReport    DocumentType = "imaging_report"
)

// Document is a free-text hospital document fed into the pipeline
type Document struct {
	ID        string       `json:"id"`
	Type      DocumentType `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Author    string       `json:"author,omitempty"`
	Specialty string       `json:"specialty,omitempty"`
	Content   string       `json:"content"`
	Source    string       `json:"source,omitempty"` // File path or upstream identifier
}

// AnchorKind classifies an anchor event used for temporal resolution
type AnchorKind string

const (
	AnchorSurgery   AnchorKind = "surgery"
	AnchorAdmission AnchorKind = "admission"
)

// Anchor is a zero-point event for relative-time arithmetic.
// Multiple anchors of the same kind may exist (e.g. repeat surgery);
// resolution always selects the most recent anchor at or before the
// referencing fact's document timestamp.
type Anchor struct {
	Kind        AnchorKind `json:"kind"`
	Timestamp   time.Time  `json:"timestamp"`
	Description string     `json:"description"`
	DocumentID  string     `json:"document_id"`
	Specialty   string     `json:"specialty,omitempty"`
}
