package docload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chartlinehq/chartline/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFileWithHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "progress_note_pod2.txt", strings.Join([]string{
		"Date: 2024-03-04 08:00",
		"Type: progress_note",
		"Author: Dr. Lee",
		"Specialty: Neurosurgery",
		"",
		"On POD#2 patient more lethargic.",
	}, "\n"))

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if doc.Type != model.DocProgressNote {
		t.Errorf("type = %s, want progress_note", doc.Type)
	}
	if want := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC); !doc.Timestamp.Equal(want) {
		t.Errorf("timestamp = %s, want %s", doc.Timestamp, want)
	}
	if doc.Author != "Dr. Lee" || doc.Specialty != "Neurosurgery" {
		t.Errorf("author/specialty = %q/%q", doc.Author, doc.Specialty)
	}
	if strings.Contains(doc.Content, "Date:") {
		t.Error("header lines left in content")
	}
	if !strings.Contains(doc.Content, "POD#2") {
		t.Error("clinical text missing from content")
	}
}

func TestTypeFromFilename(t *testing.T) {
	tests := []struct {
		name string
		want model.DocumentType
	}{
		{"admission_note.txt", model.DocAdmissionNote},
		{"operative_report.txt", model.DocOperativeNote},
		{"nursing_0301.txt", model.DocNursingNote},
		{"lab_results.txt", model.DocLabReport},
		{"discharge_summary.md", model.DocDischargeSummary},
		{"something_else.txt", model.DocProgressNote},
	}
	for _, tt := range tests {
		if got := typeFromName(tt.name); got != tt.want {
			t.Errorf("typeFromName(%s) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestLoadFileHTML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "op_note_export.html", strings.Join([]string{
		"<html><head><style>body { color: red }</style></head><body>",
		"<p>PROCEDURE: Craniotomy for clipping</p>",
		"<p>FINDINGS: Aneurysm clipped</p>",
		"<script>alert('x')</script>",
		"</body></html>",
	}, "\n"))

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if !strings.Contains(doc.Content, "PROCEDURE: Craniotomy for clipping") {
		t.Errorf("content = %q, visible text missing", doc.Content)
	}
	if strings.Contains(doc.Content, "alert") || strings.Contains(doc.Content, "color") {
		t.Error("script/style text leaked into content")
	}

	// The two sections must stay on separate lines for extraction.
	lines := strings.Split(doc.Content, "\n")
	if len(lines) < 2 {
		t.Errorf("content collapsed to %d lines: %q", len(lines), doc.Content)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_progress.txt", "Date: 2024-03-02\n\nStable.")
	writeFile(t, dir, "a_admission.txt", "Date: 2024-03-01\n\nAdmitted with SAH.")
	writeFile(t, dir, "notes.pdf", "ignored")

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "a_admission" || docs[1].ID != "b_progress" {
		t.Errorf("order = %s, %s, want name-sorted", docs[0].ID, docs[1].ID)
	}
	if docs[0].Type != model.DocAdmissionNote {
		t.Errorf("type = %s, want admission_note", docs[0].Type)
	}
}
