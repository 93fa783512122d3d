// Package docload reads clinical documents from disk. Plain-text and
// markdown files are taken as-is; HTML exports are reduced to their
// visible text. A small metadata header (Date/Type/Author/Specialty
// lines) at the top of a file overrides what the filename suggests.
package docload

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/chartlinehq/chartline/internal/model"
)

// Header timestamp layouts accepted, most specific first.
var dateLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// filename fragments that suggest a document type
var typeHints = []struct {
	fragment string
	docType  model.DocumentType
}{
	{"admission", model.DocAdmissionNote},
	{"operative", model.DocOperativeNote},
	{"op_note", model.DocOperativeNote},
	{"progress", model.DocProgressNote},
	{"nursing", model.DocNursingNote},
	{"consult", model.DocConsultNote},
	{"lab", model.DocLabReport},
	{"discharge", model.DocDischargeSummary},
	{"imaging", model.DocImagingReport},
	{"radiology", model.DocImagingReport},
}

// LoadDir reads every supported document in a directory, sorted by
// file name so runs are deterministic.
func LoadDir(dir string) ([]*model.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading document directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md", ".html", ".htm":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]*model.Document, 0, len(names))
	for _, name := range names {
		doc, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadFile reads one document
func LoadFile(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	content := string(data)
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".html" || ext == ".htm" {
		content, err = visibleText(content)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
	}

	doc := &model.Document{
		ID:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Type:    typeFromName(filepath.Base(path)),
		Content: content,
		Source:  path,
	}
	parseHeader(doc)

	if doc.Timestamp.IsZero() {
		if info, err := os.Stat(path); err == nil {
			doc.Timestamp = info.ModTime().UTC()
		}
	}
	return doc, nil
}

// parseHeader consumes "Key: value" metadata lines at the top of the
// content. Parsing stops at the first line that is not a known header.
func parseHeader(doc *model.Document) {
	lines := strings.Split(doc.Content, "\n")

	consumed := 0
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			break
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "date":
			if ts, ok := parseDate(value); ok {
				doc.Timestamp = ts
			}
		case "type":
			doc.Type = model.DocumentType(strings.ToLower(strings.ReplaceAll(value, " ", "_")))
		case "author":
			doc.Author = value
		case "specialty":
			doc.Specialty = value
		default:
			// Not a header line; the clinical text starts here.
			doc.Content = strings.Join(lines[consumed:], "\n")
			return
		}
		consumed++
	}
	doc.Content = strings.Join(lines[consumed:], "\n")
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func typeFromName(name string) model.DocumentType {
	lower := strings.ToLower(name)
	for _, hint := range typeHints {
		if strings.Contains(lower, hint.fragment) {
			return hint.docType
		}
	}
	return model.DocProgressNote
}

// blockTags force a line break around their text so headers like
// "FINDINGS:" keep their own line after HTML stripping.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// visibleText reduces an HTML document to its visible text
func visibleText(htmlContent string) (string, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
			if blockTags[n.Data] {
				buf.WriteString("\n")
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	// Collapse the leftover per-line whitespace.
	var out []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n"), nil
}
