package worker

import (
	"context"

	"github.com/chartlinehq/chartline/internal/extract"
	"github.com/chartlinehq/chartline/internal/model"
)

// ExtractJob runs fact extraction for one document
type ExtractJob struct {
	Extractor *extract.Extractor
	Document  *model.Document
}

// ExtractResult carries the facts for one document, or the reason it
// failed. A failed document contributes zero facts, never an aborted
// batch.
type ExtractResult struct {
	DocumentID string
	Facts      []*model.Fact
	Err        error
}

// GetError returns the extraction error, if any
func (r *ExtractResult) GetError() error { return r.Err }

// Execute runs the extraction
func (j *ExtractJob) Execute(ctx context.Context) Result {
	facts, err := j.Extractor.Extract(ctx, j.Document)
	return &ExtractResult{
		DocumentID: j.Document.ID,
		Facts:      facts,
		Err:        err,
	}
}
