package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chartlinehq/chartline/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "patterns.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPattern(original, corrected string) *model.LearningPattern {
	return &model.LearningPattern{
		Hash:          model.PatternHash(model.FactDiagnosis, original, corrected),
		FactType:      model.FactDiagnosis,
		OriginalText:  original,
		CorrectedText: corrected,
		Context:       map[string]string{"source_doc": "doc-1"},
		Status:        model.PatternPending,
		CreatedBy:     "dr.lee",
		CreatedAt:     time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		SuccessRate:   1.0,
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := testPattern("r sided weakness", "right hemiparesis")
	require.NoError(t, s.Save(ctx, p))

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	require.Equal(t, p.Hash, got.Hash)
	require.Equal(t, p.FactType, got.FactType)
	require.Equal(t, p.OriginalText, got.OriginalText)
	require.Equal(t, p.CorrectedText, got.CorrectedText)
	require.Equal(t, p.Context, got.Context)
	require.Equal(t, model.PatternPending, got.Status)
	require.Equal(t, 1.0, got.SuccessRate)
	require.True(t, p.CreatedAt.Equal(got.CreatedAt))
}

func TestSaveUpsertsStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := testPattern("orig", "fixed")
	require.NoError(t, s.Save(ctx, p))

	now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	p.Status = model.PatternApproved
	p.ApprovedBy = "reviewer"
	p.ApprovedAt = &now
	p.SuccessRate = 0.85
	p.AppliedCount = 3
	require.NoError(t, s.Save(ctx, p))

	got, err := s.Get(ctx, p.Hash)
	require.NoError(t, err)
	require.Equal(t, model.PatternApproved, got.Status)
	require.Equal(t, "reviewer", got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	require.True(t, now.Equal(*got.ApprovedAt))
	require.Equal(t, 0.85, got.SuccessRate)
	require.Equal(t, 3, got.AppliedCount)

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
}

func TestSaveAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	patterns := []*model.LearningPattern{
		testPattern("a", "A"),
		testPattern("b", "B"),
		testPattern("c", "C"),
	}
	require.NoError(t, s.SaveAll(ctx, patterns))

	loaded, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
}

func TestReopenKeepsPatterns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, testPattern("orig", "fixed")))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	loaded, err := s2.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
}
