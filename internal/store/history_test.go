package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"jobpilot/internal/errors"
	"jobpilot/internal/orchestrator"
	"jobpilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, Migrate(context.Background(), db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, 1, v)
}

func TestRecordAndList(t *testing.T) {
	h := NewHistory(openTemp(t))
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	done := orchestrator.Outcome{
		Kind:  orchestrator.KindDone,
		JobID: "gen-1",
		Request: types.ApplyRequest{
			Job:      types.JobDescriptor{ID: "42", Title: "Go engineer", Company: "Acme"},
			Template: types.TemplateModern,
		},
		Files:      &types.GeneratedArtifacts{CV: "gen-1/cv.pdf", CoverLetter: "gen-1/cl.pdf"},
		ATS:        &types.ATSFeedback{Score: 84},
		Attempts:   3,
		Elapsed:    4200 * time.Millisecond,
		FinishedAt: base,
	}
	failed := orchestrator.Outcome{
		Kind:       orchestrator.KindError,
		JobID:      "gen-2",
		Err:        errors.NewJobError(errors.ErrCodeJobFailed, "template rendering failed", nil),
		FinishedAt: base.Add(500 * time.Millisecond),
	}
	cancelled := orchestrator.Outcome{Kind: orchestrator.KindCancelled, FinishedAt: base.Add(time.Second)}

	for _, out := range []orchestrator.Outcome{done, failed, cancelled} {
		require.NoError(t, h.Record(ctx, out))
	}

	all, err := h.List(ctx, ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"cancelled", "error", "done"}, []string{all[0].Outcome, all[1].Outcome, all[2].Outcome})

	got := all[2]
	assert.Equal(t, "gen-1", got.JobID)
	assert.Equal(t, "42", got.PostingID)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "modern", got.Template)
	assert.Equal(t, "gen-1/cv.pdf", got.Files.CV)
	require.NotNil(t, got.ATSScore)
	assert.Equal(t, 84, *got.ATSScore)
	assert.Equal(t, 4200*time.Millisecond, got.Elapsed)
	assert.True(t, base.Equal(got.At))

	assert.Equal(t, "template rendering failed", all[1].Message)
	assert.Nil(t, all[1].ATSScore)

	onlyDone, err := h.List(ctx, ListOpts{Outcome: "done"})
	require.NoError(t, err)
	require.Len(t, onlyDone, 1)

	limited, err := h.List(ctx, ListOpts{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestLookup(t *testing.T) {
	h := NewHistory(openTemp(t))
	ctx := context.Background()

	_, ok, err := h.Lookup(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.Record(ctx, orchestrator.Outcome{Kind: orchestrator.KindTimeout, JobID: "gen-3"}))
	require.NoError(t, h.Record(ctx, orchestrator.Outcome{Kind: orchestrator.KindDone, JobID: "gen-3",
		Files: &types.GeneratedArtifacts{CV: "cv.pdf"}}))

	e, ok, err := h.Lookup(ctx, "gen-3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "done", e.Outcome)
}

func TestHistoryAsRecorder(t *testing.T) {
	var _ orchestrator.Recorder = NewHistory(nil)
}
