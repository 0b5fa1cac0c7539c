package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zokbuild/zokbuild/internal/pipeline"
	"github.com/zokbuild/zokbuild/internal/toolchain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(t *testing.T, status, failedStep string) Run {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)

	started := time.Now().UTC().Truncate(time.Millisecond)
	return Run{
		ID:         id.String(),
		Circuit:    "legalage.zok",
		Status:     status,
		FailedStep: failedStep,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Steps: []StepRecord{
			{Name: "check", ExitCode: 0, DurationMS: 120},
			{Name: "compile", ExitCode: 0, DurationMS: 800},
			{Name: "setup", ExitCode: 0, DurationMS: 950},
		},
		Artifacts: map[string]string{
			"out":      "aaaa",
			"abi.json": "bbbb",
		},
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestWriteAndGetRun(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	run := sampleRun(t, pipeline.StatusOK, "")
	require.NoError(t, st.WriteRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Circuit, got.Circuit)
	assert.Equal(t, run.Status, got.Status)
	assert.Equal(t, run.Steps, got.Steps)
	assert.Equal(t, run.Artifacts, got.Artifacts)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))
}

func TestWriteRunRejectsDuplicateID(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	run := sampleRun(t, pipeline.StatusOK, "")
	require.NoError(t, st.WriteRun(ctx, run))
	assert.Error(t, st.WriteRun(ctx, run), "runs are immutable")
}

func TestListRunsNewestFirst(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	first := sampleRun(t, pipeline.StatusOK, "")
	second := sampleRun(t, pipeline.StatusFailed, "compile")
	require.NoError(t, st.WriteRun(ctx, first))
	require.NoError(t, st.WriteRun(ctx, second))

	runs, err := st.ListRuns(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "UUIDv7 IDs list newest first")
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Len(t, runs[0].Steps, 3)
}

func TestListRunsFailedOnly(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, st.WriteRun(ctx, sampleRun(t, pipeline.StatusOK, "")))
	failed := sampleRun(t, pipeline.StatusFailed, "setup")
	require.NoError(t, st.WriteRun(ctx, failed))

	runs, err := st.ListRuns(ctx, ListOptions{FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, failed.ID, runs[0].ID)
	assert.Equal(t, "setup", runs[0].FailedStep)
}

func TestListRunsLimit(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, st.WriteRun(ctx, sampleRun(t, pipeline.StatusOK, "")))
	}

	runs, err := st.ListRuns(ctx, ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestFromResult(t *testing.T) {
	res := &pipeline.Result{
		RunID:      "0192-test",
		Circuit:    "legalage.zok",
		Status:     pipeline.StatusFailed,
		FailedStep: "compile",
		Invocations: []toolchain.Invocation{
			{Subcommand: "check", ExitCode: 0, Duration: 150 * time.Millisecond},
			{Subcommand: "compile", ExitCode: 1, Duration: 75 * time.Millisecond},
		},
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}

	run := FromResult(res)
	assert.Equal(t, "0192-test", run.ID)
	assert.Equal(t, pipeline.StatusFailed, run.Status)
	assert.Equal(t, "compile", run.FailedStep)
	require.Len(t, run.Steps, 2)
	assert.Equal(t, StepRecord{Name: "check", ExitCode: 0, DurationMS: 150}, run.Steps[0])
	assert.Equal(t, StepRecord{Name: "compile", ExitCode: 1, DurationMS: 75}, run.Steps[1])
}
