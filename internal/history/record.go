package history

import (
	"context"
	"fmt"
	"time"

	"github.com/zokbuild/zokbuild/internal/pipeline"
)

// Run is one recorded pipeline run.
type Run struct {
	ID         string            `json:"id"`
	Circuit    string            `json:"circuit"`
	Status     string            `json:"status"`
	FailedStep string            `json:"failed_step,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Steps      []StepRecord      `json:"steps"`
	Artifacts  map[string]string `json:"artifacts,omitempty"`
}

// StepRecord is one attempted step within a run.
type StepRecord struct {
	Name       string `json:"name"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
}

// FromResult converts a pipeline result into a Run record.
func FromResult(res *pipeline.Result) Run {
	run := Run{
		ID:         res.RunID,
		Circuit:    res.Circuit,
		Status:     res.Status,
		FailedStep: res.FailedStep,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Artifacts:  res.Digests,
	}
	for _, inv := range res.Invocations {
		run.Steps = append(run.Steps, StepRecord{
			Name:       inv.Subcommand,
			ExitCode:   inv.ExitCode,
			DurationMS: inv.Duration.Milliseconds(),
		})
	}
	return run
}

// WriteRun inserts a run with its steps and artifact digests in one
// transaction. Duplicate run IDs are rejected; runs are immutable.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, circuit, status, failed_step, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Circuit,
		run.Status,
		run.FailedStep,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	for i, step := range run.Steps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_steps (run_id, position, name, exit_code, duration_ms)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, i, step.Name, step.ExitCode, step.DurationMS)
		if err != nil {
			return fmt.Errorf("write run %s step %s: %w", run.ID, step.Name, err)
		}
	}

	for name, digest := range run.Artifacts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_artifacts (run_id, name, digest)
			VALUES (?, ?, ?)
		`, run.ID, name, digest)
		if err != nil {
			return fmt.Errorf("write run %s artifact %s: %w", run.ID, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}
	return nil
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// FailedOnly restricts the listing to failed runs.
	FailedOnly bool

	// Limit caps the number of returned runs; 0 means no cap.
	Limit int
}

// ListRuns returns recorded runs, newest first. Ordering is by run ID:
// UUIDv7 IDs sort by creation time, so results are deterministic even for
// runs sharing a wall-clock timestamp.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	query := `
		SELECT id, circuit, status, failed_step, started_at, finished_at
		FROM runs
	`
	var args []any
	if opts.FailedOnly {
		query += ` WHERE status = ?`
		args = append(args, pipeline.StatusFailed)
	}
	query += ` ORDER BY id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Circuit, &run.Status, &run.FailedStep, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at for run %s: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at for run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	for i := range runs {
		if err := s.loadSteps(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// GetRun returns a single run with steps and artifact digests.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	var started, finished string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, circuit, status, failed_step, started_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Circuit, &run.Status, &run.FailedStep, &started, &finished)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parse started_at for run %s: %w", id, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return nil, fmt.Errorf("parse finished_at for run %s: %w", id, err)
	}

	if err := s.loadSteps(ctx, &run); err != nil {
		return nil, err
	}
	if err := s.loadArtifacts(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) loadSteps(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, exit_code, duration_ms
		FROM run_steps WHERE run_id = ?
		ORDER BY position ASC
	`, run.ID)
	if err != nil {
		return fmt.Errorf("load steps for run %s: %w", run.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var step StepRecord
		if err := rows.Scan(&step.Name, &step.ExitCode, &step.DurationMS); err != nil {
			return fmt.Errorf("scan step for run %s: %w", run.ID, err)
		}
		run.Steps = append(run.Steps, step)
	}
	return rows.Err()
}

func (s *Store) loadArtifacts(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, digest
		FROM run_artifacts WHERE run_id = ?
		ORDER BY name ASC
	`, run.ID)
	if err != nil {
		return fmt.Errorf("load artifacts for run %s: %w", run.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, digest string
		if err := rows.Scan(&name, &digest); err != nil {
			return fmt.Errorf("scan artifact for run %s: %w", run.ID, err)
		}
		if run.Artifacts == nil {
			run.Artifacts = make(map[string]string)
		}
		run.Artifacts[name] = digest
	}
	return rows.Err()
}
