package backfill

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fortuna/crease/internal/store"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

const jobColumns = `job_id, paths, files, dry_run, status, status_message,
			progress_current, progress_total, committed, failed, last_error,
			created_at, updated_at, started_at, completed_at`

// Repository handles persistence for backfill jobs and events.
type Repository struct {
	db  *store.Database
	now func() time.Time
}

// NewRepository constructs a Repository.
func NewRepository(db *store.Database) *Repository {
	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob inserts a new job row and returns the stored record.
func (r *Repository) CreateJob(ctx context.Context, job *Job) (*Job, error) {
	jobID := job.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	paths, err := json.Marshal(job.Paths)
	if err != nil {
		return nil, fmt.Errorf("encode job paths: %w", err)
	}
	files, err := json.Marshal(job.Files)
	if err != nil {
		return nil, fmt.Errorf("encode job files: %w", err)
	}

	query := `
		INSERT INTO backfill_jobs (
			job_id, paths, files, dry_run, status, status_message,
			progress_current, progress_total, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`

	now := r.now()
	_, err = r.db.ExecContext(ctx, query,
		jobID, string(paths), string(files), job.DryRun, string(job.Status), job.StatusMessage,
		job.ProgressCurrent, job.ProgressTotal, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", store.ClassifyError(err))
	}

	return r.GetJob(ctx, jobID)
}

// UpdateStatus updates status, message and optional error. Terminal
// statuses stamp completed_at.
func (r *Repository) UpdateStatus(ctx context.Context, jobID string, status JobStatus, message string, lastErr error) error {
	query := `
		UPDATE backfill_jobs
		SET status = $2,
			status_message = $3,
			last_error = COALESCE($4, last_error),
			updated_at = $5,
			completed_at = COALESCE($6, completed_at)
		WHERE job_id = $1
	`

	var errText sql.NullString
	if lastErr != nil {
		errText = sql.NullString{String: lastErr.Error(), Valid: true}
	}

	now := r.now()
	var completedAt sql.NullTime
	if status.Terminal() {
		completedAt = sql.NullTime{Time: now, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query, jobID, string(status), message, errText, now, completedAt)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return expectRow(res, jobID)
}

// UpdateProgress updates the progress counters and message.
func (r *Repository) UpdateProgress(ctx context.Context, jobID string, current, total int, message string) error {
	query := `
		UPDATE backfill_jobs
		SET progress_current = $2,
			progress_total = $3,
			status_message = $4,
			updated_at = $5
		WHERE job_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, jobID, current, total, message, r.now())
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return expectRow(res, jobID)
}

// RecordOutcome bumps the committed or failed document counter.
func (r *Repository) RecordOutcome(ctx context.Context, jobID string, committed bool) error {
	column := "failed"
	if committed {
		column = "committed"
	}

	query := `UPDATE backfill_jobs SET ` + column + ` = ` + column + ` + 1, updated_at = $2 WHERE job_id = $1`
	res, err := r.db.ExecContext(ctx, query, jobID, r.now())
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return expectRow(res, jobID)
}

// AppendEvent stores a log entry for a job.
func (r *Repository) AppendEvent(ctx context.Context, jobID string, eventType, message string) error {
	query := `
		INSERT INTO backfill_job_events (job_id, event_type, message, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, jobID, eventType, message, r.now()); err != nil {
		return fmt.Errorf("insert job event: %w", store.ClassifyError(err))
	}
	return nil
}

// ResetStuckJobs moves running jobs back to queued. A job left running
// belonged to a process that exited before finishing it.
func (r *Repository) ResetStuckJobs(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE backfill_jobs
		SET status = 'queued',
			status_message = 'Reset after service restart',
			updated_at = $1
		WHERE status = 'running'
	`, r.now())
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CancelQueued marks every queued job cancelled, used on shutdown.
func (r *Repository) CancelQueued(ctx context.Context) (int, error) {
	now := r.now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE backfill_jobs
		SET status = 'cancelled',
			status_message = 'Cancelled at shutdown',
			updated_at = $1,
			completed_at = $1
		WHERE status = 'queued'
	`, now)
	if err != nil {
		return 0, fmt.Errorf("cancel queued jobs: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// MarkNextJobRunning claims the oldest queued job, or returns nil.
func (r *Repository) MarkNextJobRunning(ctx context.Context) (*Job, error) {
	lock := ""
	if r.db.Dialect() == store.DialectPostgres {
		lock = "FOR UPDATE SKIP LOCKED"
	}

	var claimed string
	err := r.db.WithTx(ctx, nil, func(tx *store.Tx) error {
		var jobID string
		err := tx.QueryRowContext(ctx, `
			SELECT job_id
			FROM backfill_jobs
			WHERE status = 'queued'
			ORDER BY job_seq
			LIMIT 1
			`+lock).Scan(&jobID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		now := r.now()
		_, err = tx.ExecContext(ctx, `
			UPDATE backfill_jobs
			SET status = 'running',
				status_message = 'Starting job...',
				started_at = COALESCE(started_at, $2),
				updated_at = $2
			WHERE job_id = $1
		`, jobID, now)
		if err != nil {
			return err
		}
		claimed = jobID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	if claimed == "" {
		return nil, nil
	}
	return r.GetJob(ctx, claimed)
}

// GetJob returns a job by id.
func (r *Repository) GetJob(ctx context.Context, jobID string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM backfill_jobs WHERE job_id = $1`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetActiveJob returns the currently running job, if any.
func (r *Repository) GetActiveJob(ctx context.Context) (*Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM backfill_jobs
		WHERE status = 'running'
		ORDER BY job_seq DESC
		LIMIT 1
	`

	job, err := scanJob(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active job: %w", err)
	}
	return job, nil
}

// ListRecentJobs returns the newest jobs first.
func (r *Repository) ListRecentJobs(ctx context.Context, limit int) ([]*Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM backfill_jobs
		ORDER BY job_seq DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// ListRecentEvents returns up to limit events across all jobs, newest first.
func (r *Repository) ListRecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	query := `
		SELECT event_id, job_id, event_type, message, created_at
		FROM backfill_job_events
		ORDER BY event_id DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		evt := &Event{}
		if err := rows.Scan(&evt.EventID, &evt.JobID, &evt.Type, &evt.Message, &evt.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

func expectRow(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	return nil
}

func scanJob(scanner interface {
	Scan(dest ...any) error
}) (*Job, error) {
	var (
		job                    Job
		paths, files, status   string
		lastErr                sql.NullString
		startedAt, completedAt sql.NullTime
	)
	err := scanner.Scan(
		&job.JobID,
		&paths,
		&files,
		&job.DryRun,
		&status,
		&job.StatusMessage,
		&job.ProgressCurrent,
		&job.ProgressTotal,
		&job.Committed,
		&job.Failed,
		&lastErr,
		&job.CreatedAt,
		&job.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(paths), &job.Paths); err != nil {
		return nil, fmt.Errorf("decode job paths: %w", err)
	}
	if err := json.Unmarshal([]byte(files), &job.Files); err != nil {
		return nil, fmt.Errorf("decode job files: %w", err)
	}
	job.Status = JobStatus(status)
	job.LastError = lastErr.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}
