package backfill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/ingest/cricsheet"
	"github.com/fortuna/crease/internal/store"
)

// ErrNoPaths is returned when a request names nothing to load.
var ErrNoPaths = errors.New("at least one path is required")

// Request represents a backfill invocation request.
type Request struct {
	Paths  []string
	DryRun bool
}

// AnswerCache holds answers derived from loaded data. It is purged after
// a job commits new matches.
type AnswerCache interface {
	PurgeAnswers(ctx context.Context) (int, error)
}

// Service queues load jobs and runs them one at a time on a single worker.
// Jobs are persisted, so history survives restarts.
type Service struct {
	repo    *Repository
	runner  *Runner
	root    *dataRoot
	rootErr error
	answers AnswerCache

	historyLimit int
	pollInterval time.Duration
	wake         chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

// NewService constructs a Service. Request paths are confined to dataDir.
// Call Start to launch the worker.
func NewService(db *store.Database, runner *Runner, dataDir string, logger *zap.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	if logger == nil {
		logger = zap.NewNop()
	}

	root, err := newDataRoot(dataDir)
	if err != nil {
		logger.Warn("Backfill requests will be refused", zap.String("data_dir", dataDir), zap.Error(err))
	}

	return &Service{
		repo:         NewRepository(db),
		runner:       runner,
		root:         root,
		rootErr:      err,
		historyLimit: 10,
		pollInterval: 3 * time.Second,
		wake:         make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger.Named("backfill"),
	}
}

// WithAnswerCache sets the cache purged after committing jobs.
func (s *Service) WithAnswerCache(answers AnswerCache) *Service {
	s.answers = answers
	return s
}

// Start launches the background worker loop.
func (s *Service) Start() {
	if n, err := s.repo.ResetStuckJobs(s.ctx); err != nil {
		s.logger.Error("Failed to reset jobs", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("Requeued interrupted jobs", zap.Int("count", n))
	}

	s.wg.Add(1)
	go s.worker()
}

// Shutdown stops the worker and waits for the current document to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		n, err := s.repo.CancelQueued(context.Background())
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("Cancelled queued jobs", zap.Int("count", n))
		}
		return nil
	}
}

// Enqueue resolves the requested paths to documents and queues a job.
// Every path, and every document found under it, must lie inside the data
// directory.
func (s *Service) Enqueue(ctx context.Context, req Request) (*Job, error) {
	if len(req.Paths) == 0 {
		return nil, ErrNoPaths
	}
	if s.rootErr != nil {
		return nil, s.rootErr
	}

	resolved := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		r, err := s.root.Resolve(p)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}

	files, err := cricsheet.Discover(resolved)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .json documents under %v", req.Paths)
	}
	for i, f := range files {
		if files[i], err = s.root.Resolve(f); err != nil {
			return nil, err
		}
	}

	stored, err := s.repo.CreateJob(ctx, &Job{
		Paths:         req.Paths,
		Files:         files,
		DryRun:        req.DryRun,
		Status:        JobStatusQueued,
		StatusMessage: "Queued",
		ProgressTotal: len(files),
	})
	if err != nil {
		return nil, err
	}

	_ = s.repo.AppendEvent(ctx, stored.JobID, "queued", fmt.Sprintf("Job queued with %d documents", len(files)))

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return stored, nil
}

// GetStatus returns the currently running job plus recent history.
func (s *Service) GetStatus(ctx context.Context) (*StatusSummary, error) {
	active, err := s.repo.GetActiveJob(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.ListRecentJobs(ctx, s.historyLimit)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.ListRecentEvents(ctx, 2*s.historyLimit)
	if err != nil {
		return nil, err
	}

	return &StatusSummary{
		ActiveJob: active,
		History:   history,
		Events:    events,
	}, nil
}

// GetJob returns one job by id.
func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.GetJob(ctx, jobID)
}

func (s *Service) worker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
			job, err := s.repo.MarkNextJobRunning(s.ctx)
			if err != nil {
				s.logger.Error("Claim job failed", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if job == nil {
				select {
				case <-s.ctx.Done():
					return
				case <-s.wake:
					continue
				case <-ticker.C:
					continue
				}
			}

			s.executeJob(job)
		}
	}
}

func (s *Service) executeJob(job *Job) {
	spec := JobSpec{
		RunID:  job.JobID,
		Files:  job.Files,
		DryRun: job.DryRun,
	}

	reporter := &jobReporter{
		ctx:   s.ctx,
		repo:  s.repo,
		jobID: job.JobID,
		total: len(job.Files),
	}

	summary, err := s.runner.Run(s.ctx, spec, reporter)
	if !job.DryRun && summary != nil && summary.Committed > 0 {
		defer s.purgeAnswers(job.JobID)
	}
	if err != nil {
		status := JobStatusFailed
		if errors.Is(err, context.Canceled) {
			status = JobStatusCancelled
		}
		_ = s.repo.UpdateStatus(context.Background(), job.JobID, status, "Job stopped", err)
		return
	}

	message := fmt.Sprintf("Job completed: %d committed, %d failed", summary.Committed, summary.Failed)
	_ = s.repo.UpdateStatus(context.Background(), job.JobID, JobStatusCompleted, message, nil)
}

// purgeAnswers drops cached answers that may predate the newly loaded matches.
func (s *Service) purgeAnswers(jobID string) {
	if s.answers == nil {
		return
	}
	n, err := s.answers.PurgeAnswers(context.Background())
	if err != nil {
		s.logger.Warn("Failed to purge cached answers", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	_ = s.repo.AppendEvent(context.Background(), jobID, "cache", fmt.Sprintf("Purged %d cached answers", n))
}

type jobReporter struct {
	ctx   context.Context
	repo  *Repository
	jobID string
	total int
}

func (r *jobReporter) OnJobStart(spec JobSpec) {
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, 0, r.total, "Job starting")
}

func (r *jobReporter) OnDocumentStart(path string, index int, total int) {
	msg := fmt.Sprintf("Loading %s (%d/%d)", path, index+1, total)
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, index, valueOr(total, r.total), msg)
}

func (r *jobReporter) OnDocumentLoaded(result *cricsheet.Result) {
	_ = r.repo.RecordOutcome(r.ctx, r.jobID, true)
	_ = r.repo.AppendEvent(r.ctx, r.jobID, "match", fmt.Sprintf("Match %d loaded from %s", result.MatchID, result.Source))
}

func (r *jobReporter) OnDocumentFailed(path string, err error) {
	_ = r.repo.RecordOutcome(r.ctx, r.jobID, false)
	_ = r.repo.AppendEvent(r.ctx, r.jobID, "error", fmt.Sprintf("%s: %v", path, err))
}

func (r *jobReporter) OnProgress(message string, current int, total int) {
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, current, valueOr(total, r.total), message)
}

func (r *jobReporter) OnJobComplete(summary *Summary) {
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, r.total, r.total, "Job complete")
}

func (r *jobReporter) OnJobError(err error) {
	_ = r.repo.AppendEvent(r.ctx, r.jobID, "error", err.Error())
}

func valueOr(val, fallback int) int {
	if val > 0 {
		return val
	}
	return fallback
}
