package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/ingest/cricsheet"
	"github.com/fortuna/crease/internal/store"
)

// MatchPublisher is notified after each committed document.
type MatchPublisher interface {
	PublishMatchLoaded(ctx context.Context, runID string, result *cricsheet.Result) error
}

// Runner loads a list of documents, one transaction each, continuing past
// documents that fail.
type Runner struct {
	db        *store.Database
	publisher MatchPublisher
	logger    *zap.Logger
}

// NewRunner constructs a runner. db may be nil for dry runs and publisher
// may be nil when no event fan-out is configured.
func NewRunner(db *store.Database, publisher MatchPublisher, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		db:        db,
		publisher: publisher,
		logger:    logger.Named("backfill"),
	}
}

// Run executes the job spec, reporting progress via the Reporter if provided.
// Document failures are recorded in the summary; only cancellation or a
// missing database stops the run early.
func (r *Runner) Run(ctx context.Context, spec JobSpec, reporter Reporter) (*Summary, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if spec.RunID == "" {
		spec.RunID = uuid.NewString()
	}

	start := time.Now()
	summary := &Summary{RunID: spec.RunID, Documents: len(spec.Files)}
	reporter.OnJobStart(spec)

	if !spec.DryRun && r.db == nil {
		err := fmt.Errorf("no database configured for run %s", spec.RunID)
		reporter.OnJobError(err)
		return summary, err
	}

	// One ingester per run: its id map is shared by this run's documents only.
	var ingester *cricsheet.Ingester
	if !spec.DryRun {
		ingester = cricsheet.NewIngester(r.db, r.logger)
	} else {
		reporter.OnProgress("Dry-run mode: documents are validated, no data will be written", 0, len(spec.Files))
	}

	total := len(spec.Files)
	for idx, path := range spec.Files {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			reporter.OnJobError(err)
			return summary, err
		}

		reporter.OnDocumentStart(path, idx, total)

		result, err := r.loadOne(ctx, ingester, path)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Path: path, Error: err.Error()})
			r.logger.Warn("Document failed", zap.String("run_id", spec.RunID), zap.String("path", path), zap.Error(err))
			reporter.OnDocumentFailed(path, err)
			reporter.OnProgress(fmt.Sprintf("✗ %s failed", path), idx+1, total)
			continue
		}

		summary.Committed++
		summary.Deliveries += result.Deliveries

		if r.publisher != nil && !spec.DryRun {
			if err := r.publisher.PublishMatchLoaded(ctx, spec.RunID, result); err != nil {
				r.logger.Warn("Failed to publish match event", zap.Int64("match_id", result.MatchID), zap.Error(err))
			}
		}

		reporter.OnDocumentLoaded(result)
		reporter.OnProgress(fmt.Sprintf("✓ %s complete", path), idx+1, total)
	}

	summary.Duration = time.Since(start)
	r.logger.Info("✓ Run finished",
		zap.String("run_id", spec.RunID),
		zap.Int("committed", summary.Committed),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	reporter.OnJobComplete(summary)
	return summary, nil
}

func (r *Runner) loadOne(ctx context.Context, ingester *cricsheet.Ingester, path string) (*cricsheet.Result, error) {
	if ingester != nil {
		return ingester.LoadFile(ctx, path)
	}
	return checkFile(path)
}

// checkFile validates a document and computes its totals without a database.
func checkFile(path string) (*cricsheet.Result, error) {
	doc, err := cricsheet.ParseFile(path)
	if err != nil {
		return nil, err
	}
	numbers, err := doc.InningsNumbers()
	if err != nil {
		return nil, err
	}
	date, err := doc.MatchDate()
	if err != nil {
		return nil, err
	}

	result := &cricsheet.Result{
		Source:    path,
		Season:    doc.Info.Season.String(),
		MatchDate: date,
		Teams:     [2]string{doc.Info.Teams[0], doc.Info.Teams[1]},
	}
	for idx := range doc.Innings {
		inn := &doc.Innings[idx]
		summary, err := cricsheet.Summarize(inn)
		if err != nil {
			return nil, fmt.Errorf("innings %d: %w", numbers[idx], err)
		}
		var balls int
		for _, over := range inn.Overs {
			balls += len(over.Deliveries)
		}
		result.Deliveries += balls
		result.Innings = append(result.Innings, cricsheet.InningsResult{
			InningsNo:   numbers[idx],
			BattingTeam: inn.Team,
			Summary:     summary,
			Deliveries:  balls,
		})
	}
	return result, nil
}

type nopReporter struct{}

func (nopReporter) OnJobStart(JobSpec) {}
func (nopReporter) OnDocumentStart(string, int, int) {}
func (nopReporter) OnDocumentLoaded(*cricsheet.Result) {}
func (nopReporter) OnDocumentFailed(string, error) {}
func (nopReporter) OnProgress(string, int, int) {}
func (nopReporter) OnJobComplete(*Summary) {}
func (nopReporter) OnJobError(error) {}
