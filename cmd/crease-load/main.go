package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/backfill"
	"github.com/fortuna/crease/internal/cache"
	"github.com/fortuna/crease/internal/config"
	"github.com/fortuna/crease/internal/ingest/cricsheet"
	"github.com/fortuna/crease/internal/logging"
	"github.com/fortuna/crease/internal/publisher"
	"github.com/fortuna/crease/internal/store"
)

const (
	appName    = "crease-load"
	appVersion = "1.0.0"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "Optional YAML config file")
		envFile    = flag.String("env", ".env", "Optional .env file")
		dsn        = flag.String("dsn", "", "Database DSN (overrides CREASE_DSN)")
		driver     = flag.String("driver", "", "Database driver: postgres, pgx or sqlite (overrides CREASE_DB_DRIVER)")
		dryRun     = flag.Bool("dry-run", false, "Parse and validate documents without writing")
		publish    = flag.Bool("publish", true, "Publish loaded matches to Redis when REDIS_URL is set")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <file.json|dir>...\n", appName)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	cfg, err := config.LoadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if *driver != "" {
		cfg.Database.Driver = *driver
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		return 2
	}
	defer logger.Sync()

	logger.Info("Starting loader", zap.String("app", appName), zap.String("version", appVersion))

	files, err := cricsheet.Discover(flag.Args())
	if err != nil {
		logger.Error("Failed to discover documents", zap.Error(err))
		return 1
	}
	if len(files) == 0 {
		logger.Error("No .json documents found", zap.Strings("paths", flag.Args()))
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var db *store.Database
	if !*dryRun {
		db, err = store.NewDatabase(cfg.Database.Driver, cfg.Database.DSN, logger)
		if err != nil {
			logger.Error("Failed to connect to database", zap.Error(err))
			return 1
		}
		defer db.Close()
		logger.Info("✓ Connected to database", zap.String("driver", cfg.Database.Driver))

		if err := db.RunMigrations(ctx); err != nil {
			logger.Error("Failed to run database migrations", zap.Error(err))
			return 1
		}
	}

	var pub backfill.MatchPublisher
	if *publish && !*dryRun && cfg.Redis.URL != "" {
		redisPub, err := publisher.NewRedisPublisher(cfg.Redis.URL)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without publishing", zap.Error(err))
		} else {
			defer redisPub.Close()
			pub = redisPub
		}
	}

	runner := backfill.NewRunner(db, pub, logger)
	summary, err := runner.Run(ctx, backfill.JobSpec{Files: files, DryRun: *dryRun}, &consoleReporter{})
	if err != nil {
		logger.Error("Load aborted", zap.Error(err))
		return 1
	}

	fmt.Printf("\n%d documents: %d committed, %d failed, %d deliveries in %s\n",
		summary.Documents, summary.Committed, summary.Failed, summary.Deliveries, summary.Duration.Round(time.Millisecond))
	for _, f := range summary.Failures {
		fmt.Printf("  FAILED %s: %s\n", f.Path, f.Error)
	}

	if summary.Committed > 0 && !*dryRun && cfg.Redis.URL != "" {
		purgeAnswers(ctx, cfg.Redis.URL, logger)
	}

	if summary.Failed > 0 {
		return 1
	}
	return 0
}

// purgeAnswers drops answers cached by a running API server, since they may
// predate the matches just committed.
func purgeAnswers(ctx context.Context, redisURL string, logger *zap.Logger) {
	rc, err := cache.NewRedisCache(redisURL)
	if err != nil {
		logger.Warn("Redis unavailable, cached answers not purged", zap.Error(err))
		return
	}
	defer rc.Close()

	n, err := rc.PurgeAnswers(ctx)
	if err != nil {
		logger.Warn("Failed to purge cached answers", zap.Error(err))
		return
	}
	logger.Info("✓ Purged cached answers", zap.Int("count", n))
}

// consoleReporter prints one line per document to stdout.
type consoleReporter struct {
	index int
	total int
}

func (c *consoleReporter) OnJobStart(spec backfill.JobSpec) {
	fmt.Printf("Loading %d documents (run %s, dry_run=%v)\n", len(spec.Files), spec.RunID, spec.DryRun)
}

func (c *consoleReporter) OnDocumentStart(path string, index int, total int) {
	c.index, c.total = index, total
}

func (c *consoleReporter) OnDocumentLoaded(result *cricsheet.Result) {
	fmt.Printf("[%d/%d] ✓ %s: match %d %s v %s (%s), %d deliveries\n",
		c.index+1, c.total, result.Source, result.MatchID, result.Teams[0], result.Teams[1],
		result.MatchDate.Format("2006-01-02"), result.Deliveries)
	for _, inn := range result.Innings {
		fmt.Printf("        innings %d %s: %d/%d (%d overs)\n",
			inn.InningsNo, inn.BattingTeam, inn.Runs, inn.Wickets, inn.Overs)
	}
}

func (c *consoleReporter) OnDocumentFailed(path string, err error) {
	fmt.Printf("[%d/%d] ✗ %s: %v\n", c.index+1, c.total, path, err)
}

func (c *consoleReporter) OnProgress(message string, current int, total int) {}

func (c *consoleReporter) OnJobComplete(summary *backfill.Summary) {}

func (c *consoleReporter) OnJobError(err error) {
	fmt.Printf("Job error: %v\n", err)
}
