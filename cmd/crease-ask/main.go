package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/cache"
	"github.com/fortuna/crease/internal/config"
	"github.com/fortuna/crease/internal/logging"
	"github.com/fortuna/crease/internal/query"
	"github.com/fortuna/crease/internal/store"
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
		showSQL    = flag.Bool("sql-only", false, "Print the generated SQL without running it")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: crease-ask [flags] <question>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if question == "" {
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := store.NewDatabase(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer db.Close()

	generator := query.NewHTTPGenerator(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, db.Dialect().Name())

	if *showSQL {
		trace, err := generator.GenerateSQL(ctx, question)
		if err != nil {
			logger.Error("Failed to generate SQL", zap.Error(err))
			return 1
		}
		sqlText, err := query.ExtractSQL(trace)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(query.StripFences(sqlText))
		return 0
	}

	var answerCache query.AnswerCache
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			logger.Warn("Redis unavailable, answering without cache", zap.Error(err))
		} else {
			defer rc.Close()
			answerCache = rc
		}
	}

	svc := query.NewService(generator, query.NewExecutor(db), answerCache, cfg.Ask.CacheTTL, logger)
	answer, err := svc.Ask(ctx, question)
	if errors.Is(err, query.ErrNoSQLQuery) {
		fmt.Fprintln(os.Stderr, "The generator did not return a query for that question.")
		return 1
	}
	if err != nil {
		logger.Error("Failed to answer question", zap.Error(err))
		return 1
	}

	fmt.Print(answer.Text)
	return 0
}
