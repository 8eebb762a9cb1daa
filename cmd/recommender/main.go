package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"paper_recommender/internal/config"
	"paper_recommender/internal/keywords"
	"paper_recommender/internal/metrics"
	"paper_recommender/internal/publisher"
	"paper_recommender/internal/scheduler"
	"paper_recommender/internal/service"
	"paper_recommender/internal/source/crossref"
	"paper_recommender/internal/storage/postgres"
	"paper_recommender/internal/transport/httpapi"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one recommendation pass and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)

	vocab, err := loadVocabulary(cfg.Recommend.VocabularyPath)
	if err != nil {
		logger.Error("failed to load vocabulary", "error", err, "path", cfg.Recommend.VocabularyPath)
		os.Exit(1)
	}

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	source := crossref.New(crossref.Config{
		BaseURL:        cfg.Crossref.BaseURL,
		JournalsURL:    cfg.Crossref.JournalsURL,
		Mailto:         cfg.Crossref.Mailto,
		Timeout:        cfg.Crossref.Timeout,
		MaxAttempts:    cfg.Crossref.Retry.MaxAttempts,
		InitialBackoff: cfg.Crossref.Retry.InitialBackoff,
		MaxBackoff:     cfg.Crossref.Retry.MaxBackoff,
	}, logger)

	recommender := service.NewRecommendService(service.Deps{
		Journals:        postgres.NewJournalStore(db),
		Recommendations: postgres.NewRecommendationStore(db),
		Source:          source,
		Library:         postgres.NewLibraryStore(db),
		TxManager:       postgres.NewTransactionManager(db),
		Publisher:       pub,
		Vocabulary:      vocab,
	}, logger, cfg.Recommend)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		runCtx, runCancel := context.WithTimeout(ctx, cfg.Scheduler.RunTimeout)
		defer runCancel()

		stats, err := recommender.Run(runCtx)
		if err != nil {
			logger.Error("recommendation run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("recommendation run finished",
			"run_id", stats.RunID,
			"fetched", stats.Fetched,
			"recommended", stats.Recommended,
			"journal_errors", stats.JournalErrors,
		)
		return
	}

	logger.Info("starting paper recommender",
		"source", source.Name(),
		"http_addr", cfg.HTTP.Addr,
		"scheduler_enabled", cfg.Scheduler.Enabled,
		"interval", cfg.Scheduler.Interval,
	)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	server := httpapi.NewServer(recommender, logger, cfg.Scheduler.RunTimeout)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(ctx, cfg.HTTP.Addr); err != nil {
			errCh <- err
			cancel()
		}
	}()

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(recommender, cfg.Scheduler.Interval, cfg.Scheduler.RunTimeout, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
				cancel()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	wg.Wait()
	close(errCh)

	failed := false
	for err := range errCh {
		logger.Error("component error", "error", err)
		failed = true
	}
	if failed {
		os.Exit(1)
	}
}

func loadVocabulary(path string) (*keywords.Vocabulary, error) {
	if path == "" {
		return keywords.Default()
	}
	return keywords.Load(path)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
