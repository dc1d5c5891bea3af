package main

import (
	"context"
	"fmt"

	"legalrag-backend/audit"
	"legalrag-backend/config"
	"legalrag-backend/logger"
	"legalrag-backend/metrics"
	"legalrag-backend/oracle"
	"legalrag-backend/repository"
	"legalrag-backend/retry"
	"legalrag-backend/scraper"
	"legalrag-backend/service"
	"legalrag-backend/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// app holds the wired components shared by every subcommand
type app struct {
	cfg       *config.Config
	pool      *pgxpool.Pool
	index     repository.VectorIndex
	oracle    oracle.Oracle
	snapshots storage.Storage
	audit     *audit.Logger
	registry  *prometheus.Registry
	indexer   *service.Indexer
	runner    *service.IndexRunner
	engine    *service.QueryEngine
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty)
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var runRepo repository.IndexRunRepository
	switch cfg.Index.Backend {
	case "pgvector":
		pool, err := initPostgres(ctx, cfg.Index.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		if err := repository.EnsureSchema(ctx, pool, cfg.Index.Dimensions); err != nil {
			a.close()
			return nil, err
		}
		a.index = repository.NewLegalChunkRepository(pool)
		runRepo = repository.NewPostgresIndexRunRepository(pool)
	default:
		idx, err := repository.NewChromemIndex(cfg.Index.ChromemPath, cfg.Index.Collection)
		if err != nil {
			return nil, err
		}
		a.index = idx
		runRepo = repository.NewMemoryIndexRunRepository()
	}
	log.Info().Str("backend", cfg.Index.Backend).Msg("vector index initialized")

	o, err := oracle.New(ctx, cfg.Oracle)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init oracle: %w", err)
	}
	a.oracle = o
	log.Info().Str("provider", o.Name()).Str("model", cfg.Oracle.GenerateModel).Msg("oracle initialized")

	a.snapshots, err = storage.NewStorage(ctx, cfg.Snapshots)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init snapshot storage: %w", err)
	}

	if cfg.Audit.Path != "" {
		a.audit, err = audit.Open(cfg.Audit.Path)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	m := metrics.New(a.registry)

	sc := cfg.Scraper
	pageScraper := scraper.NewScraper(
		scraper.WithUserAgent(sc.UserAgent),
		scraper.WithMinInterval(sc.MinInterval),
		scraper.WithMaxBodyBytes(sc.MaxBodyBytes),
		scraper.WithRetryPolicy(retry.Policy{
			Attempts: sc.MaxRetries,
			Backoff:  sc.RetryBackoff,
			Timeout:  sc.Timeout,
		}),
	)

	a.indexer = service.NewIndexer(
		service.IndexWithScraper(pageScraper),
		service.IndexWithEmbedder(o),
		service.IndexWithVectorIndex(a.index),
		service.IndexWithSnapshots(a.snapshots),
		service.IndexWithAudit(a.audit),
		service.IndexWithMetrics(m),
		service.IndexWithChunkSize(cfg.Indexing.ChunkSize),
		service.IndexWithReplaceExisting(cfg.Indexing.ReplaceExistingChunks()),
	)
	a.runner = service.NewIndexRunner(
		service.RunWithIndexer(a.indexer),
		service.RunWithRepository(runRepo),
	)
	a.engine = service.NewQueryEngine(
		service.QueryWithIndex(a.index),
		service.QueryWithOracle(o),
		service.QueryWithModel(cfg.Oracle.GenerateModel),
		service.QueryWithTemperature(cfg.Oracle.SamplingTemperature()),
		service.QueryWithAudit(a.audit),
		service.QueryWithMetrics(m),
	)
	return a, nil
}

func (a *app) close() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close vector index")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.audit.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close audit log")
	}
}

func initPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info().Msg("postgres connection established with pgvector support")
	return pool, nil
}
