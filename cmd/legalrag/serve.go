package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legalrag-backend/handlers"
	"legalrag-backend/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()
			return runServer(ctx, a)
		},
	}
}

func runServer(ctx context.Context, a *app) error {
	cfg := a.cfg

	if cfg.Indexing.IndexOnStartup {
		if _, err := a.runner.Start(ctx, "startup"); err != nil {
			log.Error().Err(err).Msg("failed to start startup index run")
		}
	}

	var cron *scheduler.CronScheduler
	if cfg.Indexing.Schedule != "" {
		cron = scheduler.NewCronScheduler()
		job := scheduler.JobFunc{
			JobName: "reindex-legal-sources",
			Fn: func(ctx context.Context) error {
				_, err := a.runner.RunSync(ctx, "schedule")
				return err
			},
		}
		if err := cron.AddJob(job, cfg.Indexing.Schedule); err != nil {
			return err
		}
		cron.Start(ctx)
		defer cron.Stop()
		if next, ok := cron.Next(job.Name()); ok {
			log.Info().Str("job", job.Name()).Time("next_run", next).Msg("next catalog re-index")
		}
	}

	handler := handlers.NewLegalHandler(a.engine, a.indexer, a.runner, a.oracle, a.snapshots)
	router := handlers.NewRouter(handler, handlers.RouterConfig{
		AdminTokenHash: cfg.Admin.TokenHash,
		Metrics:        promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
	})
	if cfg.Admin.TokenHash == "" {
		log.Info().Msg("admin endpoints disabled: no admin token hash configured")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
