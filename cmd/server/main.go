package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on images without zoneinfo

	"github.com/eoivo/embala-fest-sub001/internal/config"
	"github.com/eoivo/embala-fest-sub001/internal/infra"
	"github.com/eoivo/embala-fest-sub001/internal/repository"
	"github.com/eoivo/embala-fest-sub001/internal/router"
	"github.com/eoivo/embala-fest-sub001/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in dev, JSON in prod
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Worker pool for async email delivery. Handlers are wired here
	// (composition root) so the pool has access to the SMTP mailer.
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	pool := worker.NewPool(rdb, cfg.WorkerPoolSize)
	pool.Handle(worker.QueueEmail, worker.JobTypeEmail, worker.NewEmailWorker(mailer))
	pool.Start(ctx)

	// Auto-close scheduler: one cron entry, persisted time wins over config.
	job := &worker.AutoCloseJob{
		Registers: repository.NewRegisterRepository(db),
		Users:     repository.NewUserRepository(db),
		ReportDir: cfg.ReportStoragePath,
		StoreName: cfg.StoreName,
	}
	if mailer.Configured() {
		job.Mail = dispatcher
	}
	scheduler := worker.NewAutoCloseScheduler(
		job,
		repository.NewSettingRepository(db),
		cfg.Location(),
		cfg.AutoCloseHour,
		cfg.AutoCloseMinute,
	)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start auto-close scheduler")
	}

	r := router.New(ctx, cfg, db, rdb, mailer, scheduler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("%s backend listening on :%d", cfg.StoreName, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	scheduler.Stop(shutdownCtx)
	cancel()
	pool.Wait()
	_ = rdb.Close()
	log.Info().Msg("server exited")
}
