package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/cohorthub/internal/config"
	"github.com/geocoder89/cohorthub/internal/db"
	"github.com/geocoder89/cohorthub/internal/jobs"
	"github.com/geocoder89/cohorthub/internal/notifications"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/geocoder89/cohorthub/internal/queue/redisclient"
	"github.com/geocoder89/cohorthub/internal/queue/worker"
	"github.com/geocoder89/cohorthub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

// health port sits next to the API port
const healthPortOffset = 1

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "cohorthub-worker",
			Env:         cfg.Env,
			Endpoint:    cfg.OTLPEndpoint,
			SampleRatio: cfg.TraceSampleRatio,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				c, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(c)
			}()
		}
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	var notifier notifications.Notifier = notifications.NewLogNotifier(log)

	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		notifier = notifications.NewProtectedNotifier(notifications.NewRedisNotifier(rdb), notifications.ProtectedNotifierConfig{
			Name:             "redis",
			Timeout:          3 * time.Second,
			FailureThreshold: 3,
			Cooldown:         15 * time.Second,
			HalfOpenMaxCalls: 1,
		}, prom)
	}

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	processor := jobs.NewProcessor(
		postgres.NewAnnouncementsRepo(pool, prom),
		postgres.NewModerationRepo(pool, prom),
		postgres.NewUsersRepo(pool, prom),
		postgres.NewDeliveriesRepo(pool, prom),
		notifier,
		log,
	)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  time.Duration(cfg.WorkerPollMS) * time.Millisecond,
		WorkerID:      workerID,
		Concurrency:   cfg.WorkerConcurrency,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, processor, log, prom)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port+healthPortOffset),
		Handler:           w.HealthHandler(postgres.NewHealthRepo(pool, prom), reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", "err", err)
		}
	}()

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
