package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/cohorthub/internal/auth"
	"github.com/geocoder89/cohorthub/internal/config"
	"github.com/geocoder89/cohorthub/internal/db"
	httpx "github.com/geocoder89/cohorthub/internal/http"
	"github.com/geocoder89/cohorthub/internal/http/middlewares"
	"github.com/geocoder89/cohorthub/internal/notifications"
	"github.com/geocoder89/cohorthub/internal/observability"
	"github.com/geocoder89/cohorthub/internal/queue/redisclient"
	"github.com/geocoder89/cohorthub/internal/realtime"
	"github.com/geocoder89/cohorthub/internal/repo/postgres"
	"github.com/geocoder89/cohorthub/internal/session"
	"github.com/geocoder89/cohorthub/internal/supabase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	sessionTTL    = 5 * time.Minute
	sweepInterval = time.Minute
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: cfg.ServiceName,
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
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	seedCtx, cancelSeed := config.WithTimeout(5 * time.Second)
	if err := db.EnsureAdminUser(seedCtx, postgres.NewUsersRepo(pool, prom), cfg.AdminEmail, log); err != nil {
		log.Error("admin promotion failed", "err", err)
	}
	cancelSeed()

	hub := realtime.NewHub(prom)

	var (
		sessions *session.Cache
		notifier notifications.Notifier = hub
	)

	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancelPing := config.WithTimeout(2 * time.Second)
		if err := rdb.Ping(pingCtx); err != nil {
			log.Warn("redis unavailable, continuing degraded", "err", err)
		}
		cancelPing()

		sessions = session.NewCache(rdb.Raw(), sessionTTL)

		// messages go through redis so a socket on any instance receives them
		notifier = notifications.NewProtectedNotifier(notifications.NewRedisNotifier(rdb), notifications.ProtectedNotifierConfig{
			Name:             "redis",
			Timeout:          3 * time.Second,
			FailureThreshold: 3,
			Cooldown:         15 * time.Second,
			HalfOpenMaxCalls: 1,
		}, prom)

		go func() {
			if err := hub.Subscribe(ctx, rdb); err != nil && ctx.Err() == nil {
				log.Error("realtime subscription stopped", "err", err)
			}
		}()
	}

	supa := supabase.NewAuthClient(supabase.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseAnonKey})

	limiter := middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, prom)
	writeLimiter := middlewares.NewRateLimiter(cfg.RateLimitRPS/5, max(cfg.RateLimitBurst/4, 1), prom)

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Sweep()
				writeLimiter.Sweep()
			}
		}
	}()

	// set up routers with the log
	router := httpx.NewRouter(httpx.RouterDeps{
		Env:            cfg.Env,
		ServiceName:    cfg.ServiceName,
		Log:            log,
		Pool:           pool,
		Prom:           prom,
		Gatherer:       reg,
		Verifier:       auth.NewVerifier(cfg.SupabaseJWTSecret, supa),
		Sessions:       sessions,
		SignUp:         supa,
		Notifier:       notifier,
		Hub:            hub,
		Upgrader:       realtime.NewUpgrader(cfg.AllowedOrigins),
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        limiter,
		WriteLimiter:   writeLimiter,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctxTimeOut := 10 * time.Second

		ctx, cancel := config.WithTimeout(ctxTimeOut)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
