package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/roadwatch/internal/config"
	"github.com/geocoder89/roadwatch/internal/db"
	httpx "github.com/geocoder89/roadwatch/internal/http"
	"github.com/geocoder89/roadwatch/internal/observability"
	"github.com/geocoder89/roadwatch/internal/redisclient"
	"github.com/geocoder89/roadwatch/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	startCtx, cancelStart := config.WithTimeout(30 * time.Second)
	defer cancelStart()

	shutdownTracer, err := observability.InitTracer(startCtx, "roadwatch-api", cfg.OTelEndpoint, cfg.Env)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.ConnectWithRetry(startCtx, cfg.DBURL, 5, log)
	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	if err := db.EnsureSchema(startCtx, pool); err != nil {
		log.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	if err := db.EnsureSeedUsers(startCtx, pool, security.NewPasswords(cfg.BcryptCost), cfg.SeedUserPassword); err != nil {
		log.Error("seeding users failed", "err", err)
		os.Exit(1)
	}

	var rdb *redisclient.Client
	if cfg.RedisAddr != "" {
		rdb = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		// the limiter fails open, so an unreachable redis is not fatal
		if err := rdb.Ping(startCtx); err != nil {
			log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	router := httpx.NewRouter(log, httpx.Deps{
		Cfg:      cfg,
		Pool:     pool,
		Redis:    rdb,
		Prom:     prom,
		Gatherer: reg,
	})

	// server set up
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", srv.Addr, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		pool.Close()

		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Error("redis close failed", "err", err)
			}
		}

		if err := shutdownTracer(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
