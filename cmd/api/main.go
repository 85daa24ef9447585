package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodlink/userhub/internal/cache"
	"github.com/foodlink/userhub/internal/config"
	"github.com/foodlink/userhub/internal/db"
	httpx "github.com/foodlink/userhub/internal/http"
	"github.com/foodlink/userhub/internal/observability"
	"github.com/foodlink/userhub/internal/storage"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	// tracing is best effort, the service runs fine without a collector
	shutdownTracer, err := observability.InitTracer(context.Background(), "userhub", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracer init failed, continuing without tracing", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// open the store connection; everything downstream gets the handle
	// injected, there is no package-level connection state
	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	ctxSchema, cancelSchema := config.WithTimeout(10 * time.Second)

	err = db.EnsureSchema(ctxSchema, pool)

	cancelSchema()

	if err != nil {
		log.Error("schema bootstrap failed", "err", err)
		os.Exit(1)
	}

	// list cache: redis when configured, process memory otherwise
	var listCache cache.Store

	var redisCache *cache.Redis

	if cfg.RedisAddr != "" {
		redisCache = cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      30 * time.Second,
		})

		ctxPing, cancelPing := config.WithTimeout(2 * time.Second)

		err = redisCache.Ping(ctxPing)

		cancelPing()

		if err != nil {
			log.Warn("redis unreachable, falling back to memory cache", "err", err)
			_ = redisCache.Close()
			redisCache = nil
		}
	}

	if redisCache != nil {
		defer redisCache.Close()
		listCache = redisCache
	} else {
		listCache = cache.NewMemory(30 * time.Second)
	}

	images, err := storage.NewDiskStore(cfg.UploadDir)

	if err != nil {
		log.Error("upload dir setup failed", "err", err)
		os.Exit(1)
	}

	// set up routers with the wired dependencies
	router := httpx.NewRouter(log, pool, images, listCache, cfg)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
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

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}

		_ = shutdownTracer(ctx)
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
