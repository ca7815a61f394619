package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/vulcano-studio/vulcano-backend/config"
	"github.com/vulcano-studio/vulcano-backend/internal/bootstrap"
	"github.com/vulcano-studio/vulcano-backend/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)
	logger := logging.New(cfg.App.LogLevel)

	pool, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := bootstrap.Migrate(ctx, cfg.Database.DSN); err != nil {
		log.Fatalf("%v", err)
	}

	rdb := bootstrap.OpenRedis(ctx, cfg.Redis)
	defer rdb.Close()

	verifier, err := bootstrap.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	store, mediaDir, err := bootstrap.NewFileStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	app := bootstrap.NewApp(pool, rdb, store, cfg.RateLimit, logger)

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		DB:             pool,
		Redis:          rdb,
		Verifier:       verifier,
		MediaDir:       mediaDir,
		App:            app,
	})

	sched, err := app.Scheduler(logger)
	if err != nil {
		log.Fatalf("cron: %v", err)
	}
	sched.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("%s %s listening on :%s (%s)", cfg.App.ServiceName, cfg.App.Version, cfg.Server.Port, cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("server stopped")
}
