package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vulcano-studio/vulcano-backend/config"
	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/bootstrap"
	"github.com/vulcano-studio/vulcano-backend/internal/logging"
	"github.com/vulcano-studio/vulcano-backend/internal/storage/files"
)

const usage = "usage: manage <migrate|verify-roles|clear-cache>"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	switch os.Args[1] {
	case "migrate":
		err = bootstrap.Migrate(ctx, cfg.Database.DSN)
	case "verify-roles":
		err = runVerifyRoles(ctx, cfg)
	case "clear-cache":
		err = runClearCache(ctx, cfg)
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*bootstrap.App, func(), error) {
	pool, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	rdb := bootstrap.OpenRedis(ctx, cfg.Redis)
	app := bootstrap.NewApp(pool, rdb, files.NewMemoryStore(), cfg.RateLimit, logging.New(cfg.App.LogLevel))
	return app, func() {
		_ = rdb.Close()
		pool.Close()
	}, nil
}

func runVerifyRoles(ctx context.Context, cfg *config.Config) error {
	app, closeFn, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	rep, err := app.Users.VerifyRoles(ctx)
	if err != nil {
		return err
	}

	for _, role := range access.AllRoles() {
		accs := rep.ByRole[role]
		log.Printf("%s (%d)", role, len(accs))
		for _, a := range accs {
			log.Printf("  %-24s %s", a.Username, a.Email)
		}
	}
	for _, u := range rep.Repaired {
		log.Printf("created missing profile for %s", u.Username)
	}
	log.Printf("profiles: %d total, %d repaired", rep.Counts.Total(), len(rep.Repaired))
	return nil
}

func runClearCache(ctx context.Context, cfg *config.Config) error {
	app, closeFn, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := app.Stats.Flush(ctx)
	if err != nil {
		return err
	}
	log.Printf("cleared %d cached entries", n)
	return nil
}
