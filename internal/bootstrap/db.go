package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vulcano-studio/vulcano-backend/config"
	"github.com/vulcano-studio/vulcano-backend/internal/storage/postgres"
)

func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pool, err := postgres.OpenPool(ctx, postgres.PoolOptions{
		DSN:      cfg.DSN,
		MaxConns: cfg.MaxConns,
		MinConns: cfg.MinConns,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("database connected (max_conns=%d)", cfg.MaxConns)
	return pool, nil
}

// Migrate applies the embedded migrations over a short-lived database/sql
// connection.
func Migrate(ctx context.Context, dsn string) error {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	applied, err := m.Run(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if len(applied) == 0 {
		log.Println("migrations: schema up to date")
	}
	for _, name := range applied {
		log.Printf("migrations: applied %s", name)
	}
	return nil
}

// OpenRedis returns a client even when the server is unreachable: every
// cached value has a database fallback, so the API starts degraded.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		log.Printf("Warning: redis at %s unreachable, running without cache: %v", cfg.Addr, err)
	} else {
		log.Printf("redis connected at %s", cfg.Addr)
	}
	return rdb
}
