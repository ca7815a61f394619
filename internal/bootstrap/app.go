package bootstrap

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vulcano-studio/vulcano-backend/config"
	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/api/http/middleware"
	"github.com/vulcano-studio/vulcano-backend/internal/dashboard"
	"github.com/vulcano-studio/vulcano-backend/internal/jobs"
	messagingrepo "github.com/vulcano-studio/vulcano-backend/internal/messaging/repository"
	messagingservice "github.com/vulcano-studio/vulcano-backend/internal/messaging/service"
	projectsrepo "github.com/vulcano-studio/vulcano-backend/internal/projects/repository"
	projectsservice "github.com/vulcano-studio/vulcano-backend/internal/projects/service"
	"github.com/vulcano-studio/vulcano-backend/internal/stats"
	"github.com/vulcano-studio/vulcano-backend/internal/storage/files"
	usersrepo "github.com/vulcano-studio/vulcano-backend/internal/users/repository"
	usersservice "github.com/vulcano-studio/vulcano-backend/internal/users/service"
)

// App holds the wired services shared by the API and the management
// commands.
type App struct {
	Guard     *access.Guard
	Stats     *stats.Cache
	Users     *usersservice.UserService
	Projects  *projectsservice.ProjectService
	Messages  *messagingservice.MessageService
	Dashboard *dashboard.Service
	Limiter   *middleware.RateLimiter
	Files     files.Store
}

func NewApp(pool *pgxpool.Pool, rdb *redis.Client, store files.Store, limits config.RateLimitConfig, logger *slog.Logger) *App {
	guard := access.NewGuard(logger)

	userRepo := usersrepo.NewUserRepository(pool)
	projectRepo := projectsrepo.NewProjectRepository(pool)
	messageRepo := messagingrepo.NewMessageRepository(pool)

	cache := stats.NewCache(rdb, stats.NewPostgresSource(pool), logger)

	return &App{
		Guard:     guard,
		Stats:     cache,
		Users:     usersservice.NewUserService(userRepo, store, cache, guard, logger),
		Projects:  projectsservice.NewProjectService(projectRepo, userRepo, projectsrepo.NewViewTracker(rdb), store, cache, guard, logger),
		Messages:  messagingservice.NewMessageService(messageRepo, userRepo, projectRepo, cache, guard, logger),
		Dashboard: dashboard.NewService(cache, projectRepo, userRepo, messageRepo, logger),
		Limiter:   middleware.NewRateLimiter(limits.MessagesPerMinute, limits.Burst),
		Files:     store,
	}
}

// Scheduler returns the cron jobs that keep the caches warm.
func (a *App) Scheduler(logger *slog.Logger) (*jobs.Scheduler, error) {
	s := jobs.NewScheduler(jobs.Deps{
		Categories: a.Stats,
		Stats:      a.Stats,
		Limiter:    a.Limiter,
	}, logger)
	if err := s.Register(); err != nil {
		return nil, err
	}
	return s, nil
}
