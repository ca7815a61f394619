package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/vulcano-studio/vulcano-backend/internal/api/http"
	"github.com/vulcano-studio/vulcano-backend/internal/api/http/middleware"
	"github.com/vulcano-studio/vulcano-backend/internal/auth"
	"github.com/vulcano-studio/vulcano-backend/internal/dashboard"
	messaginghttp "github.com/vulcano-studio/vulcano-backend/internal/messaging/http"
	projectshttp "github.com/vulcano-studio/vulcano-backend/internal/projects/http"
	usershttp "github.com/vulcano-studio/vulcano-backend/internal/users/http"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string
	DB             *pgxpool.Pool
	Redis          *redis.Client
	Verifier       auth.TokenVerifier
	MediaDir       string
	App            *App
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	var db, cache httpapi.Pinger
	if dep.DB != nil {
		db = dep.DB
	}
	if dep.Redis != nil {
		cache = httpapi.RedisPinger{Client: dep.Redis}
	}
	httpapi.NewHealthHandler(dep.ServiceName, dep.Version, db, cache).RegisterRoutes(r)

	if dep.MediaDir != "" {
		r.Static(MediaPrefix, dep.MediaDir)
	}

	app := dep.App
	users := usershttp.New(app.Users, app.Guard)

	signup := r.Group("/api/v1", auth.Identify(dep.Verifier))
	users.RegisterSignup(signup)

	api := r.Group("/api/v1", auth.Authenticate(dep.Verifier, app.Users))
	users.Register(api)
	projectshttp.New(app.Projects, app.Guard).Register(api)
	messaginghttp.New(app.Messages, app.Guard).Register(api, app.Limiter.Middleware())
	dashboard.NewHandler(app.Dashboard, app.Guard, app.Files.URL).Register(api)

	return r
}
