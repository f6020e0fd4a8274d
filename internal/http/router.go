package http

import (
	"context"
	"time"

	"log/slog"

	"github.com/geocoder89/bloghub/internal/auth"
	"github.com/geocoder89/bloghub/internal/config"
	"github.com/geocoder89/bloghub/internal/domain/user"
	"github.com/geocoder89/bloghub/internal/http/handlers"
	"github.com/geocoder89/bloghub/internal/http/middlewares"
	"github.com/geocoder89/bloghub/internal/observability"
	"github.com/geocoder89/bloghub/internal/redisclient"
	"github.com/geocoder89/bloghub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB request bodies are plenty for a blog API

func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, registry *prometheus.Registry, redis *redisclient.Client) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	prom := observability.NewProm(registry)

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(prom.GinHandleMiddleware())
	r.Use(otelgin.Middleware("bloghub"))

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	postsRepo := postgres.NewPostsRepo(pool, prom)
	commentsRepo := postgres.NewCommentsRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL)
	authMW := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, log)
	postsHandler := handlers.NewPostsHandler(postsRepo, commentsRepo, log)
	commentsHandler := handlers.NewCommentsHandler(commentsRepo, postsRepo, log)
	usersHandler := handlers.NewUsersHandler(usersRepo, log)

	// credential endpoints get a brute-force limiter; redis when configured so
	// the window is shared across instances
	var loginLimiter gin.HandlerFunc

	if redis != nil {
		loginLimiter = middlewares.NewRedisRateLimiter(redis, cfg.AuthRateLimit, cfg.AuthRateWindow).Middleware(middlewares.KeyByIP)
	} else {
		loginLimiter = middlewares.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow).Middleware(middlewares.KeyByIP)
	}

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", loginLimiter, authHandler.Register)
		authGroup.POST("/login", loginLimiter, authHandler.Login)
		authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)
		authGroup.PUT("/me", authMW.RequireAuth(), authHandler.UpdateMe)
	}

	posts := api.Group("/posts")
	{
		posts.GET("", postsHandler.ListPosts)
		posts.GET("/:id", postsHandler.GetPost)

		posts.POST("", authMW.RequireAuth(), postsHandler.CreatePost)
		posts.PUT("/:id", authMW.RequireAuth(), postsHandler.UpdatePost)
		posts.DELETE("/:id", authMW.RequireAuth(), postsHandler.DeletePost)
		posts.PUT("/:id/like", authMW.RequireAuth(), postsHandler.LikePost)
		posts.PUT("/:id/unlike", authMW.RequireAuth(), postsHandler.UnlikePost)
	}

	comments := api.Group("/comments")
	{
		comments.GET("/post/:postId", commentsHandler.ListForPost)
		comments.POST("/post/:postId", authMW.RequireAuth(), commentsHandler.AddComment)
		comments.PUT("/:id", authMW.RequireAuth(), commentsHandler.UpdateComment)
		comments.DELETE("/:id", authMW.RequireAuth(), commentsHandler.DeleteComment)
	}

	users := api.Group("/users", authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
	{
		users.GET("", usersHandler.ListUsers)
		users.DELETE("/:id", usersHandler.DeleteUser)
	}

	return r
}
