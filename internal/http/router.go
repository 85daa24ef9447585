package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/foodlink/userhub/internal/auth"
	"github.com/foodlink/userhub/internal/cache"
	"github.com/foodlink/userhub/internal/config"
	"github.com/foodlink/userhub/internal/http/handlers"
	"github.com/foodlink/userhub/internal/http/middlewares"
	"github.com/foodlink/userhub/internal/observability"
	"github.com/foodlink/userhub/internal/repo/postgres"
	"github.com/foodlink/userhub/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, images storage.ImageStore, listCache cache.Store, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	slog.SetDefault(log)

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(8 << 20)) // registration carries an image
	r.Use(otelgin.Middleware("userhub"))

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	r.Use(prom.GinHandleMiddleware())

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
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// uploaded profile images are served straight off disk
	r.Static("/uploads", cfg.UploadDir)

	r.GET("/", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "Welcome to the Food Donation Home Page!")
	})

	// wire up the user service
	usersRepo := postgres.NewUsersRepo(pool, prom)
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL())
	usersHandler := handlers.NewUsersHandler(usersRepo, images, jwtManager, listCache, prom, cfg.Env)
	session := middlewares.NewSessionMiddleware(jwtManager)

	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)

	users := r.Group("/user")
	{
		users.GET("/", usersHandler.Greeting)
		users.POST("/registeruser", usersHandler.Register)
		users.POST("/login",
			loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP),
			middlewares.RequireJSON(),
			usersHandler.Login,
		)
		users.GET("/me", session.RequireSession(), usersHandler.Me)
		users.GET("/profile/:id", usersHandler.Profile)
		users.GET("/getallusers", usersHandler.ListAll)
		users.GET("/filterbyname/:name", usersHandler.FilterByName)
		users.PATCH("/update/:id", middlewares.RequireJSON(), usersHandler.Update)
		users.DELETE("/delete/:id", usersHandler.Delete)
	}

	return r
}
