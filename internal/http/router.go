package http

import (
	"log/slog"

	"github.com/geocoder89/roadwatch/internal/account"
	"github.com/geocoder89/roadwatch/internal/cache"
	"github.com/geocoder89/roadwatch/internal/config"
	"github.com/geocoder89/roadwatch/internal/http/handlers"
	"github.com/geocoder89/roadwatch/internal/http/middlewares"
	"github.com/geocoder89/roadwatch/internal/observability"
	"github.com/geocoder89/roadwatch/internal/redisclient"
	"github.com/geocoder89/roadwatch/internal/repo/postgres"
	"github.com/geocoder89/roadwatch/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 64 << 10

// Deps are the process-wide resources the router wires into handlers.
// Redis, Prom and Gatherer are optional.
type Deps struct {
	Cfg      config.Config
	Pool     *pgxpool.Pool
	Redis    *redisclient.Client
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(log *slog.Logger, deps Deps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(otelgin.Middleware("roadwatch-api"))
	r.Use(deps.Prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.CORSAllowedOrigins))

	// health
	pingers := map[string]handlers.Pinger{}
	if deps.Pool != nil {
		pingers["postgres"] = deps.Pool
	}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}

	h := handlers.NewHealthHandler(pingers)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)
	roadNetworkRepo := postgres.NewRoadNetworkRepo(deps.Pool, deps.Prom)

	accounts := account.NewService(usersRepo, security.NewPasswords(deps.Cfg.BcryptCost), log)

	usersHandler := handlers.NewUsersHandler(accounts, deps.Prom)
	var network handlers.RoadNetworkReader = roadNetworkRepo
	if deps.Cfg.RoadNetworkCacheTTL > 0 {
		network = cache.NewRoadNetwork(roadNetworkRepo, deps.Cfg.RoadNetworkCacheTTL)
	}
	roadNetworkHandler := handlers.NewRoadNetworkHandler(accounts, network, deps.Prom)

	// a shared window when redis is configured, per process otherwise
	var window middlewares.WindowStore
	if deps.Redis != nil {
		window = deps.Redis
	}
	limiter := middlewares.NewRateLimiter(window, deps.Cfg.RateLimitRequests, deps.Cfg.RateLimitWindow, deps.Prom, log)

	api := r.Group("/api")
	api.Use(limiter.RateLimiterMiddleware(middlewares.KeyByIP))
	api.Use(middlewares.RequireJSON())
	api.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	api.GET("", handlers.Banner)

	api.POST("/login", usersHandler.Login)
	api.POST("/register", usersHandler.Register)
	api.POST("/changePassword", usersHandler.ChangePassword)
	api.POST("/editUser", usersHandler.Edit)
	api.POST("/deleteUser", usersHandler.Delete)

	api.POST("/nodes", roadNetworkHandler.Nodes)
	api.POST("/edges", roadNetworkHandler.Edges)

	return r
}
