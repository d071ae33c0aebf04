package api

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/papillon/aggregator/internal/api/handler"
	"github.com/papillon/aggregator/internal/api/middleware"
	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/service"
	mongodb "github.com/papillon/aggregator/internal/infrastructure/db/mongo"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, jwtSecret string, accounts *service.AccountService, dispatch *service.Dispatcher, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Dependencies ---
	authRepo := mongodb.NewAuthRepository(db)
	authService := service.NewAuthService(authRepo, jwtSecret, 24*time.Hour)
	authHandler := handler.NewAuthHandler(authService)
	accountHandler := handler.NewAccountHandler(accounts)
	canteenHandler := handler.NewCanteenHandler(dispatch)
	studyHandler := handler.NewStudyHandler(dispatch)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Authenticated API ---
	v1 := e.Group("/v1", middleware.Auth(jwtSecret))

	v1.POST("/accounts", accountHandler.Create)
	v1.GET("/accounts", accountHandler.List)
	v1.GET("/accounts/:id", accountHandler.Get)
	v1.POST("/accounts/:id/link", accountHandler.Link)
	v1.DELETE("/accounts/:id", accountHandler.Remove, middleware.RBAC(domain.RoleAdmin))

	// Aggregate canteen operations fan out over the linked external accounts
	// of the primary account in the path. BookDay targets the external
	// account directly.
	v1.GET("/accounts/:id/balances", canteenHandler.Balances)
	v1.GET("/accounts/:id/history", canteenHandler.History)
	v1.GET("/accounts/:id/qrcodes", canteenHandler.QRCodes)
	v1.GET("/accounts/:id/bookings", canteenHandler.Bookings)
	v1.POST("/accounts/:id/bookings/:dayID", canteenHandler.BookDay)

	v1.GET("/accounts/:id/homework", studyHandler.Homework)
	v1.POST("/accounts/:id/homework/toggle", studyHandler.ToggleHomework)
	v1.GET("/accounts/:id/news", studyHandler.News)
	v1.POST("/accounts/:id/news/acknowledge", studyHandler.AcknowledgeNews)
	v1.GET("/accounts/:id/menu", studyHandler.Menu)
	v1.GET("/accounts/:id/timetable", studyHandler.Timetable)
	v1.GET("/accounts/:id/grades", studyHandler.Grades)
	v1.GET("/accounts/:id/grades/averages", studyHandler.Averages)

	return e
}
