// Package router builds the echo server: global middleware, the error
// handler and every route.
package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/tripmate/internal/config"
	"github.com/iliyamo/tripmate/internal/handler"
	"github.com/iliyamo/tripmate/internal/metrics"
	"github.com/iliyamo/tripmate/internal/middleware"
)

// Deps is everything the routes need.  Redis, DB and Metrics may be nil.
// A nil Tracer uses the global tracer provider.
type Deps struct {
	Config    config.Config
	Auth      *handler.AuthHandler
	Recommend *handler.RecommendHandler
	Tokens    middleware.TokenVerifier
	Users     middleware.UserLoader
	Redis     *redis.Client
	DB        handler.Pinger
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

// New returns a configured echo instance with all routes registered.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer("tripmate/http")
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(d.Logger)

	e.Use(echomw.Recover())
	e.Use(traceRequests(d.Tracer))
	e.Use(requestLogger(d.Logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{d.Config.HTTP.CORSOrigin},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(d.Config.HTTP.BodyLimit))
	if d.Config.HTTP.StaticDir != "" {
		e.Use(echomw.StaticWithConfig(echomw.StaticConfig{Root: d.Config.HTTP.StaticDir}))
	}

	authMW := middleware.Authenticate(d.Tokens, d.Users)
	RegisterRoutes(e, d.DB, d.Metrics, d.Config.MetricsEnabled)
	RegisterAuth(e, d.Auth, authMW)
	RegisterRecommend(e, d.Recommend, authMW, middleware.NewRedisCache(d.Config.Cache, d.Redis, d.Logger))
	return e
}

// RegisterRoutes registers the health probe and, when enabled, /metrics.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *metrics.Metrics, metricsEnabled bool) {
	e.GET("/healthz", handler.Health(db))
	if metricsEnabled && m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth mounts the account endpoints under /api/v1/users.  Logout,
// change-password and current-user require an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authMW echo.MiddlewareFunc) {
	g := e.Group("/api/v1/users")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh-token", a.RefreshToken)

	g.POST("/logout", a.Logout, authMW)
	g.POST("/change-password", a.ChangePassword, authMW)
	g.GET("/current-user", a.CurrentUser, authMW)
}

// RegisterRecommend mounts the recommendation endpoint.  The cache runs
// after authentication so anonymous callers never see cached answers.
func RegisterRecommend(e *echo.Echo, r *handler.RecommendHandler, authMW, cacheMW echo.MiddlewareFunc) {
	g := e.Group("/api/v1/Recommend")
	g.POST("/Destination", r.Destination, authMW, cacheMW)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.LogAttrs(c.Request().Context(), levelFor(v.Status), "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			)
			return nil
		},
	})
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
