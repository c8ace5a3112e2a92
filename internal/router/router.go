// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storehouse/internal/config"
	"github.com/iliyamo/storehouse/internal/handler"
	"github.com/iliyamo/storehouse/internal/logging"
	"github.com/iliyamo/storehouse/internal/middleware"
	"github.com/iliyamo/storehouse/internal/repository"
)

// Deps carries everything the routes need. Redis and Events may be nil.
type Deps struct {
	Cfg       config.Config
	DB        *sql.DB
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	Events    handler.EventSink
}

// New builds the Echo instance serving the whole API.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Metrics())
	e.Use(middleware.TokenSubject(d.Cfg.JWTSecret, d.Cfg.AuthHeader))
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis))

	RegisterRoutes(e, d.DB)

	users := repository.NewUserRepo(d.DB, d.Cfg.BcryptCost)
	auth := middleware.TokenRequired(d.Cfg.JWTSecret, d.Cfg.AuthHeader, users)
	RegisterAuth(e, handler.NewAuthHandler(d.Cfg, users, d.Events), auth)
	RegisterResources(e, d.DB, users, d.Events, auth)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// errorHandler renders every error as {"error": msg}. Client errors keep
// their message; anything else is logged and hidden behind a generic 500.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		logging.Error().Err(err).
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"error": msg})
	}
	if err != nil {
		logging.Error().Err(err).Msg("write error response")
	}
}
