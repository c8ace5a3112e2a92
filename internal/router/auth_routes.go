package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storehouse/internal/handler"
	"github.com/iliyamo/storehouse/internal/middleware"
)

// RegisterAuth registers sign-up and login (public) and /users/me, which
// sits behind the token check.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth echo.MiddlewareFunc) {
	e.POST("/users/signup", a.Signup)
	e.POST("/users/login", a.Login)
	e.GET("/users/me", middleware.WithUser(a.Me), auth)
}
