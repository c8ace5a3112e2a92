package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storehouse/internal/logging"
	"github.com/iliyamo/storehouse/internal/metrics"
	"github.com/iliyamo/storehouse/internal/model"
	"github.com/iliyamo/storehouse/internal/repository"
	"github.com/iliyamo/storehouse/internal/utils"
)

// UserLookup resolves the public id carried in a token to a stored user.
type UserLookup interface {
	GetByPublicID(ctx context.Context, publicID string) (model.User, error)
}

// TokenRequired returns an Echo middleware that reads an access token from
// header, verifies it with secret and loads the user it names. A bare token
// and a "Bearer " prefixed one are both accepted. The resolved user is
// available to handlers through CurrentUser or WithUser.
func TokenRequired(secret, header string, users UserLookup) echo.MiddlewareFunc {
	if header == "" {
		header = echo.HeaderAuthorization
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c, header)
			if raw == "" {
				metrics.RecordAuthEvent("token", "missing")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is missing"})
			}

			publicID, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				metrics.RecordAuthEvent("token", "invalid")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is invalid"})
			}
			u, err := users.GetByPublicID(c.Request().Context(), publicID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					metrics.RecordAuthEvent("token", "invalid")
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is invalid"})
				}
				logging.Error().Err(err).Msg("resolve token subject")
				return err
			}
			metrics.RecordAuthEvent("token", "ok")
			c.Set(userKey, &u)
			return next(c)
		}
	}
}

// TokenSubject records the subject of a validly signed token so the rate
// limiter can key on it. It never rejects a request and does not touch the
// database; TokenRequired still decides access.
func TokenSubject(secret, header string) echo.MiddlewareFunc {
	if header == "" {
		header = echo.HeaderAuthorization
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearerToken(c, header); raw != "" {
				if sub, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set(subjectKey, sub)
				}
			}
			return next(c)
		}
	}
}

// bearerToken returns the token in header with an optional "Bearer "
// prefix removed. A bare "Bearer" counts as no token.
func bearerToken(c echo.Context, header string) string {
	raw := strings.TrimSpace(c.Request().Header.Get(header))
	if strings.EqualFold(raw, "bearer") {
		return ""
	}
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

// WithUser adapts a handler that needs the authenticated caller into an
// echo.HandlerFunc. It must run behind TokenRequired; without a resolved
// user it answers 401.
func WithUser(h func(echo.Context, *model.User) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := CurrentUser(c)
		if u == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is missing"})
		}
		return h(c, u)
	}
}
