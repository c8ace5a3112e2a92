package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storehouse/internal/model"
)

const (
	// userKey holds the authenticated *model.User.
	userKey    = "user"
	// subjectKey holds the verified token subject set by TokenSubject.
	subjectKey = "token_subject"
)

// CurrentUser returns the user resolved by TokenRequired, or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}

// userID returns the caller's public id for log and rate-limit keys, or
// "anon" when the request carries no valid token.
func userID(c echo.Context) string {
	if u := CurrentUser(c); u != nil && u.PublicID != "" {
		return u.PublicID
	}
	if sub, ok := c.Get(subjectKey).(string); ok && sub != "" {
		return sub
	}
	return "anon"
}
