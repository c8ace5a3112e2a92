package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storehouse/internal/metrics"
)

// Metrics records request count and latency per route template. Handler
// errors are rendered here so the recorded status is the one sent.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHTTPRequest(c.Request().Method, route, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
