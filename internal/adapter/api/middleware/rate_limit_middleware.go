package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
	"soulcircle/pkg/response"
)

// IPRateLimit limits every client IP to rps requests per second with a
// burst of twice that.
func IPRateLimit(rps float64) echo.MiddlewareFunc {
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}

	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Path()
			return path == "/health" || path == "/metrics"
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return response.Error(c, errors.Forbidden("Unable to identify client", err))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.Warn("RATE LIMIT: blocked request from IP %s", identifier)
			return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
		},
	})
}
