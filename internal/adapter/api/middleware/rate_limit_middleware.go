package middleware

import (
	"fmt"
	"log"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"helphand/internal/infrastructure/ratelimit"
	"helphand/pkg/errors"
	"helphand/pkg/response"
)

// RateLimit throttles action per authenticated user, or per client IP on
// routes that run before authentication.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := c.Get("uid").(string)
			if !ok || key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, retryAfter := limiter.Allow(key, action)
			if !allowed {
				log.Printf("RATE LIMIT: %s blocked on %s (retry in %v)", key, action, retryAfter)
				seconds := int(math.Ceil(retryAfter.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return response.Error(c, errors.TooManyRequests(
					fmt.Sprintf("Too many requests, try again in %d seconds", seconds)))
			}

			return next(c)
		}
	}
}
