package handler

import (
	"net/http"
	"time"

	"github.com/haatos/simple-build/internal"
	"github.com/haatos/simple-build/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const ctxAPIKeyID = "api_key_id"

// TriggerKey rejects requests without a valid trigger key header.
func TriggerKey(apiKeys service.APIKeyServicer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(internal.TriggerKeyHeader)
			if token == "" {
				return newError(nil, http.StatusUnauthorized, "missing "+internal.TriggerKeyHeader+" header")
			}
			key, err := apiKeys.VerifyAPIKey(c.Request().Context(), token)
			if err != nil {
				return newError(err, http.StatusUnauthorized, "invalid api key")
			}
			c.Set(ctxAPIKeyID, key.ID)
			return next(c)
		}
	}
}

func RateLimiterConfig(perSecond float64, burst int) middleware.RateLimiterConfig {
	return middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(perSecond),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return newError(err, http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return newError(nil, http.StatusTooManyRequests, "too many requests")
		},
	}
}

// RequestLogger logs one line per request through logrus.
func RequestLogger(logger logrus.FieldLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"method": v.Method,
				"uri":    v.URI,
				"status": v.Status,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request failed")
				return nil
			}
			entry.Info("request")
			return nil
		},
	})
}
