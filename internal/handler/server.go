package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/haatos/simple-build/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func NewServer(
	builds service.BuildServicer,
	queue RunQueuer,
	apiKeys service.APIKeyServicer,
	logger logrus.FieldLogger,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Use(
		middleware.Recover(),
		RequestLogger(logger),
		middleware.RateLimiterWithConfig(RateLimiterConfig(10, 30)),
	)
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	api := e.Group("/api", TriggerKey(apiKeys))
	SetupRunRoutes(api, builds, queue)
	return e
}

// GracefulShutdown serves until ctx is done, then gives in-flight requests
// ten seconds to finish.
func GracefulShutdown(ctx context.Context, e *echo.Echo, port string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
