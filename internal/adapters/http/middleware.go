package httpadapter

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/PabloGalante/psykologen/internal/observability"
)

// withRequestContext stores a request ID (taken from X-Request-ID or
// generated) in the request context and echoes it back.
func withRequestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		id := req.Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, id)

		ctx := observability.WithRequestID(req.Context(), id)
		if sid := c.Param("id"); sid != "" {
			ctx = observability.WithSessionID(ctx, sid)
		}
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

// withLogging logs every request.
func withLogging(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		observability.LoggerFromContext(req.Context()).Info("http request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", c.Response().Status),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}
}
