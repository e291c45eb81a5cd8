package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestLogger writes one structured line per request.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			traceID := ""
			if sc := trace.SpanFromContext(req.Context()).SpanContext(); sc.IsValid() {
				traceID = sc.TraceID().String()
			}
			fields := []zap.Field{
				zap.String("trace_id", traceID),
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				zap.Int("status", res.Status),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("query", req.URL.RawQuery),
				zap.String("ip", c.RealIP()),
				zap.Duration("latency", time.Since(start)),
				zap.String("user-agent", req.UserAgent()),
			}
			switch {
			case res.Status >= 500:
				logger.Error("HTTP Request", append(fields, zap.Error(err))...)
			case res.Status >= 400:
				logger.Warn("HTTP Request", fields...)
			default:
				logger.Info("HTTP Request", fields...)
			}
			return nil
		}
	}
}
