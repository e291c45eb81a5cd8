package middleware

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request, continuing any W3C trace
// context sent by the caller.
func Tracing(service string) echo.MiddlewareFunc {
	tracer := otel.Tracer(service)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			name := req.Method + " " + c.Path()
			ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			c.SetRequest(req.WithContext(ctx))
			err := next(c)
			status := c.Response().Status
			span.SetAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.route", c.Path()),
				attribute.Int("http.status_code", status),
			)
			if err != nil || status >= 500 {
				span.SetStatus(codes.Error, "request failed")
			}
			return err
		}
	}
}
