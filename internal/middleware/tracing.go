package middleware

import (
	"net/http"

	"github.com/osvaldoandrade/repozip/internal/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TracingMiddleware continues the caller's W3C trace context and wraps the
// handler chain in a server span.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := tracing.ExtractHeaders(c.Request.Context(), c.Request.Header)
		ctx, span := tracing.Start(ctx, "HTTP "+c.Request.Method+" "+c.Request.URL.Path,
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		if route := c.FullPath(); route != "" {
			span.SetName("HTTP " + c.Request.Method + " " + route)
			span.SetAttributes(attribute.String("http.route", route))
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		span.End()
	}
}
