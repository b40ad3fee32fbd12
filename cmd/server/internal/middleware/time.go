package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Context key the request time is stored under
const TimeKey = "time"

// Sets a fixed time as the authoritative time for a request being received.
// Every visibility decision made while serving the request uses this instant.
func Time(key string, now func() time.Time) echo.MiddlewareFunc {
	if now == nil {
		now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, span := tracer.Start(c.Request().Context(), "Time", trace.WithAttributes(
				attribute.String("key", key),
			))
			defer span.End()

			t := now()
			c.Set(key, t)

			span.AddEvent("set_time", trace.WithAttributes(
				attribute.String("time", t.String()),
			))

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "set time")
			return next(c)
		}
	}
}

// The authoritative request time set by Time
func RequestTime(c echo.Context, key string) (time.Time, bool) {
	t, ok := c.Get(key).(time.Time)
	return t, ok
}
