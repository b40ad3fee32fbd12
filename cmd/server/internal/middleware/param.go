package middleware

import (
	"errors"
	"reflect"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/cmd/server/internal/response"
)

// Malformed ids are reported the same way as unknown ones
func idParam(c echo.Context, span trace.Span, paramName string) (uuid.UUID, error) {
	rawID := c.Param(paramName)

	span.SetAttributes(
		attribute.String("id.raw", rawID),
	)

	span.AddEvent("parsing rawID into uuid")
	id, err := uuid.Parse(rawID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse rawID into a UUID")
		return uuid.Nil, response.NotFoundError
	}

	span.SetAttributes(
		attribute.String("id.parsed", id.String()),
	)
	return id, nil
}

// Parses the uuid in `paramName` and stores it as `contextName`
func ParseIDParam(paramName string, contextName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, span := tracer.Start(c.Request().Context(), "ParseIDParam", trace.WithAttributes(
				attribute.String("paramName", paramName),
				attribute.String("contextName", contextName),
			))
			defer span.End()

			id, err := idParam(c, span, paramName)
			if err != nil {
				return err
			}

			c.Set(contextName, id)

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "parsed id")
			return next(c)
		}
	}
}

// Retrieves object from the db based on the id in the `paramName`
func PopulateFromIDParam[T models.EngineModel](
	h *Handler,
	paramName string,
	contextName string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "PopulateFromIDParam", trace.WithAttributes(
				attribute.String("paramName", paramName),
				attribute.String("contextName", contextName),
				attribute.String("type", reflect.TypeOf((*T)(nil)).Elem().String()),
			))
			defer span.End()

			id, err := idParam(c, span, paramName)
			if err != nil {
				return err
			}

			span.AddEvent("fetching object by id")
			data, err := models.ByID[T](ctx, h.DB.WithContext(ctx), id)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to fetch object from db by id")

				if errors.Is(err, gorm.ErrRecordNotFound) {
					return response.NotFoundError
				}

				return response.InternalServerError
			}

			c.Set(contextName, data)

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "fetched object by id")
			return next(c)
		}
	}
}

// The id stored by ParseIDParam
func ContextID(c echo.Context, contextName string) (uuid.UUID, bool) {
	id, ok := c.Get(contextName).(uuid.UUID)
	return id, ok
}
