package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/j4b6ski/oioioi/cmd/server/internal/contests"
	servermiddleware "github.com/j4b6ski/oioioi/cmd/server/internal/middleware"
	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/cmd/server/internal/ratelimit"
	"github.com/j4b6ski/oioioi/cmd/server/internal/response"
	"github.com/j4b6ski/oioioi/cmd/server/internal/srverr"
	"github.com/j4b6ski/oioioi/internal/config"
	"github.com/j4b6ski/oioioi/internal/logger"
)

const name = "github.com/j4b6ski/oioioi/cmd/server/internal/routes/v1"

var tracer = otel.Tracer(name)

type Handler struct {
	service *contests.Service
	config  *config.Config
	// nil when rate limiting is not configured
	redis *redis.Client
}

func NewRedisLimiter(
	rdb *redis.Client,
	limiterKey string,
	perMinute int64,
	failOpen bool,
	onlyMethod *string,
) middleware.RateLimiterConfig {
	store := ratelimit.NewRedisLimitStore(ratelimit.RedisLimiterConfig{
		PerMinute:   perMinute,
		RedisClient: rdb,
		LimiterKey:  limiterKey,
		FailOpen:    failOpen,
	})

	skipper := middleware.DefaultSkipper
	if onlyMethod != nil {
		skipper = func(c echo.Context) bool {
			return c.Request().Method != *onlyMethod
		}
	}

	return middleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if user := servermiddleware.CurrentUser(c); user != nil {
				return user.ID.String(), nil
			}
			return c.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, _ error) error {
			return context.JSON(http.StatusForbidden, nil)
		},
		DenyHandler: func(context echo.Context, _ string, _ error) error {
			return context.JSON(http.StatusTooManyRequests, nil)
		},
	}
}

func NewHandler(service *contests.Service, cfg *config.Config) Handler {
	h := Handler{service: service, config: cfg}
	if cfg.RateLimit != nil && (cfg.RateLimit.GlobalPerMinute > 0 || cfg.RateLimit.SubmitPerMinute > 0) {
		redisAddr := cfg.RateLimit.RedisHost + ":6379"
		logger.Logger.Debug("Setting up rate limiter with Redis", "redis", redisAddr)
		h.redis = redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
	}
	return h
}

func (h *Handler) AddRoutes(e *echo.Echo, middlewareHandler *servermiddleware.Handler) {
	l := logger.Logger

	v1Group := e.Group("/v1", middlewareHandler.OptionalBasicAuth())

	if h.redis != nil && h.config.RateLimit.GlobalPerMinute > 0 {
		v1Group.Use(
			middleware.RateLimiterWithConfig(
				NewRedisLimiter(
					h.redis,
					"global",
					h.config.RateLimit.GlobalPerMinute,
					h.config.RateLimit.FailOpen,
					nil,
				),
			),
		)
	} else {
		l.Warn("not configured to have a global rate limit")
	}

	contestGroup := v1Group.Group(
		"/contest/:contest_id",
		servermiddleware.ParseIDParam("contest_id", "contest_id"),
	)
	contestGroup.GET("/rounds/", h.Rounds)
	contestGroup.GET("/problems/", h.Problems)

	submitGroup := contestGroup.Group(
		"/problem/:problem_instance_id/submit",
		servermiddleware.HasPermissions(servermiddleware.UserKey, servermiddleware.Requirement{}),
		servermiddleware.ParseIDParam("problem_instance_id", "problem_instance_id"),
	)
	if h.redis != nil && h.config.RateLimit.SubmitPerMinute > 0 {
		post := http.MethodPost
		submitGroup.Use(
			middleware.RateLimiterWithConfig(
				NewRedisLimiter(
					h.redis,
					"submit",
					h.config.RateLimit.SubmitPerMinute,
					h.config.RateLimit.FailOpen,
					&post,
				),
			),
		)
	} else {
		l.Warn("not configured to have a submit rate limit")
	}
	submitGroup.POST("/", h.Submit)

	v1Group.GET(
		"/submission/:submission_id/reports/",
		h.Reports,
		servermiddleware.ParseIDParam("submission_id", "submission_id"),
	)
}

// Pulls what every handler needs off the echo context. `user` is nil for anonymous requests.
func requestState(c echo.Context, span trace.Span) (*models.User, time.Time, error) {
	requestTime, ok := servermiddleware.RequestTime(c, servermiddleware.TimeKey)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("time: %s", srverr.ErrTypeAssertMismatch))
		return nil, time.Time{}, response.InternalServerError
	}
	return servermiddleware.CurrentUser(c), requestTime, nil
}
