package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/j4b6ski/oioioi/cmd/server/internal/aggregate"
	"github.com/j4b6ski/oioioi/cmd/server/internal/contests"
	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
)

// Maps an engine error onto the response the API gives for it
func FromError(err error) *echo.HTTPError {
	var refused *aggregate.RejudgeRefusedError
	switch {
	case errors.Is(err, contests.ErrNotPermitted):
		return NotPermittedError
	case errors.Is(err, contests.ErrNotFound),
		errors.Is(err, aggregate.ErrSubmissionNotFound),
		errors.Is(err, aggregate.ErrReportNotFound):
		return NotFoundError
	case errors.Is(err, contests.ErrSubmissionsLimitExceeded):
		return echo.NewHTTPError(
			http.StatusConflict,
			types.StringError("submissions limit exceeded"),
		)
	case errors.As(err, &refused):
		body := types.Error{Message: refused.Error()}
		if len(refused.Missing) != 0 {
			fields := make(map[string]string, len(refused.Missing))
			for _, id := range refused.Missing {
				fields[id.String()] = "no active report"
			}
			body.Fields = &fields
		}
		return echo.NewHTTPError(http.StatusConflict, body)
	case errors.Is(err, aggregate.ErrInvalidKindTransition):
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.StringError("invalid submission kind transition"),
		)
	case errors.Is(err, models.ErrPolicyLocked):
		return echo.NewHTTPError(
			http.StatusConflict,
			types.StringError("contest policy is locked once submissions exist"),
		)
	case errors.Is(err, score.ErrInvalidScoreValue):
		return echo.NewHTTPError(
			http.StatusUnprocessableEntity,
			types.StringError("invalid score value"),
		)
	default:
		return InternalServerError
	}
}
