package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/j4b6ski/oioioi/internal/types"
)

var (
	InternalServerError = echo.NewHTTPError(
		http.StatusInternalServerError,
		types.StringError("something went wrong"),
	)
	NotFoundError = echo.NewHTTPError(http.StatusNotFound, types.StringError("not found"))
	// Never says which rule refused the request
	NotPermittedError = echo.NewHTTPError(http.StatusForbidden, types.NotPermittedError())
	UnauthorizedError = echo.NewHTTPError(
		http.StatusUnauthorized,
		types.StringError("Unauthorized"),
	)
)
