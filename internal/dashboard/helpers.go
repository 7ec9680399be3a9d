package dashboard

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"student-analytics/internal/pipeline"
)

var (
	errNoRecords = errors.New("student data source unavailable")
	errNoTask    = errors.New("pipeline task unavailable")
)

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, errorResponse{Error: err.Error()})
}

func writeTaskError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrAlreadyRunning):
		return writeError(c, http.StatusConflict, err)
	default:
		return writeError(c, http.StatusInternalServerError, err)
	}
}
