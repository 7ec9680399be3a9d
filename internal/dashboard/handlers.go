package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"student-analytics/internal/report"
	"student-analytics/internal/students"
)

const (
	healthText   = "Student Performance Analytics is running"
	xlsxMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// HandleIndex renders the dashboard page. Data errors become a banner on
// an otherwise normal page.
func (a *API) HandleIndex(c echo.Context) error {
	var (
		records []students.Record
		err     error
	)
	if a.records == nil {
		err = errNoRecords
	} else {
		records, err = a.records.ReadRecords(c.Request().Context())
	}
	if err != nil {
		a.log.Errorf("dashboard: %v", err)
	}

	view := buildPage(records, err)
	if a.task != nil {
		status := a.task.Status()
		view.Pipeline = &status
	}
	return c.Render(http.StatusOK, pageTemplate, view)
}

func (a *API) HandleHealth(c echo.Context) error {
	return c.String(http.StatusOK, healthText)
}

func (a *API) HandleSummary(c echo.Context) error {
	if a.records == nil {
		return writeError(c, http.StatusServiceUnavailable, errNoRecords)
	}
	records, err := a.records.ReadRecords(c.Request().Context())
	if err != nil {
		a.log.Errorf("dashboard: %v", err)
		return writeError(c, http.StatusServiceUnavailable, err)
	}

	return c.JSON(http.StatusOK, summaryResponse{
		Summary:  students.Summarize(records),
		ByGender: students.CountByGender(records),
		ByAge:    students.AverageByAge(records),
	})
}

// HandleExport downloads the aggregates as an xlsx workbook.
func (a *API) HandleExport(c echo.Context) error {
	if a.records == nil {
		return writeError(c, http.StatusServiceUnavailable, errNoRecords)
	}
	records, err := a.records.ReadRecords(c.Request().Context())
	if err != nil {
		a.log.Errorf("dashboard: %v", err)
		return writeError(c, http.StatusServiceUnavailable, err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, xlsxMIMEType)
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+report.WorkbookFile+`"`)
	res.WriteHeader(http.StatusOK)
	return report.WriteWorkbook(res, students.CountByGender(records), students.AverageByAge(records))
}

func (a *API) HandlePipelineStatus(c echo.Context) error {
	if a.task == nil {
		return writeError(c, http.StatusServiceUnavailable, errNoTask)
	}
	return c.JSON(http.StatusOK, pipelineResponse{Status: a.task.Status()})
}

func (a *API) HandlePipelineRun(c echo.Context) error {
	if a.task == nil {
		return writeError(c, http.StatusServiceUnavailable, errNoTask)
	}
	if err := a.task.Start(a.runCtx, "api"); err != nil {
		return writeTaskError(c, err)
	}
	return c.JSON(http.StatusAccepted, pipelineResponse{Status: a.task.Status()})
}
