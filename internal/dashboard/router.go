package dashboard

import (
	"time"

	"github.com/labstack/echo/v4"

	"student-analytics/internal/logging"
)

const readHeaderTimeout = 5 * time.Second

// NewRouter builds the echo instance serving the dashboard.
func NewRouter(api *API, loglevel string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = readHeaderTimeout
	e.Logger.SetPrefix("dashboard")
	logging.SetLevel(e.Logger, loglevel)
	e.Renderer = newRenderer()

	e.Use(logHandlerFunc)

	e.GET("/", api.HandleIndex)
	e.GET("/health", api.HandleHealth)
	e.GET("/api/summary", api.HandleSummary)
	e.GET("/api/export.xlsx", api.HandleExport)
	e.GET("/api/pipeline", api.HandlePipelineStatus)
	e.POST("/api/pipeline/run", api.HandlePipelineRun)

	return e
}

func logHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		meth := c.Request().Method
		path := c.Request().URL
		begin := time.Now()
		c.Logger().Debugf("< request %s %s", meth, path)

		err := next(c)

		c.Logger().Infof(
			"> response status = %d (for %s %s) in %v / error = %v",
			c.Response().Status, meth, path, time.Since(begin), err,
		)
		return err
	}
}
