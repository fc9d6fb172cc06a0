package health

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/api/web"
	"github.com/gomantics/reposample/db"
)

// GetResponse is the health check response
type GetResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Records  int    `json:"records"`
}

func Configure(e *echo.Echo, l *zap.Logger, store db.Store) {
	e.GET("/v1/health", web.Wrap(Get, l, store))
}

// Get handles GET /v1/health
func Get(c web.Context) error {
	ctx := c.Request().Context()

	dbStatus := "ok"
	database, err := c.Store.Load(ctx)
	if err != nil {
		c.L.Warn("database check failed", zap.Error(err))
		dbStatus = "error: " + err.Error()
	}

	return c.OK(GetResponse{
		Status:   "ok",
		Database: dbStatus,
		Records:  len(database),
	})
}
