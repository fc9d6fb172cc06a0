package records

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/api/web"
	"github.com/gomantics/reposample/db"
)

func Configure(e *echo.Echo, l *zap.Logger, store db.Store) {
	e.GET("/v1/records", web.Wrap(List, l, store))
	e.GET("/v1/records/:sha", web.Wrap(Get, l, store))
	e.GET("/v1/summary", web.Wrap(Summary, l, store))
}
