package records

import (
	"go.uber.org/zap"

	"github.com/gomantics/reposample/api/web"
)

// Summary handles GET /v1/summary
func Summary(c web.Context) error {
	database, err := c.Store.Load(c.Request().Context())
	if err != nil {
		c.L.Error("failed to load records", zap.Error(err))
		return c.InternalError("failed to summarize records")
	}

	return c.OK(database.Summarize())
}
