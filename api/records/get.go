package records

import (
	"errors"

	"go.uber.org/zap"

	"github.com/gomantics/reposample/api/web"
	"github.com/gomantics/reposample/domains/records"
)

// Get handles GET /v1/records/:sha
func Get(c web.Context) error {
	ctx := c.Request().Context()

	sha := c.Param("sha")
	if sha == "" {
		return c.BadRequest("sha is required")
	}

	database, err := c.Store.Load(ctx)
	if err != nil {
		c.L.Error("failed to load records", zap.Error(err))
		return c.InternalError("failed to get record")
	}

	record, err := database.Get(sha)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return c.NotFound("record not found")
		}
		c.L.Error("failed to get record", zap.Error(err), zap.String("sha", sha))
		return c.InternalError("failed to get record")
	}

	return c.OK(record)
}
