package records

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gomantics/reposample/api/web"
	"github.com/gomantics/reposample/domains/records"
	"github.com/gomantics/reposample/libs/lang"
)

// ListResponse is the response for listing records
type ListResponse struct {
	Records []records.Record `json:"records"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}

// List handles GET /v1/records
func List(c web.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := records.Query{
		Status: records.Status(c.QueryParam("status")),
		Page:   page,
		Limit:  limit,
	}
	if !q.Status.IsValid() {
		return c.BadRequest("status must be ok or error")
	}

	language, err := parseLanguage(c.QueryParam("language"))
	if err != nil {
		return c.BadRequest(err.Error())
	}
	q.Language = language

	database, err := c.Store.Load(ctx)
	if err != nil {
		c.L.Error("failed to load records", zap.Error(err))
		return c.InternalError("failed to list records")
	}

	result, total := database.Find(q)
	if result == nil {
		result = []records.Record{}
	}

	return c.OK(ListResponse{
		Records: result,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

// parseLanguage accepts any recorded language, unknown included. An empty
// value or "all" disables the filter.
func parseLanguage(s string) (lang.Language, error) {
	if s == "" {
		return "", nil
	}
	if l := lang.Language(strings.ToLower(s)); l == lang.Unknown {
		return l, nil
	}
	l, err := lang.Parse(s)
	if err != nil {
		return "", err
	}
	if l == lang.All {
		return "", nil
	}
	return l, nil
}
