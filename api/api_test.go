package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/api"
	"github.com/gomantics/reposample/config"
	"github.com/gomantics/reposample/db"
	"github.com/gomantics/reposample/domains/records"
	"github.com/gomantics/reposample/libs/lang"
)

type brokenStore struct{}

func (brokenStore) Load(context.Context) (records.Database, error) {
	return nil, errors.New("disk on fire")
}

func (brokenStore) Save(context.Context, records.Database) error { return nil }
func (brokenStore) Close() error                                 { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Env: "prod",
		Server: config.ServerConfig{
			Port:               8080,
			CorsAllowedOrigins: []string{"*"},
		},
	}
}

func entry(sha, path string) records.Entry {
	size := int64(1000)
	return records.Entry{Path: path, Mode: "100644", Type: records.TypeBlob, SHA: sha, Size: &size}
}

func seededStore(t *testing.T) db.Store {
	t.Helper()

	store := db.NewJSONStore(zap.NewNop(), afero.NewMemMapFs(), "reposample.json")
	require.NoError(t, store.Save(context.Background(), records.Database{
		"a1": records.NewSaved(entry("a1", "src/a.cc"), lang.CPP, "out/cpp/a1.cc"),
		"b2": records.NewFailed(entry("b2", "src/b.cc"), lang.CPP, errors.New("failed to fetch b2: Not Found")),
		"c3": records.NewSaved(entry("c3", "src/C.java"), lang.Java, "out/java/c3.java"),
		"d4": records.NewSaved(entry("d4", "README"), lang.Unknown, "out/unknown/d4"),
	}))
	return store
}

func get(t *testing.T, store db.Store, target string) *httptest.ResponseRecorder {
	t.Helper()

	e := api.New(zap.NewNop(), testConfig(), store)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type listResponse struct {
	Records []map[string]any `json:"records"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := get(t, seededStore(t), "/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.EqualValues(t, 4, body["records"])
}

func TestHealth_BrokenStore(t *testing.T) {
	t.Parallel()

	rec := get(t, brokenStore{}, "/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "error: disk on fire", body["database"])
}

func TestListRecords(t *testing.T) {
	t.Parallel()

	store := seededStore(t)

	tests := []struct {
		name      string
		target    string
		wantSHAs  []string
		wantTotal int
		wantPage  int
		wantLimit int
	}{
		{name: "defaults", target: "/v1/records", wantSHAs: []string{"a1", "b2", "c3", "d4"}, wantTotal: 4, wantPage: 1, wantLimit: 20},
		{name: "language", target: "/v1/records?language=cpp", wantSHAs: []string{"a1", "b2"}, wantTotal: 2, wantPage: 1, wantLimit: 20},
		{name: "unknown language", target: "/v1/records?language=unknown", wantSHAs: []string{"d4"}, wantTotal: 1, wantPage: 1, wantLimit: 20},
		{name: "all languages", target: "/v1/records?language=all&status=error", wantSHAs: []string{"b2"}, wantTotal: 1, wantPage: 1, wantLimit: 20},
		{name: "status ok", target: "/v1/records?status=ok", wantSHAs: []string{"a1", "c3", "d4"}, wantTotal: 3, wantPage: 1, wantLimit: 20},
		{name: "paged", target: "/v1/records?page=2&limit=3", wantSHAs: []string{"d4"}, wantTotal: 4, wantPage: 2, wantLimit: 3},
		{name: "bad paging falls back", target: "/v1/records?page=-1&limit=500", wantSHAs: []string{"a1", "b2", "c3", "d4"}, wantTotal: 4, wantPage: 1, wantLimit: 20},
		{name: "past the end", target: "/v1/records?page=9&limit=2", wantSHAs: []string{}, wantTotal: 4, wantPage: 9, wantLimit: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := get(t, store, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)

			body := decode[listResponse](t, rec)
			shas := []string{}
			for _, r := range body.Records {
				shas = append(shas, r["sha"].(string))
			}
			assert.Equal(t, tt.wantSHAs, shas)
			assert.Equal(t, tt.wantTotal, body.Total)
			assert.Equal(t, tt.wantPage, body.Page)
			assert.Equal(t, tt.wantLimit, body.Limit)
		})
	}
}

func TestListRecords_BadRequest(t *testing.T) {
	t.Parallel()

	store := seededStore(t)

	for _, target := range []string{"/v1/records?status=pending", "/v1/records?language=cobol"} {
		rec := get(t, store, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, decode[map[string]string](t, rec), "error")
	}
}

func TestListRecords_BrokenStore(t *testing.T) {
	t.Parallel()

	rec := get(t, brokenStore{}, "/v1/records")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": "failed to list records"}, decode[map[string]string](t, rec))
}

func TestGetRecord(t *testing.T) {
	t.Parallel()

	store := seededStore(t)

	rec := get(t, store, "/v1/records/a1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "src/a.cc", body["path"])
	assert.Equal(t, "out/cpp/a1.cc", body["destination"])
	assert.Equal(t, "cpp", body["language"])
	assert.NotContains(t, body, "error")

	rec = get(t, store, "/v1/records/b2")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[map[string]any](t, rec)
	assert.Equal(t, "failed to fetch b2: Not Found", body["error"])
	assert.NotContains(t, body, "destination")

	rec = get(t, store, "/v1/records/zz")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	rec := get(t, seededStore(t), "/v1/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[records.Summary](t, rec)
	assert.Equal(t, records.Summary{
		Total:      4,
		Downloaded: 3,
		Failed:     1,
		Languages:  map[lang.Language]int{lang.CPP: 2, lang.Java: 1, lang.Unknown: 1},
	}, body)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	rec := get(t, seededStore(t), "/v1/summary")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
