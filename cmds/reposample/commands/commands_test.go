package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/config"
	"github.com/gomantics/reposample/db"
	"github.com/gomantics/reposample/domains/records"
	"github.com/gomantics/reposample/libs/lang"
)

type fakeGitHub struct {
	*httptest.Server
	blobRequests atomic.Int32
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()

	contents := map[string]string{
		"a1": "int main() { return 0; }",
		"b2": "print('hello')",
	}

	f := &fakeGitHub{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		blob := func(path, sha string, size int64) map[string]any {
			return map[string]any{
				"path": path, "mode": "100644", "type": "blob", "sha": sha, "size": size,
				"url": base + "/blobs/" + sha,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sha":       "root",
			"truncated": false,
			"tree": []map[string]any{
				{"path": "src", "mode": "040000", "type": "tree", "sha": "d4"},
				blob("src/a.cc", "a1", 1000),
				blob("src/b.py", "b2", 1000),
				blob("docs/big.cc", "c3", 10000),
				blob("src/small.cc", "e5", 10),
				blob("src/Broken.java", "f6", 1000),
			},
		})
	})
	mux.HandleFunc("GET /blobs/{sha}", func(w http.ResponseWriter, r *http.Request) {
		f.blobRequests.Add(1)
		content, ok := contents[r.PathValue("sha")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(content))
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func loadDatabase(t *testing.T, path string) records.Database {
	t.Helper()

	database, err := db.NewJSONStore(zap.NewNop(), afero.NewOsFs(), path).Load(context.Background())
	require.NoError(t, err)
	return database
}

func TestDownload(t *testing.T) {
	gh := newFakeGitHub(t)
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	dbPath := filepath.Join(dir, "db.json")

	args := []string{
		"download", "octo/hello", outDir,
		"--revision", "main",
		"--api-url", gh.URL,
		"--database", dbPath,
		"--qps", "0",
		"--seed", "7",
	}

	out, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Statistics:")
	assert.Contains(t, out, "Processed 3 new files")

	content, err := os.ReadFile(filepath.Join(outDir, "cpp", "a1.cc"))
	require.NoError(t, err)
	assert.Equal(t, "int main() { return 0; }", string(content))
	_, err = os.Stat(filepath.Join(outDir, "python", "b2.py"))
	require.NoError(t, err)

	database := loadDatabase(t, dbPath)
	require.Len(t, database, 3)
	assert.True(t, database["a1"].OK())
	assert.True(t, database["b2"].OK())
	assert.Equal(t, lang.Java, database["f6"].Language)
	require.IsType(t, records.Failed{}, database["f6"].Outcome)
	assert.Contains(t, database["f6"].Outcome.(records.Failed).Message, "404 Not Found")
	assert.Equal(t, int32(3), gh.blobRequests.Load())

	// content recorded by the first run is never fetched again
	out, err = execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Processed 0 new files")
	assert.Equal(t, int32(3), gh.blobRequests.Load())
	assert.Len(t, loadDatabase(t, dbPath), 3)
}

func TestDownload_DryRun(t *testing.T) {
	gh := newFakeGitHub(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db.json")

	_, err := execute(t,
		"download", "octo/hello",
		"--revision", "main",
		"--api-url", gh.URL,
		"--database", dbPath,
		"--qps", "0",
		"--language", "cpp",
		"--dry-run",
	)
	require.NoError(t, err)

	assert.NoFileExists(t, dbPath)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int32(1), gh.blobRequests.Load())
}

func TestDownload_TreeFailure(t *testing.T) {
	gh := newFakeGitHub(t)
	dir := t.TempDir()

	out, err := execute(t,
		"download", "octo/missing", filepath.Join(dir, "out"),
		"--api-url", gh.URL,
		"--database", filepath.Join(dir, "db.json"),
		"--qps", "0",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404 Not Found")
	assert.Contains(t, out, "Finished with errors")
	assert.NoFileExists(t, filepath.Join(dir, "db.json"))
}

func TestDownload_ArgumentErrors(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db.json")

	_, err := execute(t, "download", "--database", dbPath)
	require.ErrorIs(t, err, ErrNoRepository)

	_, err = execute(t, "download", "octo/hello", "--database", dbPath)
	require.ErrorIs(t, err, ErrNoDirectory)

	_, err = execute(t, "download", "octo/hello", dir, "--database", dbPath, "--source", "ftp")
	require.ErrorIs(t, err, config.ErrInvalidSource)

	_, err = execute(t, "download", "a", "b", "c")
	require.Error(t, err)
}

func TestDownloadOptions(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Download: config.DownloadConfig{
		MinSize:     "1 kB",
		MaxSize:     "0",
		Languages:   []string{"cpp,java"},
		Include:     []string{"src"},
		Exclude:     []string{"src/gen"},
		MaxFiles:    25,
		BatchSize:   5,
		Concurrency: 2,
		Seed:        42,
	}}

	opts, err := downloadOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), opts.Criteria.MinSize)
	assert.Equal(t, int64(0), opts.Criteria.MaxSize)
	assert.Equal(t, lang.Set{lang.CPP, lang.Java}, opts.Criteria.Languages)
	assert.Equal(t, []string{"src"}, opts.Criteria.IncludeDirs)
	assert.Equal(t, []string{"src/gen"}, opts.Criteria.ExcludeDirs)
	assert.Equal(t, 25, opts.Criteria.MaxItems)
	assert.Equal(t, 5, opts.BatchSize)
	assert.Equal(t, 2, opts.Concurrency)
	assert.NotNil(t, opts.Source)
}

func TestProjects(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Download: config.DownloadConfig{Revision: "main"},
		Projects: []config.ProjectConfig{
			{Repository: "https://github.com/octo/hello", Files: map[string]int{"cpp": 3}},
			{Repository: "octo/world", Revision: "v1.0", Files: map[string]int{"java": 1}},
		},
	}

	ps, err := projects(cfg)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "octo/hello", ps[0].Repository.String())
	assert.Equal(t, "main", ps[0].Revision)
	assert.Equal(t, map[lang.Language]int{lang.CPP: 3}, ps[0].Quotas)
	assert.Equal(t, "v1.0", ps[1].Revision)

	cfg.Projects = []config.ProjectConfig{{Repository: "not a repo", Files: map[string]int{"cpp": 1}}}
	_, err = projects(cfg)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "reposample dev (commit: none, built: unknown)\n", out)
}
