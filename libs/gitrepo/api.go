package gitrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gomantics/reposample/domains/records"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

const (
	acceptJSON = "application/vnd.github+json"
	acceptRaw  = "application/vnd.github.raw"
	apiVersion = "2022-11-28"
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Status)
}

// APIClient lists trees and downloads blobs through the GitHub REST API
type APIClient struct {
	l       *zap.Logger
	client  *http.Client
	baseURL string
	token   string
}

// NewAPIClient creates a client. An empty baseURL selects DefaultAPIURL and a
// nil client a default one with a request timeout.
func NewAPIClient(l *zap.Logger, baseURL, token string, client *http.Client) *APIClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &APIClient{
		l:       l,
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
	}
}

// FetchTree returns the recursive tree of repo at revision.
func (c *APIClient) FetchTree(ctx context.Context, repo Repository, revision string) (*records.Tree, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.baseURL,
		url.PathEscape(repo.Owner),
		url.PathEscape(repo.Name),
		url.PathEscape(revision),
	)

	body, err := c.request(ctx, u, acceptJSON)
	if err != nil {
		return nil, err
	}

	var tree records.Tree
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode tree of %s: %w", repo, err)
	}
	if err := validateTree(&tree); err != nil {
		return nil, fmt.Errorf("invalid tree of %s: %w", repo, err)
	}

	c.l.Debug("fetched tree",
		zap.Stringer("repository", repo),
		zap.String("sha", tree.SHA),
		zap.Int("entries", len(tree.Entries)),
	)
	return &tree, nil
}

// Download fetches the raw content behind a blob URL.
func (c *APIClient) Download(ctx context.Context, locator string) ([]byte, error) {
	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		return nil, fmt.Errorf("unsupported content locator %q", locator)
	}
	return c.request(ctx, locator, acceptRaw)
}

func (c *APIClient) request(ctx context.Context, u, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u, err)
	}
	return body, nil
}

func validateTree(t *records.Tree) error {
	for i, e := range t.Entries {
		if e.Path == "" || e.SHA == "" {
			return fmt.Errorf("entry %d: missing path or sha", i)
		}
		switch e.Type {
		case records.TypeBlob, records.TypeTree, records.TypeCommit:
		default:
			return fmt.Errorf("entry %s: unknown type %q", e.Path, e.Type)
		}
	}
	return nil
}
