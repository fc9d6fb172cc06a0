package gitrepo

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// GitHubProvider implements Provider for GitHub repositories
type GitHubProvider struct {
	token string // Personal Access Token
}

// NewGitHubProvider creates a new GitHub provider with optional token authentication
func NewGitHubProvider(token string) *GitHubProvider {
	return &GitHubProvider{token: token}
}

func (g *GitHubProvider) Name() string {
	return "github"
}

func (g *GitHubProvider) Parse(ref string) (Repository, error) {
	s := strings.TrimSpace(ref)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".git")
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "github.com/", "git@github.com:"} {
		s = strings.TrimPrefix(s, prefix)
	}

	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("%w: %q", ErrInvalidRepository, ref)
	}
	return Repository{Owner: owner, Name: name}, nil
}

func (g *GitHubProvider) CloneURL(repo Repository) string {
	return "https://github.com/" + repo.String() + ".git"
}

func (g *GitHubProvider) Auth() transport.AuthMethod {
	if g.token == "" {
		return nil
	}
	return &http.BasicAuth{
		Username: "git", // GitHub uses "git" as username for token auth
		Password: g.token,
	}
}

func (g *GitHubProvider) MatchesURL(ref string) bool {
	ref = strings.ToLower(ref)
	return strings.Contains(ref, "github.com/") ||
		strings.HasPrefix(ref, "git@github.com:")
}
