package gitrepo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// ErrInvalidRepository is returned for repository references that do not name
// an owner and a repository.
var ErrInvalidRepository = errors.New("repository must be in the format owner/repo")

// Repository identifies a hosted repository
type Repository struct {
	Owner string
	Name  string
}

// String returns the owner/name form
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// Provider defines the interface for git hosting services
type Provider interface {
	// Name returns the provider name (e.g., "github")
	Name() string

	// Parse extracts owner and repository name from a reference
	Parse(ref string) (Repository, error)

	// CloneURL returns the https clone URL of a repository
	CloneURL(repo Repository) string

	// Auth returns the authentication method for this provider (nil if no auth)
	Auth() transport.AuthMethod

	// MatchesURL returns true if the reference belongs to this provider
	MatchesURL(ref string) bool
}

// Registry holds registered providers and allows auto-detection
type Registry struct {
	providers []Provider
}

// NewRegistry creates a new provider registry. The first provider registered
// is the fallback for short owner/repo references.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Register adds a provider to the registry
func (r *Registry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

// Detect finds the appropriate provider for a given reference
func (r *Registry) Detect(ref string) Provider {
	for _, p := range r.providers {
		if p.MatchesURL(ref) {
			return p
		}
	}
	if len(r.providers) > 0 && isShortRef(ref) {
		return r.providers[0]
	}
	return nil
}

// Get returns a provider by name
func (r *Registry) Get(name string) Provider {
	for _, p := range r.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Parse resolves a reference with the provider it belongs to.
func (r *Registry) Parse(ref string) (Repository, error) {
	p := r.Detect(ref)
	if p == nil {
		return Repository{}, fmt.Errorf("unsupported git provider for %q: %w", ref, ErrInvalidRepository)
	}
	return p.Parse(ref)
}

// DefaultRegistry knows GitHub without authentication.
var DefaultRegistry = NewRegistry(NewGitHubProvider(""))

// ParseRepository resolves a reference with the default registry.
func ParseRepository(ref string) (Repository, error) {
	return DefaultRegistry.Parse(ref)
}

// isShortRef reports whether ref has no scheme or host, as in "owner/repo".
func isShortRef(ref string) bool {
	return !strings.Contains(ref, "://") && !strings.Contains(ref, "@") &&
		strings.Count(strings.Trim(ref, "/"), "/") == 1
}
