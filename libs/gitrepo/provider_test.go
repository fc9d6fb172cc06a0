package gitrepo

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepository(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref     string
		want    Repository
		wantErr bool
	}{
		{ref: "owner/repo", want: Repository{Owner: "owner", Name: "repo"}},
		{ref: "github.com/owner/repo", want: Repository{Owner: "owner", Name: "repo"}},
		{ref: "https://github.com/owner/repo.git", want: Repository{Owner: "owner", Name: "repo"}},
		{ref: "git@github.com:owner/repo.git", want: Repository{Owner: "owner", Name: "repo"}},
		{ref: "https://github.com/owner/repo/", want: Repository{Owner: "owner", Name: "repo"}},
		{ref: "repo", wantErr: true},
		{ref: "/repo", wantErr: true},
		{ref: "owner/", wantErr: true},
		{ref: "https://gitlab.com/owner/repo", wantErr: true},
		{ref: "https://github.com/owner/repo/tree/main", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			t.Parallel()

			got, err := ParseRepository(tt.ref)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRepository)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepository_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "owner/repo", Repository{Owner: "owner", Name: "repo"}.String())
}

func TestGitHubProvider(t *testing.T) {
	t.Parallel()

	anon := NewGitHubProvider("")
	assert.Equal(t, "github", anon.Name())
	assert.Nil(t, anon.Auth())
	assert.Equal(t, "https://github.com/owner/repo.git", anon.CloneURL(Repository{Owner: "owner", Name: "repo"}))

	auth, ok := NewGitHubProvider("secret").Auth().(*http.BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "git", auth.Username)
	assert.Equal(t, "secret", auth.Password)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	gh := NewGitHubProvider("")
	r := NewRegistry(gh)

	assert.Same(t, gh, r.Detect("https://github.com/a/b"))
	assert.Same(t, gh, r.Detect("a/b"))
	assert.Nil(t, r.Detect("https://gitlab.com/a/b"))
	assert.Same(t, gh, r.Get("github"))
	assert.Nil(t, r.Get("gitlab"))

	assert.Nil(t, NewRegistry().Detect("a/b"))
}
