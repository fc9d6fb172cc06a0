package records

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomantics/reposample/libs/lang"
)

func queryDatabase() Database {
	return Database{
		"shaa.cc":   NewSaved(entry("a.cc"), lang.CPP, "cpp/a"),
		"shab.cc":   NewFailed(entry("b.cc"), lang.CPP, errors.New("boom")),
		"shac.java": NewSaved(entry("c.java"), lang.Java, "java/c"),
		"shad.cc":   NewSaved(entry("d.cc"), lang.CPP, "cpp/d"),
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	db := queryDatabase()

	tests := []struct {
		name      string
		query     Query
		wantSHAs  []string
		wantTotal int
	}{
		{name: "all", query: Query{}, wantSHAs: []string{"shaa.cc", "shab.cc", "shac.java", "shad.cc"}, wantTotal: 4},
		{name: "language", query: Query{Language: lang.CPP}, wantSHAs: []string{"shaa.cc", "shab.cc", "shad.cc"}, wantTotal: 3},
		{name: "ok", query: Query{Status: StatusOK, Language: lang.CPP}, wantSHAs: []string{"shaa.cc", "shad.cc"}, wantTotal: 2},
		{name: "error", query: Query{Status: StatusError}, wantSHAs: []string{"shab.cc"}, wantTotal: 1},
		{name: "first page", query: Query{Page: 1, Limit: 3}, wantSHAs: []string{"shaa.cc", "shab.cc", "shac.java"}, wantTotal: 4},
		{name: "second page", query: Query{Page: 2, Limit: 3}, wantSHAs: []string{"shad.cc"}, wantTotal: 4},
		{name: "past the end", query: Query{Page: 5, Limit: 3}, wantSHAs: []string{}, wantTotal: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, total := db.Find(tt.query)
			shas := []string{}
			for _, r := range got {
				shas = append(shas, r.SHA)
			}
			assert.Equal(t, tt.wantSHAs, shas)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	db := queryDatabase()

	r, err := db.Get("shac.java")
	require.NoError(t, err)
	assert.Equal(t, lang.Java, r.Language)

	_, err = db.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := queryDatabase().Summarize()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Downloaded)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, map[lang.Language]int{lang.CPP: 3, lang.Java: 1}, s.Languages)
}

func TestStatus_IsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusAny.IsValid())
	assert.True(t, StatusOK.IsValid())
	assert.False(t, Status("pending").IsValid())
}
