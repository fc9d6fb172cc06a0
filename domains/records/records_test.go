package records

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomantics/reposample/libs/lang"
)

func entry(path string) Entry {
	size := int64(100)
	return Entry{
		Path: path,
		Mode: "100644",
		Type: TypeBlob,
		Size: &size,
		SHA:  "sha" + path,
		URL:  "http://example.com/" + path,
	}
}

func TestMerge_FreshWins(t *testing.T) {
	t.Parallel()

	old := Database{
		"shaa.cc": NewFailed(entry("a.cc"), lang.CPP, errors.New("timeout")),
		"shab.cc": NewSaved(entry("b.cc"), lang.CPP, "cpp/b"),
	}
	fresh := Database{
		"shaa.cc": NewSaved(entry("a.cc"), lang.CPP, "cpp/a"),
		"shac.cc": NewSaved(entry("c.cc"), lang.CPP, "cpp/c"),
	}

	merged := Merge(old, fresh)

	assert.Equal(t, []string{"shaa.cc", "shab.cc", "shac.cc"}, merged.Hashes())
	assert.Equal(t, Saved{Destination: "cpp/a"}, merged["shaa.cc"].Outcome)
	assert.True(t, merged["shab.cc"].OK())

	// inputs untouched
	assert.Len(t, old, 2)
	assert.Equal(t, Failed{Message: "timeout"}, old["shaa.cc"].Outcome)
}

func TestMerge_Empty(t *testing.T) {
	t.Parallel()

	merged := Merge(nil, nil)
	require.NotNil(t, merged)
	assert.Empty(t, merged)
	assert.False(t, merged.Has("x"))
}

func TestRecordJSON_FlatForm(t *testing.T) {
	t.Parallel()

	r := NewSaved(entry("f1.cc"), lang.CPP, "cpp/shaf1.cc")
	data, err := json.Marshal(r)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"path": "f1.cc",
		"mode": "100644",
		"type": "blob",
		"size": 100,
		"sha": "shaf1.cc",
		"url": "http://example.com/f1.cc",
		"destination": "cpp/shaf1.cc",
		"language": "cpp"
	}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}

func TestRecordJSON_Failed(t *testing.T) {
	t.Parallel()

	db := Database{"shaf2.cc": NewFailed(entry("f2.cc"), lang.CPP, errors.New("Failed to download file"))}
	data, err := json.Marshal(db)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"Failed to download file"`)
	assert.NotContains(t, string(data), "destination")

	var back Database
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Failed{Message: "Failed to download file"}, back["shaf2.cc"].Outcome)
	assert.False(t, back["shaf2.cc"].OK())
}

func TestRecordJSON_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"neither", `{"path":"a","type":"blob","sha":"x","language":"cpp"}`},
		{"both", `{"path":"a","type":"blob","sha":"x","destination":"d","error":"e","language":"cpp"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var r Record
			err := json.Unmarshal([]byte(tt.data), &r)
			require.ErrorIs(t, err, ErrInvalidRecord)
		})
	}

	_, err := json.Marshal(Record{Entry: entry("a")})
	require.ErrorIs(t, err, ErrInvalidRecord)
}

func TestEntryLocator(t *testing.T) {
	t.Parallel()

	e := entry("a.go")
	assert.Equal(t, "http://example.com/a.go", e.Locator())

	e.URL = ""
	assert.Equal(t, "shaa.go", e.Locator())
}
