package records

import (
	"errors"

	"github.com/gomantics/reposample/libs/lang"
)

// EntryType is the kind of a tree node
type EntryType string

const (
	TypeBlob   EntryType = "blob"
	TypeTree   EntryType = "tree"
	TypeCommit EntryType = "commit"
)

// String returns the string representation of the entry type
func (t EntryType) String() string {
	return string(t)
}

var ErrInvalidRecord = errors.New("record must carry exactly one of destination or error")

// Entry is one node of a flattened repository tree
type Entry struct {
	Path string    `json:"path"`
	Mode string    `json:"mode"`
	Type EntryType `json:"type"`
	Size *int64    `json:"size,omitempty"`
	SHA  string    `json:"sha"`
	URL  string    `json:"url,omitempty"`
}

// Locator returns the identifier the content fetcher understands for this entry.
func (e Entry) Locator() string {
	if e.URL != "" {
		return e.URL
	}
	return e.SHA
}

// Tree is a flattened listing of a repository at one revision
type Tree struct {
	SHA       string  `json:"sha"`
	URL       string  `json:"url,omitempty"`
	Truncated bool    `json:"truncated"`
	Entries   []Entry `json:"tree"`
}

// Outcome is the result of processing an entry: Saved or Failed.
type Outcome interface {
	outcome()
}

// Saved means the content was written to Destination
type Saved struct {
	Destination string
}

// Failed means fetching or saving the content failed
type Failed struct {
	Message string
}

func (Saved) outcome()  {}
func (Failed) outcome() {}

// Record is the database row for one processed entry
type Record struct {
	Entry
	Language lang.Language
	Outcome  Outcome
}

// OK reports whether the record holds a successful download.
func (r Record) OK() bool {
	_, ok := r.Outcome.(Saved)
	return ok
}

// Database maps content hashes to records
type Database map[string]Record
