package records

import (
	"errors"

	"github.com/gomantics/reposample/libs/lang"
)

var ErrNotFound = errors.New("record not found")

// Status filters records by outcome
type Status string

const (
	StatusAny   Status = ""
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// IsValid returns true if the status is one of the known values
func (s Status) IsValid() bool {
	switch s {
	case StatusAny, StatusOK, StatusError:
		return true
	}
	return false
}

// Query selects a page of records ordered by content hash
type Query struct {
	Language lang.Language // empty matches every language
	Status   Status
	Page     int // 1-based
	Limit    int
}

// Find returns the requested page and the number of records matching the
// filters across all pages.
func (db Database) Find(q Query) ([]Record, int) {
	var matched []Record
	for _, sha := range db.Hashes() {
		r := db[sha]
		if q.Language != "" && r.Language != q.Language {
			continue
		}
		if (q.Status == StatusOK && !r.OK()) || (q.Status == StatusError && r.OK()) {
			continue
		}
		matched = append(matched, r)
	}

	total := len(matched)
	if q.Limit <= 0 {
		return matched, total
	}

	start := max(q.Page-1, 0) * q.Limit
	if start >= total {
		return []Record{}, total
	}
	return matched[start:min(start+q.Limit, total)], total
}

// Get returns the record for a content hash
func (db Database) Get(sha string) (Record, error) {
	r, ok := db[sha]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Summary counts records per language and outcome
type Summary struct {
	Total      int                   `json:"total"`
	Downloaded int                   `json:"downloaded"`
	Failed     int                   `json:"failed"`
	Languages  map[lang.Language]int `json:"languages"`
}

// Summarize computes a Summary over the whole database
func (db Database) Summarize() Summary {
	s := Summary{Languages: make(map[lang.Language]int)}
	for _, r := range db {
		s.Total++
		if r.OK() {
			s.Downloaded++
		} else {
			s.Failed++
		}
		s.Languages[r.Language]++
	}
	return s
}
