// Package records holds the tree entry and download record types and the
// hash-keyed database that prevents downloading the same content twice.
package records

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/gomantics/reposample/libs/lang"
)

// NewSaved creates a successful record
func NewSaved(e Entry, l lang.Language, destination string) Record {
	return Record{Entry: e, Language: l, Outcome: Saved{Destination: destination}}
}

// NewFailed creates a failed record
func NewFailed(e Entry, l lang.Language, err error) Record {
	return Record{Entry: e, Language: l, Outcome: Failed{Message: err.Error()}}
}

// Has reports whether the content hash was already processed.
func (db Database) Has(sha string) bool {
	_, ok := db[sha]
	return ok
}

// Hashes returns the keys in sorted order.
func (db Database) Hashes() []string {
	return slices.Sorted(maps.Keys(db))
}

// Merge combines a persisted database with freshly produced records.
// Fresh records win on conflicting hashes. Neither input is modified.
func Merge(old, fresh Database) Database {
	out := make(Database, len(old)+len(fresh))
	maps.Copy(out, old)
	maps.Copy(out, fresh)
	return out
}

// recordJSON is the flat on-disk form of a Record
type recordJSON struct {
	Entry
	Destination *string       `json:"destination,omitempty"`
	Error       *string       `json:"error,omitempty"`
	Language    lang.Language `json:"language"`
}

// MarshalJSON flattens the entry, the outcome and the language into one object.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{Entry: r.Entry, Language: r.Language}
	switch o := r.Outcome.(type) {
	case Saved:
		out.Destination = &o.Destination
	case Failed:
		out.Error = &o.Message
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRecord, r.SHA)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flat form and rejects records carrying both or
// neither outcome field.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch {
	case in.Destination != nil && in.Error == nil:
		r.Outcome = Saved{Destination: *in.Destination}
	case in.Error != nil && in.Destination == nil:
		r.Outcome = Failed{Message: *in.Error}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidRecord, in.SHA)
	}

	r.Entry = in.Entry
	r.Language = in.Language
	return nil
}
