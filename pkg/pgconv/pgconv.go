// Package pgconv provides utilities for converting between PostgreSQL types and Go types.
package pgconv

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// ToText converts a *string to pgtype.Text.
// Returns an invalid Text if s is nil.
func ToText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

// FromText converts pgtype.Text to *string.
// Returns nil if the Text is not valid.
func FromText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

// ToInt8 converts an *int64 to pgtype.Int8.
// Returns an invalid Int8 if i is nil.
func ToInt8(i *int64) pgtype.Int8 {
	if i == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *i, Valid: true}
}

// FromInt8 converts pgtype.Int8 to *int64.
// Returns nil if the Int8 is not valid.
func FromInt8(i pgtype.Int8) *int64 {
	if !i.Valid {
		return nil
	}
	return &i.Int64
}

// NonEmpty returns nil for the empty string, so it is stored as NULL.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Val returns the value from a pointer, or the zero value if nil.
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
