// Package filter evaluates metadata predicates against chunk records.
package filter

import (
	"strings"

	"docsearch/internal/domain"
)

// Set maps a metadata field name to the required value. All entries must
// hold for a record to match.
type Set map[string]string

// Fields a Set may constrain.
var Fields = []string{"filename", "title", "date", "author", "location"}

// New builds a Set from field/value pairs, dropping blank values so that an
// unset picker means "any".
func New(pairs map[string]string) Set {
	s := make(Set, len(pairs))
	for k, v := range pairs {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		s[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return s
}

// Matches reports whether r satisfies every predicate in s.
//
// date matches by case-sensitive substring, author and location by
// case-insensitive substring, and every other field by exact equality.
// A record without a value for a constrained field does not match.
func Matches(r domain.ChunkRecord, s Set) bool {
	for field, want := range s {
		have, ok := r.Field(field)
		if !ok {
			return false
		}
		switch field {
		case "date":
			if !strings.Contains(have, want) {
				return false
			}
		case "author", "location":
			if !strings.Contains(strings.ToLower(have), strings.ToLower(want)) {
				return false
			}
		default:
			if have != want {
				return false
			}
		}
	}
	return true
}
