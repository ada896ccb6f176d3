// Package permission resolves effective permissions from role grants and
// direct user grants.
package permission

import (
	"encoding/json"
	"sort"
)

// Set is an O(1)-membership permission set.
type Set map[string]struct{}

// NewSet builds a Set from permission codes, ignoring empty strings.
func NewSet(codes ...string) Set {
	s := make(Set, len(codes))
	for _, c := range codes {
		if c != "" {
			s[c] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s Set) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Union merges other into a new Set; neither input is modified.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for c := range s {
		out[c] = struct{}{}
	}
	for c := range other {
		out[c] = struct{}{}
	}
	return out
}

// Sorted returns the members in sorted order, for stable logs and responses.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a JSON array of permission codes.
func (s *Set) UnmarshalJSON(data []byte) error {
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	*s = NewSet(codes...)
	return nil
}

// Resolve computes the effective permission set: the union of all
// role-granted and directly granted permissions.
func Resolve(rolePermissions [][]string, direct []string) Set {
	s := NewSet(direct...)
	for _, perms := range rolePermissions {
		for _, c := range perms {
			if c != "" {
				s[c] = struct{}{}
			}
		}
	}
	return s
}

// Allowed is the single permission check: superusers pass everything,
// everyone else needs set membership.
func Allowed(superuser bool, s Set, code string) bool {
	if superuser {
		return true
	}
	return s.Has(code)
}
