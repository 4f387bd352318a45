package schema

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Values is an ordered set of attribute values for a one-or-more attribute.
// A bare scalar is always represented as a one-element Values.
type Values []string

// NewValues builds Values from the given strings, skipping empty ones.
func NewValues(vs ...string) Values {
	out := make(Values, 0, len(vs))
	for _, v := range vs {
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// First returns the first value or "" when empty.
func (v Values) First() string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

func (v Values) Contains(s string) bool {
	return slices.Contains(v, s)
}

func (v Values) IsEmpty() bool { return len(v) == 0 }

// Merge appends the values of other that v does not already contain.
func (v Values) Merge(other Values) Values {
	out := slices.Clone(v)
	for _, s := range other {
		if s != "" && !out.Contains(s) {
			out = append(out, s)
		}
	}
	return out
}

// UnmarshalJSON accepts a single string or number as well as a list of them.
func (v *Values) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var ids []ID
		if err := json.Unmarshal(b, &ids); err != nil {
			return err
		}
		*v = NewValues(IDStrings(ids)...)
		return nil
	}
	var id ID
	if err := id.UnmarshalJSON(b); err != nil {
		return err
	}
	*v = NewValues(string(id))
	return nil
}
