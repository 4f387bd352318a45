package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RootID is the reserved ID of the top-level department. It is never namespaced
// and maps to the directory's department container.
const RootID = "1"

// DefaultTag identifies DingTalk-sourced identifiers in the directory.
const DefaultTag = "dd"

// ID is a provider-native identifier. DingTalk sends department IDs as JSON
// numbers and user IDs as strings; both decode into an ID.
type ID string

func (id ID) String() string { return string(id) }

// IsZero reports whether the ID is absent.
func (id ID) IsZero() bool { return id == "" }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id %s is neither a string nor a number: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

// IDStrings converts a list of IDs to plain strings.
func IDStrings(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

// Codec namespaces provider IDs for the directory and strips the namespace again.
type Codec struct {
	prefix string
}

// NewCodec returns a codec whose prefix is tag followed by an underscore.
func NewCodec(tag string) Codec {
	if tag == "" {
		tag = DefaultTag
	}
	return Codec{prefix: tag + "_"}
}

// Prefix returns the namespace prefix, e.g. "dd_".
func (c Codec) Prefix() string { return c.prefix }

// IsNamespaced reports whether id carries this codec's prefix.
func (c Codec) IsNamespaced(id string) bool {
	return strings.HasPrefix(id, c.prefix)
}

// ToDirectoryID namespaces a provider-native ID. The root ID passes through unchanged.
func (c Codec) ToDirectoryID(native string) (string, error) {
	if native == "" {
		return "", invariant("empty provider id")
	}
	if native == RootID {
		return native, nil
	}
	return c.prefix + native, nil
}

// ToNativeID strips the namespace prefix. IDs without the prefix are returned
// as they are.
func (c Codec) ToNativeID(directoryID string) string {
	if c.IsNamespaced(directoryID) {
		return strings.TrimPrefix(directoryID, c.prefix)
	}
	return directoryID
}

// ToDirectoryIDs applies ToDirectoryID element-wise.
func (c Codec) ToDirectoryIDs(natives []string) (Values, error) {
	out := make(Values, 0, len(natives))
	for _, n := range natives {
		id, err := c.ToDirectoryID(n)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Authoritative returns the first value of vs that carries the namespace prefix,
// converted back to its native form. A lone root ID is authoritative for the
// root department.
func (c Codec) Authoritative(vs Values) (string, error) {
	for _, v := range vs {
		if c.IsNamespaced(v) {
			return c.ToNativeID(v), nil
		}
	}
	if vs.Contains(RootID) {
		return RootID, nil
	}
	return "", fmt.Errorf("%w in %v", ErrNoAuthoritativeID, []string(vs))
}
