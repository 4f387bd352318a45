package directory

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// MatchPolicy decides how sub-filters are combined.
type MatchPolicy int

const (
	// MatchAny ORs the sub-filters.
	MatchAny MatchPolicy = iota
	// MatchExact ANDs the sub-filters.
	MatchExact
)

func (p MatchPolicy) String() string {
	if p == MatchExact {
		return "exact"
	}
	return "any"
}

func equality(attr, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("(%s=%s)", attr, ldap.EscapeFilter(value))
}

func join(op string, parts []string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	default:
		return fmt.Sprintf("(%s%s)", op, strings.Join(kept, ""))
	}
}

func anyOf(parts ...string) string { return join("|", parts) }

func allOf(parts ...string) string { return join("&", parts) }

// anyValue ORs equality filters for every value of attr.
func anyValue(attr string, values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, equality(attr, v))
	}
	return anyOf(parts...)
}

func combine(policy MatchPolicy, parts ...string) string {
	if policy == MatchExact {
		return allOf(parts...)
	}
	return anyOf(parts...)
}
