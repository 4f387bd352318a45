package directory

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// NormalizeDN returns dn in a canonical lowercase form, suitable as a map key.
// Unparseable input falls back to a trimmed lowercase copy.
func NormalizeDN(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(dn))
	}
	return strings.ToLower(formatRDNs(parsed.RDNs))
}

// SameDN reports whether a and b name the same entry, ignoring case.
func SameDN(a, b string) bool {
	pa, errA := ldap.ParseDN(a)
	pb, errB := ldap.ParseDN(b)
	if errA != nil || errB != nil {
		return NormalizeDN(a) == NormalizeDN(b)
	}
	return pa.EqualFold(pb)
}

func rdn(attr, value string, parentDN string) string {
	return attr + "=" + ldap.EscapeDN(value) + "," + parentDN
}

// ParentDN strips the first RDN of dn. It returns "" for a single-RDN DN.
func ParentDN(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) < 2 {
		return ""
	}
	return formatRDNs(parsed.RDNs[1:])
}

func formatRDNs(rdns []*ldap.RelativeDN) string {
	parts := make([]string, 0, len(rdns))
	for _, r := range rdns {
		avas := make([]string, 0, len(r.Attributes))
		for _, a := range r.Attributes {
			avas = append(avas, a.Type+"="+ldap.EscapeDN(a.Value))
		}
		parts = append(parts, strings.Join(avas, "+"))
	}
	return strings.Join(parts, ",")
}
