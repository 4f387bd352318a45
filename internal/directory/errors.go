package directory

import (
	"errors"

	"github.com/go-ldap/ldap/v3"
)

// ErrEmptyQuery is returned when a search has nothing to match on.
var ErrEmptyQuery = errors.New("empty directory query")

// ErrDNConflict is returned when the DN for a new entry is held by an entry
// with a different identity.
var ErrDNConflict = errors.New("dn held by another entry")

func resultCode(err error) (uint16, bool) {
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return ldapErr.ResultCode, true
	}
	return 0, false
}

// IsAlreadyExists reports whether err is an LDAP entryAlreadyExists result.
func IsAlreadyExists(err error) bool {
	code, ok := resultCode(err)
	return ok && code == ldap.LDAPResultEntryAlreadyExists
}

// IsValueExists reports whether err is an LDAP attributeOrValueExists result.
func IsValueExists(err error) bool {
	code, ok := resultCode(err)
	return ok && code == ldap.LDAPResultAttributeOrValueExists
}

// IsNoSuchObject reports whether err is an LDAP noSuchObject result.
func IsNoSuchObject(err error) bool {
	code, ok := resultCode(err)
	return ok && code == ldap.LDAPResultNoSuchObject
}
