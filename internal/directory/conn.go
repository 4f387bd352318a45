// Package directory reconciles departments and users into an LDAP directory
// with search-before-create semantics.
package directory

import (
	"github.com/go-ldap/ldap/v3"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
)

// Conn is the directory collaborator. Search runs over the whole subtree of
// baseDN, the base entry included. Append adds values without replacing
// existing ones.
type Conn interface {
	Search(baseDN, filter string, attributes []string) ([]*ldap.Entry, error)
	Add(dn string, objectClasses []string, attrs schema.Attributes) error
	Append(dn string, attrs schema.Attributes) error
}
