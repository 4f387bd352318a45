// Package dirtest provides an in-memory directory for tests. Filters are
// compiled with go-ldap and evaluated against stored entries.
package dirtest

import (
	"errors"
	"fmt"
	"strings"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/go-ldap/ldap/v3"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/directory"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
)

// Directory is an in-memory directory.Conn. Entries must be added under an
// existing entry or directly under the suffix.
type Directory struct {
	suffix  string
	order   []string
	entries map[string]*ldap.Entry

	// Searches counts Search calls.
	Searches int
	// FailAdd, when set, is returned by Add for matching DNs.
	FailAdd func(dn string) error
}

var _ directory.Conn = (*Directory)(nil)

func New(suffix string) *Directory {
	return &Directory{
		suffix:  suffix,
		entries: make(map[string]*ldap.Entry),
	}
}

func key(dn string) string { return directory.NormalizeDN(dn) }

func (d *Directory) Search(baseDN, filter string, _ []string) ([]*ldap.Entry, error) {
	d.Searches++

	packet, err := ldap.CompileFilter(filter)
	if err != nil {
		return nil, ldap.NewError(ldap.LDAPResultFilterError, err)
	}

	base := key(baseDN)
	if base != key(d.suffix) {
		if _, ok := d.entries[base]; !ok {
			return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such object: %s", baseDN))
		}
	}

	var out []*ldap.Entry
	for _, k := range d.order {
		if k != base && !strings.HasSuffix(k, ","+base) {
			continue
		}
		e := d.entries[k]
		if match(packet, e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (d *Directory) Add(dn string, objectClasses []string, attrs schema.Attributes) error {
	if d.FailAdd != nil {
		if err := d.FailAdd(dn); err != nil {
			return err
		}
	}

	k := key(dn)
	if _, ok := d.entries[k]; ok {
		return ldap.NewError(ldap.LDAPResultEntryAlreadyExists, fmt.Errorf("entry exists: %s", dn))
	}
	parent := key(directory.ParentDN(dn))
	if _, ok := d.entries[parent]; !ok && parent != key(d.suffix) {
		return ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("parent missing: %s", dn))
	}

	values := map[string][]string{schema.AttrObjectClass: objectClasses}
	for name, vs := range attrs {
		values[name] = append([]string(nil), vs...)
	}
	d.entries[k] = ldap.NewEntry(dn, values)
	d.order = append(d.order, k)
	return nil
}

func (d *Directory) Append(dn string, attrs schema.Attributes) error {
	e, ok := d.entries[key(dn)]
	if !ok {
		return ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such object: %s", dn))
	}

	for name, vs := range attrs {
		attr := attribute(e, name)
		if attr == nil {
			attr = &ldap.EntryAttribute{Name: name}
			e.Attributes = append(e.Attributes, attr)
		}
		for _, v := range vs {
			for _, have := range attr.Values {
				if strings.EqualFold(have, v) {
					return ldap.NewError(ldap.LDAPResultAttributeOrValueExists, errors.New("value exists"))
				}
			}
			attr.Values = append(attr.Values, v)
			attr.ByteValues = append(attr.ByteValues, []byte(v))
		}
	}
	return nil
}

// Entry returns the entry at dn, or nil.
func (d *Directory) Entry(dn string) *ldap.Entry {
	return d.entries[key(dn)]
}

// Len returns the number of stored entries.
func (d *Directory) Len() int { return len(d.order) }

// DNs returns the stored DNs in insertion order.
func (d *Directory) DNs() []string {
	out := make([]string, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.entries[k].DN)
	}
	return out
}

func attribute(e *ldap.Entry, name string) *ldap.EntryAttribute {
	for _, a := range e.Attributes {
		if strings.EqualFold(a.Name, name) {
			return a
		}
	}
	return nil
}

func match(p *ber.Packet, e *ldap.Entry) bool {
	switch p.Tag {
	case ldap.FilterAnd:
		for _, c := range p.Children {
			if !match(c, e) {
				return false
			}
		}
		return true
	case ldap.FilterOr:
		for _, c := range p.Children {
			if match(c, e) {
				return true
			}
		}
		return false
	case ldap.FilterNot:
		return len(p.Children) == 1 && !match(p.Children[0], e)
	case ldap.FilterPresent:
		return attribute(e, fmt.Sprint(p.Value)) != nil
	case ldap.FilterEqualityMatch:
		if len(p.Children) != 2 {
			return false
		}
		attr := attribute(e, fmt.Sprint(p.Children[0].Value))
		if attr == nil {
			return false
		}
		want := fmt.Sprint(p.Children[1].Value)
		for _, v := range attr.Values {
			if strings.EqualFold(v, want) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
