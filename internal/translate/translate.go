// Package translate converts entities between the DingTalk shape and the
// directory shape.
package translate

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"golang.org/x/text/width"
)

// Translator applies the ID codec while mapping fields between shapes.
type Translator struct {
	codec schema.Codec
}

func New(codec schema.Codec) *Translator {
	return &Translator{codec: codec}
}

// Translate maps a provider-shaped entity to its directory shape and a
// directory-shaped entity back to its provider shape.
func (t *Translator) Translate(e schema.Entity) (schema.Entity, error) {
	switch v := e.(type) {
	case schema.ProviderUser:
		return entity(t.UserToDirectory(v))
	case schema.DirectoryUser:
		return entity(t.UserToProvider(v))
	case schema.ProviderDepartment:
		return entity(t.DepartmentToDirectory(v))
	case schema.DirectoryDepartment:
		return entity(t.DepartmentToProvider(v))
	default:
		return nil, fmt.Errorf("%w: %T", schema.ErrUnsupportedKind, e)
	}
}

func entity[T schema.Entity](v T, err error) (schema.Entity, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DepartmentToDirectory namespaces the department and parent IDs.
func (t *Translator) DepartmentToDirectory(d schema.ProviderDepartment) (schema.DirectoryDepartment, error) {
	number, err := t.codec.ToDirectoryID(string(d.DeptID))
	if err != nil {
		return schema.DirectoryDepartment{}, fmt.Errorf("department %q: %w", d.Name, err)
	}

	name := strings.TrimSpace(d.Name)
	if name == "" {
		return schema.DirectoryDepartment{}, fmt.Errorf("%w: department %s has no name", schema.ErrInvariantViolation, d.DeptID)
	}

	out := schema.DirectoryDepartment{
		DepartmentNumber: schema.NewValues(number),
		OU:               name,
	}
	if !d.ParentID.IsZero() {
		if out.ParentID, err = t.codec.ToDirectoryID(string(d.ParentID)); err != nil {
			return schema.DirectoryDepartment{}, err
		}
	}
	return out, nil
}

// DepartmentToProvider picks the first namespaced department number as the
// provider ID.
func (t *Translator) DepartmentToProvider(d schema.DirectoryDepartment) (schema.ProviderDepartment, error) {
	id, err := t.codec.Authoritative(d.DepartmentNumber)
	if err != nil {
		return schema.ProviderDepartment{}, fmt.Errorf("department %q: %w", d.OU, err)
	}

	out := schema.ProviderDepartment{
		DeptID: schema.ID(id),
		Name:   d.OU,
	}
	if d.ParentID != "" {
		out.ParentID = schema.ID(t.codec.ToNativeID(d.ParentID))
	}
	return out, nil
}

// UserToDirectory namespaces the user and department IDs and normalizes the
// contact fields.
func (t *Translator) UserToDirectory(u schema.ProviderUser) (schema.DirectoryUser, error) {
	uid, err := t.codec.ToDirectoryID(string(u.UserID))
	if err != nil {
		return schema.DirectoryUser{}, fmt.Errorf("user %q: %w", u.Name, err)
	}

	name := strings.TrimSpace(u.Name)
	if name == "" {
		return schema.DirectoryUser{}, fmt.Errorf("%w: user %s has no name", schema.ErrInvariantViolation, u.UserID)
	}

	depts, err := t.codec.ToDirectoryIDs(schema.IDStrings(u.DeptIDList))
	if err != nil {
		return schema.DirectoryUser{}, fmt.Errorf("user %s departments: %w", u.UserID, err)
	}

	email := strings.TrimSpace(u.Email)
	if email == "" {
		email = strings.TrimSpace(u.OrgEmail)
	}
	if email != "" {
		if err := validateEmail(email); err != nil {
			return schema.DirectoryUser{}, fmt.Errorf("%w: user %s: %v", schema.ErrInvariantViolation, u.UserID, err)
		}
	}

	return schema.DirectoryUser{
		UniqueIdentifier: schema.NewValues(uid),
		CN:               name,
		DepartmentNumber: schema.NewValues(depts...),
		EmployeeNumber:   strings.TrimSpace(u.JobNumber),
		Email:            email,
		Mobile:           NormalizeMobile(u.Mobile),
		Title:            strings.TrimSpace(u.Title),
	}, nil
}

// UserToProvider maps a directory user back. Only the first namespaced value of
// uniqueIdentifier and departmentNumber is authoritative.
func (t *Translator) UserToProvider(u schema.DirectoryUser) (schema.ProviderUser, error) {
	uid, err := t.codec.Authoritative(u.UniqueIdentifier)
	if err != nil {
		return schema.ProviderUser{}, fmt.Errorf("user %q: %w", u.CN, err)
	}

	out := schema.ProviderUser{
		UserID:    schema.ID(uid),
		Name:      u.CN,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Title:     u.Title,
		JobNumber: u.EmployeeNumber,
	}
	if !u.DepartmentNumber.IsEmpty() {
		dept, err := t.codec.Authoritative(u.DepartmentNumber)
		if err != nil {
			return schema.ProviderUser{}, fmt.Errorf("user %q departments: %w", u.CN, err)
		}
		out.DeptIDList = []schema.ID{schema.ID(dept)}
	}
	return out, nil
}

// NormalizeMobile folds full-width digits and strips surrounding space.
func NormalizeMobile(mobile string) string {
	return strings.TrimSpace(width.Narrow.String(mobile))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email %q: %w", email, err)
	}
	if addr.Address != email {
		return fmt.Errorf("invalid email %q", email)
	}
	return nil
}
