package directory

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/names"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
)

var userAttributes = []string{
	schema.AttrCN, schema.AttrSN, schema.AttrUID, schema.AttrMail, schema.AttrMobile, schema.AttrTitle,
	schema.AttrUniqueIdentifier, schema.AttrDepartmentNumber, schema.AttrEmployeeNumber,
}

// UserDN is the DN a user entry is created at.
func (r *Reconciler) UserDN(u schema.DirectoryUser) string {
	return rdn(schema.AttrCN, u.CN, r.UserBaseDN())
}

// userFilter matches on uniqueIdentifier, cn, mail and mobile. Fields that are
// empty on u are left out of the filter.
func userFilter(u schema.DirectoryUser, policy MatchPolicy) (string, error) {
	filter := combine(policy,
		anyValue(schema.AttrUniqueIdentifier, u.UniqueIdentifier),
		equality(schema.AttrCN, u.CN),
		equality(schema.AttrMail, u.Email),
		equality(schema.AttrMobile, u.Mobile),
	)
	if filter == "" {
		return "", fmt.Errorf("%w: user query has no identifying fields", ErrEmptyQuery)
	}
	return filter, nil
}

// FindUser searches the user container.
func (r *Reconciler) FindUser(u schema.DirectoryUser, policy MatchPolicy) ([]*ldap.Entry, error) {
	filter, err := userFilter(u, policy)
	if err != nil {
		return nil, err
	}

	entries, err := r.search(r.UserBaseDN(), filter, userAttributes)
	if err != nil {
		return nil, fmt.Errorf("search users %s: %w", filter, err)
	}
	return entries, nil
}

// CreateUser adds u unless an exact match exists, then links it into each of
// its departments. It reports false without error when the user already exists;
// memberships are not topped up on that path.
func (r *Reconciler) CreateUser(u schema.DirectoryUser) (bool, error) {
	existing, err := r.FindUser(u, MatchExact)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		tools.Log.WithFields(map[string]interface{}{
			"cn": u.CN,
			"dn": existing[0].DN,
		}).Debug("User already exists")
		return false, nil
	}

	attrs, err := r.userEntryAttributes(u)
	if err != nil {
		return false, fmt.Errorf("user %q: %w", u.CN, err)
	}

	dn := r.UserDN(u)
	if err := r.add(dn, userObjectClasses, attrs); err != nil {
		if IsAlreadyExists(err) {
			return r.resolveUserCollision(u, dn, err)
		}
		return false, fmt.Errorf("create user %s: %w", dn, err)
	}
	tools.Log.WithFields(map[string]interface{}{
		"cn":  u.CN,
		"uid": schema.Values(attrs[schema.AttrUID]).First(),
		"dn":  dn,
	}).Info("User created")

	if !u.DepartmentNumber.IsEmpty() {
		r.LinkUser(u)
	}
	return true, nil
}

// resolveUserCollision handles an add rejected with entryAlreadyExists. The
// user counts as existing only when an entry carries its uniqueIdentifier;
// otherwise another person holds the DN and addErr is returned wrapped.
func (r *Reconciler) resolveUserCollision(u schema.DirectoryUser, dn string, addErr error) (bool, error) {
	if !u.UniqueIdentifier.IsEmpty() {
		same, err := r.FindUser(schema.DirectoryUser{UniqueIdentifier: u.UniqueIdentifier}, MatchAny)
		if err != nil {
			return false, err
		}
		if len(same) > 0 {
			tools.Log.WithField("dn", same[0].DN).Warn("User created by another process")
			return false, nil
		}
	}

	tools.Log.WithFields(map[string]interface{}{
		"cn":               u.CN,
		"uniqueIdentifier": u.UniqueIdentifier,
		"dn":               dn,
	}).Error("User DN held by a different entry")
	return false, fmt.Errorf("create user %s: %w: %w", dn, ErrDNConflict, addErr)
}

// userEntryAttributes merges the mapped attributes with the derived surname,
// login handle and password hash.
func (r *Reconciler) userEntryAttributes(u schema.DirectoryUser) (schema.Attributes, error) {
	sn, err := names.Surname(u.CN)
	if err != nil {
		return nil, err
	}
	secret, err := DefaultPassword(u.CN, u.Mobile)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(r.scheme, secret)
	if err != nil {
		return nil, err
	}

	attrs := u.Attributes()
	attrs.Set(schema.AttrSN, sn)
	attrs.Set(schema.AttrUID, names.LoginHandle(u.CN))
	attrs.Set(schema.AttrUserPassword, hash)
	return attrs, nil
}

// LinkUser appends the user's DN to the member attribute of each department in
// u.DepartmentNumber and returns how many departments now list the user.
// Departments that cannot be found are skipped.
func (r *Reconciler) LinkUser(u schema.DirectoryUser) int {
	userDN := r.UserDN(u)
	linked := 0

	for _, number := range u.DepartmentNumber {
		log := tools.Log.WithFields(map[string]interface{}{
			"user":             userDN,
			"departmentNumber": number,
		})

		depts, err := r.FindDepartment(DepartmentQuery{IDs: []string{number}}, MatchExact)
		if err != nil {
			log.WithError(err).Warn("Department lookup failed, skipping membership")
			continue
		}
		if len(depts) == 0 {
			log.Warn("Department not found, skipping membership")
			continue
		}

		deptDN := depts[0].DN
		err = r.appendValues(deptDN, schema.Attributes{schema.AttrMember: {userDN}})
		switch {
		case err == nil:
			log.WithField("dept", deptDN).Debug("Added member")
			linked++
		case IsValueExists(err):
			log.WithField("dept", deptDN).Debug("Already a member")
			linked++
		default:
			log.WithError(err).WithField("dept", deptDN).Error("Failed to add member")
		}
	}
	return linked
}

// ListUsers reads every user entry.
func (r *Reconciler) ListUsers() ([]schema.DirectoryUser, error) {
	entries, err := r.search(r.UserBaseDN(), "(objectClass=inetOrgPerson)", userAttributes)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]schema.DirectoryUser, 0, len(entries))
	for _, e := range entries {
		users = append(users, schema.DirectoryUserFromEntry(e))
	}
	return users, nil
}
