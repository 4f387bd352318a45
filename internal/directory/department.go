package directory

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
)

var departmentAttributes = []string{schema.AttrOU, schema.AttrCN, schema.AttrDepartmentNumber, schema.AttrMember}

// DepartmentQuery selects departments by number, name or both.
type DepartmentQuery struct {
	IDs  []string
	Name string
}

// QueryFor builds a query matching d by its numbers and name.
func QueryFor(d schema.DirectoryDepartment) DepartmentQuery {
	return DepartmentQuery{IDs: d.DepartmentNumber, Name: d.OU}
}

func (q DepartmentQuery) rootOnly() bool {
	return len(q.IDs) == 1 && q.IDs[0] == schema.RootID
}

func departmentFilter(q DepartmentQuery, policy MatchPolicy) (string, error) {
	if len(q.IDs) == 0 && q.Name == "" {
		return "", fmt.Errorf("%w: department query needs ids or a name", ErrEmptyQuery)
	}
	// The root container is matched by name or number, never both.
	if q.rootOnly() {
		policy = MatchAny
	}
	return combine(policy, equality(schema.AttrOU, q.Name), anyValue(schema.AttrDepartmentNumber, q.IDs)), nil
}

// FindDepartment searches the dept container.
func (r *Reconciler) FindDepartment(q DepartmentQuery, policy MatchPolicy) ([]*ldap.Entry, error) {
	filter, err := departmentFilter(q, policy)
	if err != nil {
		return nil, err
	}

	entries, err := r.search(r.DeptBaseDN(), filter, departmentAttributes)
	if err != nil {
		return nil, fmt.Errorf("search departments %s: %w", filter, err)
	}

	tools.Log.WithFields(map[string]interface{}{
		"filter":  filter,
		"matches": len(entries),
	}).Debug("Department search")
	return entries, nil
}

// CreateDepartment adds d under its parent department unless a matching entry
// exists. It reports false without error when the department already exists.
func (r *Reconciler) CreateDepartment(d schema.DirectoryDepartment) (bool, error) {
	policy := MatchExact
	if d.IsRoot() {
		policy = MatchAny
	}

	existing, err := r.FindDepartment(QueryFor(d), policy)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		tools.Log.WithFields(map[string]interface{}{
			"ou": d.OU,
			"dn": existing[0].DN,
		}).Debug("Department already exists")
		return false, nil
	}

	dn := rdn(schema.AttrOU, d.OU, r.parentDN(d.ParentID))
	if err := r.add(dn, departmentObjectClasses, d.Attributes()); err != nil {
		if IsAlreadyExists(err) {
			return r.resolveDepartmentCollision(d, dn, err)
		}
		return false, fmt.Errorf("create department %s: %w", dn, err)
	}

	tools.Log.WithFields(map[string]interface{}{
		"ou": d.OU,
		"dn": dn,
	}).Info("Department created")
	return true, nil
}

// resolveDepartmentCollision handles an add rejected with entryAlreadyExists.
// The department counts as existing only when an entry carries one of its
// numbers; a same-named sibling with other numbers is a conflict.
func (r *Reconciler) resolveDepartmentCollision(d schema.DirectoryDepartment, dn string, addErr error) (bool, error) {
	if !d.DepartmentNumber.IsEmpty() {
		same, err := r.FindDepartment(DepartmentQuery{IDs: d.DepartmentNumber}, MatchAny)
		if err != nil {
			return false, err
		}
		if len(same) > 0 {
			tools.Log.WithField("dn", same[0].DN).Warn("Department created by another process")
			return false, nil
		}
	}

	tools.Log.WithFields(map[string]interface{}{
		"ou":               d.OU,
		"departmentNumber": d.DepartmentNumber,
		"dn":               dn,
	}).Error("Department DN held by a different entry")
	return false, fmt.Errorf("create department %s: %w: %w", dn, ErrDNConflict, addErr)
}

// parentDN resolves the entry of parentID, falling back to the dept container.
func (r *Reconciler) parentDN(parentID string) string {
	if parentID == "" {
		return r.DeptBaseDN()
	}

	parents, err := r.FindDepartment(DepartmentQuery{IDs: []string{parentID}}, MatchAny)
	if err != nil {
		tools.Log.WithError(err).WithField("parent", parentID).Warn("Parent lookup failed, using dept container")
		return r.DeptBaseDN()
	}
	if len(parents) == 0 {
		tools.Log.WithField("parent", parentID).Warn("Parent department not found, using dept container")
		return r.DeptBaseDN()
	}
	return parents[0].DN
}

// ListDepartments reads every department entry, the dept container included.
// ParentID is filled from the entry directly above each department.
func (r *Reconciler) ListDepartments() ([]schema.DirectoryDepartment, error) {
	entries, err := r.search(r.DeptBaseDN(), "(objectClass=organizationalUnit)", departmentAttributes)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}

	numberByDN := make(map[string]string, len(entries))
	for _, e := range entries {
		numberByDN[NormalizeDN(e.DN)] = e.GetAttributeValue(schema.AttrDepartmentNumber)
	}

	depts := make([]schema.DirectoryDepartment, 0, len(entries))
	for _, e := range entries {
		d := schema.DirectoryDepartmentFromEntry(e)
		d.ParentID = numberByDN[NormalizeDN(ParentDN(e.DN))]
		depts = append(depts, d)
	}
	return depts, nil
}
