package directory

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
)

// Base container names under the configured base DN.
const (
	UserContainer  = "user"
	DeptContainer  = "dept"
	GroupContainer = "group"
)

var (
	containerObjectClasses  = []string{"organizationalUnit", "top", "extensibleObject"}
	departmentObjectClasses = []string{"top", "organizationalUnit", "extensibleObject"}
	userObjectClasses       = []string{"top", "person", "organizationalPerson", "inetOrgPerson", "extensibleObject"}
)

// Options configures a Reconciler.
type Options struct {
	BaseDN         string
	PasswordScheme PasswordScheme
	DryRun         bool
}

// Reconciler performs idempotent create-if-absent operations against the directory.
// It is not safe for concurrent use.
type Reconciler struct {
	conn   Conn
	baseDN string
	scheme PasswordScheme
	dryRun bool
}

func New(conn Conn, opts Options) *Reconciler {
	return &Reconciler{
		conn:   conn,
		baseDN: opts.BaseDN,
		scheme: opts.PasswordScheme,
		dryRun: opts.DryRun,
	}
}

func (r *Reconciler) containerDN(name string) string {
	return rdn(schema.AttrOU, name, r.baseDN)
}

func (r *Reconciler) UserBaseDN() string { return r.containerDN(UserContainer) }
func (r *Reconciler) DeptBaseDN() string { return r.containerDN(DeptContainer) }

// Bootstrap ensures the user, dept and group containers exist. The dept
// container carries departmentNumber=1 and stands for the root department.
func (r *Reconciler) Bootstrap() error {
	containers := []struct {
		name  string
		attrs schema.Attributes
	}{
		{UserContainer, schema.Attributes{}},
		{DeptContainer, schema.Attributes{schema.AttrDepartmentNumber: {schema.RootID}}},
		{GroupContainer, schema.Attributes{}},
	}

	for _, c := range containers {
		if err := r.ensureContainer(c.name, c.attrs); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) ensureContainer(name string, attrs schema.Attributes) error {
	dn := r.containerDN(name)

	entries, err := r.search(r.baseDN, equality(schema.AttrOU, name), []string{schema.AttrOU})
	if err != nil {
		return fmt.Errorf("search container %s: %w", dn, err)
	}
	for _, e := range entries {
		if SameDN(e.DN, dn) {
			tools.Log.WithField("dn", dn).Debug("Container already exists")
			return nil
		}
	}

	attrs.Set(schema.AttrOU, name)
	if err := r.add(dn, containerObjectClasses, attrs); err != nil {
		if IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("create container %s: %w", dn, err)
	}
	tools.Log.WithField("dn", dn).Info("Container created")
	return nil
}

// search treats a missing base entry as an empty result, which happens before
// Bootstrap has run or during a dry run.
func (r *Reconciler) search(baseDN, filter string, attributes []string) ([]*ldap.Entry, error) {
	entries, err := r.conn.Search(baseDN, filter, attributes)
	if IsNoSuchObject(err) {
		return nil, nil
	}
	return entries, err
}

func (r *Reconciler) add(dn string, objectClasses []string, attrs schema.Attributes) error {
	if r.dryRun {
		tools.Log.WithField("dn", dn).Infof("[DRY RUN] Would add entry with %d attributes", len(attrs))
		return nil
	}
	return r.conn.Add(dn, objectClasses, attrs)
}

func (r *Reconciler) appendValues(dn string, attrs schema.Attributes) error {
	if r.dryRun {
		for name, values := range attrs {
			tools.Log.WithField("dn", dn).Infof("[DRY RUN] Would append %s=%v", name, values)
		}
		return nil
	}
	return r.conn.Append(dn, attrs)
}
