package directory_test

import (
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/directory"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/directory/dirtest"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/names"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseDN = "dc=example,dc=org"

func newReconciler(t *testing.T, opts directory.Options) (*directory.Reconciler, *dirtest.Directory) {
	t.Helper()
	dir := dirtest.New(baseDN)
	opts.BaseDN = baseDN
	r := directory.New(dir, opts)
	require.NoError(t, r.Bootstrap())
	return r, dir
}

func dept(number, ou, parent string) schema.DirectoryDepartment {
	return schema.DirectoryDepartment{DepartmentNumber: schema.Values{number}, OU: ou, ParentID: parent}
}

func zhangsan(depts ...string) schema.DirectoryUser {
	return schema.DirectoryUser{
		UniqueIdentifier: schema.Values{"dd_u1"},
		CN:               "张三",
		DepartmentNumber: schema.NewValues(depts...),
		Mobile:           "13800138000",
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})

	assert.Equal(t, []string{
		"ou=user,dc=example,dc=org",
		"ou=dept,dc=example,dc=org",
		"ou=group,dc=example,dc=org",
	}, dir.DNs())
	assert.Equal(t, "1", dir.Entry(r.DeptBaseDN()).GetAttributeValue("departmentNumber"))

	require.NoError(t, r.Bootstrap())
	assert.Equal(t, 3, dir.Len())
}

func TestBootstrapIgnoresDepartmentNamedLikeContainer(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	_, err := r.CreateDepartment(dept("dd_5", "group", "1"))
	require.NoError(t, err)

	require.NoError(t, r.Bootstrap())
	assert.Equal(t, 4, dir.Len())
}

func TestFindDepartmentPolicies(t *testing.T) {
	r, _ := newReconciler(t, directory.Options{})
	created, err := r.CreateDepartment(dept("dd_10", "Engineering", "1"))
	require.NoError(t, err)
	require.True(t, created)

	exact, err := r.FindDepartment(directory.DepartmentQuery{IDs: []string{"dd_10"}, Name: "Engineering"}, directory.MatchExact)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "ou=Engineering,ou=dept,dc=example,dc=org", exact[0].DN)

	byID, err := r.FindDepartment(directory.DepartmentQuery{IDs: []string{"dd_10"}, Name: "Marketing"}, directory.MatchAny)
	require.NoError(t, err)
	assert.Len(t, byID, 1)

	none, err := r.FindDepartment(directory.DepartmentQuery{IDs: []string{"dd_10"}, Name: "Marketing"}, directory.MatchExact)
	require.NoError(t, err)
	assert.Empty(t, none)

	root, err := r.FindDepartment(directory.DepartmentQuery{IDs: []string{"1"}, Name: "Example Corp"}, directory.MatchExact)
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, r.DeptBaseDN(), root[0].DN)
}

func TestCreateDepartmentIsIdempotent(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	d := dept("dd_10", "Engineering", "1")

	created, err := r.CreateDepartment(d)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.CreateDepartment(d)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 4, dir.Len())

	e := dir.Entry("ou=Engineering,ou=dept,dc=example,dc=org")
	require.NotNil(t, e)
	assert.Equal(t, "Engineering", e.GetAttributeValue("cn"))
	assert.Equal(t, []string{"dd_10"}, e.GetAttributeValues("departmentNumber"))
	assert.Empty(t, e.GetAttributeValues("parentId"))
}

func TestCreateDepartmentRootMapsToContainer(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})

	created, err := r.CreateDepartment(dept("1", "Example Corp", ""))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 3, dir.Len())
}

func TestCreateDepartmentPlacement(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})

	_, err := r.CreateDepartment(dept("dd_10", "Engineering", "1"))
	require.NoError(t, err)
	_, err = r.CreateDepartment(dept("dd_11", "Backend", "dd_10"))
	require.NoError(t, err)
	_, err = r.CreateDepartment(dept("dd_30", "Sales", "dd_999"))
	require.NoError(t, err)
	_, err = r.CreateDepartment(dept("dd_40", "Legal", ""))
	require.NoError(t, err)

	assert.NotNil(t, dir.Entry("ou=Backend,ou=Engineering,ou=dept,dc=example,dc=org"))
	assert.NotNil(t, dir.Entry("ou=Sales,ou=dept,dc=example,dc=org"))
	assert.NotNil(t, dir.Entry("ou=Legal,ou=dept,dc=example,dc=org"))
}

func TestCreateDepartmentSurfacesAddFailure(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	dir.FailAdd = func(string) error {
		return ldap.NewError(ldap.LDAPResultUnwillingToPerform, errors.New("read-only replica"))
	}

	created, err := r.CreateDepartment(dept("dd_10", "Engineering", "1"))
	require.Error(t, err)
	assert.False(t, created)
}

func TestCreateDepartmentTreatsRaceAsExisting(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	engineering := dept("dd_10", "Engineering", "1")
	dir.FailAdd = func(dn string) error {
		// Another writer lands the same department first.
		dir.FailAdd = nil
		require.NoError(t, dir.Add(dn, []string{"top", "organizationalUnit"}, engineering.Attributes()))
		return ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("exists"))
	}

	created, err := r.CreateDepartment(engineering)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCreateDepartmentRejectsNameTakenByOtherNumber(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	_, err := r.CreateDepartment(dept("dd_10", "Engineering", "1"))
	require.NoError(t, err)
	before := dir.Len()

	created, err := r.CreateDepartment(dept("dd_30", "Engineering", "1"))
	require.Error(t, err)
	assert.False(t, created)
	assert.True(t, errors.Is(err, directory.ErrDNConflict))
	assert.True(t, directory.IsAlreadyExists(err))
	assert.Equal(t, before, dir.Len())
}

func TestCreateUserLinksEveryDepartment(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	_, err := r.CreateDepartment(dept("dd_10", "A", "1"))
	require.NoError(t, err)
	_, err = r.CreateDepartment(dept("dd_20", "B", "1"))
	require.NoError(t, err)

	created, err := r.CreateUser(zhangsan("dd_10", "dd_20"))
	require.NoError(t, err)
	require.True(t, created)

	userDN := "cn=张三,ou=user,dc=example,dc=org"
	assert.Equal(t, userDN, r.UserDN(zhangsan()))

	user := dir.Entry(userDN)
	require.NotNil(t, user)
	assert.Equal(t, "zhangsan", user.GetAttributeValue("uid"))
	assert.Equal(t, "张", user.GetAttributeValue("sn"))
	assert.Equal(t, []string{"dd_10", "dd_20"}, user.GetAttributeValues("departmentNumber"))
	assert.Equal(t, []string{"dd_u1"}, user.GetAttributeValues("uniqueIdentifier"))
	assert.True(t, directory.VerifyPassword(user.GetAttributeValue("userPassword"), "zhangsan8000"))

	for _, dn := range []string{"ou=A,ou=dept,dc=example,dc=org", "ou=B,ou=dept,dc=example,dc=org"} {
		assert.Equal(t, []string{userDN}, dir.Entry(dn).GetAttributeValues("member"), dn)
	}
}

func TestCreateUserIsIdempotent(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	_, err := r.CreateDepartment(dept("dd_10", "A", "1"))
	require.NoError(t, err)

	created, err := r.CreateUser(zhangsan("dd_10"))
	require.NoError(t, err)
	assert.True(t, created)

	searches := dir.Searches
	created, err = r.CreateUser(zhangsan("dd_10"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, searches+1, dir.Searches, "existing user is not relinked")

	assert.Len(t, dir.Entry("ou=A,ou=dept,dc=example,dc=org").GetAttributeValues("member"), 1)
	assert.Equal(t, 5, dir.Len())
}

func TestCreateUserLogsLoginHandle(t *testing.T) {
	previous := tools.Log.ReplaceHooks(make(logrus.LevelHooks))
	t.Cleanup(func() { tools.Log.ReplaceHooks(previous) })
	hook := test.NewLocal(tools.Log)

	r, _ := newReconciler(t, directory.Options{})
	created, err := r.CreateUser(zhangsan())
	require.NoError(t, err)
	require.True(t, created)

	var logged *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "User created" {
			logged = e
		}
	}
	require.NotNil(t, logged)
	assert.Equal(t, "zhangsan", logged.Data["uid"])
}

func TestCreateUserRejectsSameNameDifferentPerson(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	created, err := r.CreateUser(zhangsan())
	require.NoError(t, err)
	require.True(t, created)
	before := dir.Len()

	namesake := schema.DirectoryUser{
		UniqueIdentifier: schema.Values{"dd_u2"},
		CN:               "张三",
		Mobile:           "13900139000",
	}
	created, err = r.CreateUser(namesake)
	require.Error(t, err)
	assert.False(t, created)
	assert.True(t, errors.Is(err, directory.ErrDNConflict))
	assert.True(t, directory.IsAlreadyExists(err))
	assert.Equal(t, before, dir.Len())

	found, err := r.FindUser(schema.DirectoryUser{UniqueIdentifier: schema.Values{"dd_u2"}}, directory.MatchAny)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCreateUserTreatsRaceAsExisting(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	u := zhangsan()
	dir.FailAdd = func(dn string) error {
		dir.FailAdd = nil
		require.NoError(t, dir.Add(dn, []string{"inetOrgPerson"}, u.Attributes()))
		return ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("exists"))
	}

	created, err := r.CreateUser(u)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCreateUserRejectsNonHanName(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	before := dir.Len()

	created, err := r.CreateUser(schema.DirectoryUser{
		UniqueIdentifier: schema.Values{"dd_u2"},
		CN:               "John Smith",
		Mobile:           "13800138001",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, names.ErrUnsupportedScript))
	assert.False(t, created)
	assert.Equal(t, before, dir.Len())
}

func TestCreateUserSkipsMissingDepartment(t *testing.T) {
	r, _ := newReconciler(t, directory.Options{})

	created, err := r.CreateUser(zhangsan("dd_999"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, r.LinkUser(zhangsan("dd_999")))
}

func TestLinkUserToleratesExistingMember(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})
	_, err := r.CreateDepartment(dept("dd_10", "A", "1"))
	require.NoError(t, err)
	_, err = r.CreateUser(zhangsan("dd_10"))
	require.NoError(t, err)

	assert.Equal(t, 1, r.LinkUser(zhangsan("dd_10")))
	assert.Len(t, dir.Entry("ou=A,ou=dept,dc=example,dc=org").GetAttributeValues("member"), 1)
}

func TestCreateUserInRootDepartment(t *testing.T) {
	r, dir := newReconciler(t, directory.Options{})

	created, err := r.CreateUser(zhangsan("1"))
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, []string{"cn=张三,ou=user,dc=example,dc=org"}, dir.Entry(r.DeptBaseDN()).GetAttributeValues("member"))
}

func TestDryRunWritesNothing(t *testing.T) {
	dir := dirtest.New(baseDN)
	live := directory.New(dir, directory.Options{BaseDN: baseDN})
	require.NoError(t, live.Bootstrap())

	r := directory.New(dir, directory.Options{BaseDN: baseDN, DryRun: true})
	created, err := r.CreateDepartment(dept("dd_10", "Engineering", "1"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.CreateUser(zhangsan("dd_10"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, dir.Len())
}

func TestListReadsBackEntries(t *testing.T) {
	r, _ := newReconciler(t, directory.Options{PasswordScheme: directory.SchemeBcrypt})
	_, err := r.CreateDepartment(dept("dd_10", "Engineering", "1"))
	require.NoError(t, err)
	_, err = r.CreateDepartment(dept("dd_11", "Backend", "dd_10"))
	require.NoError(t, err)
	_, err = r.CreateUser(zhangsan("dd_11"))
	require.NoError(t, err)

	depts, err := r.ListDepartments()
	require.NoError(t, err)
	require.Len(t, depts, 3)
	assert.Equal(t, schema.Values{"1"}, depts[0].DepartmentNumber)
	assert.Equal(t, dept("dd_10", "Engineering", "1"), depts[1])
	assert.Equal(t, dept("dd_11", "Backend", "dd_10"), depts[2])

	users, err := r.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, zhangsan("dd_11"), users[0])
}

func TestDryRunOnEmptyDirectory(t *testing.T) {
	dir := dirtest.New(baseDN)
	r := directory.New(dir, directory.Options{BaseDN: baseDN, DryRun: true})

	require.NoError(t, r.Bootstrap())
	created, err := r.CreateDepartment(dept("dd_10", "Engineering", "1"))
	require.NoError(t, err)
	assert.True(t, created)

	depts, err := r.ListDepartments()
	require.NoError(t, err)
	assert.Empty(t, depts)
	assert.Equal(t, 0, dir.Len())
}
