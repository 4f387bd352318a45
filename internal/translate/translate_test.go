package translate_test

import (
	"errors"
	"testing"

	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranslator() *translate.Translator {
	return translate.New(schema.NewCodec("dd"))
}

func TestDepartmentToDirectory(t *testing.T) {
	tr := newTranslator()

	got, err := tr.DepartmentToDirectory(schema.ProviderDepartment{DeptID: "10", Name: " Engineering ", ParentID: "1"})
	require.NoError(t, err)
	assert.Equal(t, schema.Values{"dd_10"}, got.DepartmentNumber)
	assert.Equal(t, "Engineering", got.OU)
	assert.Equal(t, "1", got.ParentID)

	root, err := tr.DepartmentToDirectory(schema.ProviderDepartment{DeptID: "1", Name: "Example Corp"})
	require.NoError(t, err)
	assert.Equal(t, schema.Values{"1"}, root.DepartmentNumber)
	assert.Empty(t, root.ParentID)
	assert.True(t, root.IsRoot())
}

func TestDepartmentToDirectoryRequiresIDAndName(t *testing.T) {
	tr := newTranslator()

	_, err := tr.DepartmentToDirectory(schema.ProviderDepartment{Name: "Orphan"})
	assert.True(t, errors.Is(err, schema.ErrInvariantViolation))

	_, err = tr.DepartmentToDirectory(schema.ProviderDepartment{DeptID: "10"})
	assert.True(t, errors.Is(err, schema.ErrInvariantViolation))
}

func TestDepartmentRoundTrip(t *testing.T) {
	tr := newTranslator()
	in := schema.ProviderDepartment{DeptID: "411048776", Name: "研发", ParentID: "420727358"}

	dir, err := tr.DepartmentToDirectory(in)
	require.NoError(t, err)
	back, err := tr.DepartmentToProvider(dir)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

func TestUserToDirectory(t *testing.T) {
	tr := newTranslator()

	got, err := tr.UserToDirectory(schema.ProviderUser{
		UserID:     "u1",
		Name:       "张三",
		OrgEmail:   "zhangsan@example.org",
		Mobile:     "１３８００１３８０００",
		Title:      "技术总监",
		DeptIDList: []schema.ID{"10", "1"},
		JobNumber:  "4",
	})
	require.NoError(t, err)

	assert.Equal(t, schema.Values{"dd_u1"}, got.UniqueIdentifier)
	assert.Equal(t, "张三", got.CN)
	assert.Equal(t, schema.Values{"dd_10", "1"}, got.DepartmentNumber)
	assert.Equal(t, "4", got.EmployeeNumber)
	assert.Equal(t, "zhangsan@example.org", got.Email)
	assert.Equal(t, "13800138000", got.Mobile)
	assert.Equal(t, "技术总监", got.Title)
}

func TestUserToDirectoryRejectsBadInput(t *testing.T) {
	tr := newTranslator()

	tests := []struct {
		name string
		user schema.ProviderUser
	}{
		{"missing userid", schema.ProviderUser{Name: "张三"}},
		{"missing name", schema.ProviderUser{UserID: "u1"}},
		{"bad email", schema.ProviderUser{UserID: "u1", Name: "张三", Email: "not-an-email"}},
		{"display name email", schema.ProviderUser{UserID: "u1", Name: "张三", Email: "Zhang <z@example.org>"}},
		{"empty dept id", schema.ProviderUser{UserID: "u1", Name: "张三", DeptIDList: []schema.ID{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.UserToDirectory(tt.user)
			require.Error(t, err)
			assert.True(t, errors.Is(err, schema.ErrInvariantViolation))
		})
	}
}

func TestUserToProviderPicksFirstNamespacedValue(t *testing.T) {
	tr := newTranslator()

	got, err := tr.UserToProvider(schema.DirectoryUser{
		UniqueIdentifier: schema.Values{"legacy-77", "dd_u1", "dd_u9"},
		CN:               "张三",
		DepartmentNumber: schema.Values{"1", "dd_10", "dd_20"},
		EmployeeNumber:   "4",
		Mobile:           "13800138000",
	})
	require.NoError(t, err)
	assert.Equal(t, schema.ID("u1"), got.UserID)
	assert.Equal(t, []schema.ID{"10"}, got.DeptIDList)
	assert.Equal(t, "张三", got.Name)
	assert.Equal(t, "4", got.JobNumber)

	_, err = tr.UserToProvider(schema.DirectoryUser{UniqueIdentifier: schema.Values{"legacy-77"}, CN: "张三"})
	assert.True(t, errors.Is(err, schema.ErrNoAuthoritativeID))
}

func TestTranslateDispatch(t *testing.T) {
	tr := newTranslator()

	out, err := tr.Translate(schema.ProviderDepartment{DeptID: "10", Name: "Engineering", ParentID: "1"})
	require.NoError(t, err)
	require.Equal(t, schema.KindDirectoryDepartment, out.Kind())

	back, err := tr.Translate(out)
	require.NoError(t, err)
	assert.Equal(t, schema.KindProviderDepartment, back.Kind())

	user, err := tr.Translate(schema.ProviderUser{UserID: "u1", Name: "张三"})
	require.NoError(t, err)
	assert.Equal(t, schema.KindDirectoryUser, user.Kind())

	_, err = tr.Translate(nil)
	assert.True(t, errors.Is(err, schema.ErrUnsupportedKind))

	_, err = tr.Translate(&schema.ProviderUser{UserID: "u1", Name: "张三"})
	assert.True(t, errors.Is(err, schema.ErrUnsupportedKind))

	failed, err := tr.Translate(schema.ProviderUser{Name: "张三"})
	assert.Error(t, err)
	assert.Nil(t, failed)
}
