package schema

import "github.com/go-ldap/ldap/v3"

// ProviderDepartment is a department as returned by DingTalk.
type ProviderDepartment struct {
	DeptID   ID     `json:"dept_id" yaml:"dept_id"`
	Name     string `json:"name" yaml:"name"`
	ParentID ID     `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
}

func (d ProviderDepartment) IsRoot() bool { return string(d.DeptID) == RootID }

// DirectoryDepartment is a department as stored in the directory.
type DirectoryDepartment struct {
	DepartmentNumber Values `json:"departmentNumber" yaml:"departmentNumber"`
	OU               string `json:"ou" yaml:"ou"`
	// ParentID has no directory attribute; it only guides placement.
	ParentID string `json:"parentId,omitempty" yaml:"parentId,omitempty"`
}

// IsRoot reports whether the department is the root department, which is
// matched by name or number rather than both.
func (d DirectoryDepartment) IsRoot() bool {
	return len(d.DepartmentNumber) == 1 && d.DepartmentNumber[0] == RootID
}

// Attributes returns the attributes written for the department entry.
func (d DirectoryDepartment) Attributes() Attributes {
	attrs := Attributes{}
	attrs.Set(AttrOU, d.OU)
	attrs.Set(AttrCN, d.OU)
	attrs.Set(AttrDepartmentNumber, d.DepartmentNumber...)
	return attrs
}

// DirectoryDepartmentFromEntry reads a department entry.
func DirectoryDepartmentFromEntry(e *ldap.Entry) DirectoryDepartment {
	return DirectoryDepartment{
		DepartmentNumber: NewValues(e.GetAttributeValues(AttrDepartmentNumber)...),
		OU:               e.GetAttributeValue(AttrOU),
	}
}
