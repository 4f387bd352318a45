package schema

import "github.com/go-ldap/ldap/v3"

// ProviderUser is a user as returned by DingTalk's user list.
type ProviderUser struct {
	UserID     ID     `json:"userid" yaml:"userid"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email,omitempty" yaml:"email,omitempty"`
	OrgEmail   string `json:"org_email,omitempty" yaml:"org_email,omitempty"`
	Mobile     string `json:"mobile,omitempty" yaml:"mobile,omitempty"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	DeptIDList []ID   `json:"dept_id_list,omitempty" yaml:"dept_id_list,omitempty"`
	JobNumber  string `json:"job_number,omitempty" yaml:"job_number,omitempty"`
}

// DirectoryUser is a user as stored in the directory. Login handle, surname and
// password are derived when the entry is written and are not kept here.
type DirectoryUser struct {
	UniqueIdentifier Values `json:"uniqueIdentifier" yaml:"uniqueIdentifier"`
	CN               string `json:"cn" yaml:"cn"`
	DepartmentNumber Values `json:"departmentNumber,omitempty" yaml:"departmentNumber,omitempty"`
	EmployeeNumber   string `json:"employeeNumber,omitempty" yaml:"employeeNumber,omitempty"`
	Email            string `json:"mail,omitempty" yaml:"mail,omitempty"`
	Mobile           string `json:"mobile,omitempty" yaml:"mobile,omitempty"`
	Title            string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Attributes returns the mapped attributes of the user entry.
func (u DirectoryUser) Attributes() Attributes {
	attrs := Attributes{}
	attrs.Set(AttrUniqueIdentifier, u.UniqueIdentifier...)
	attrs.Set(AttrCN, u.CN)
	attrs.Set(AttrDepartmentNumber, u.DepartmentNumber...)
	attrs.Set(AttrEmployeeNumber, u.EmployeeNumber)
	attrs.Set(AttrMail, u.Email)
	attrs.Set(AttrMobile, u.Mobile)
	attrs.Set(AttrTitle, u.Title)
	return attrs
}

// DirectoryUserFromEntry reads a user entry.
func DirectoryUserFromEntry(e *ldap.Entry) DirectoryUser {
	return DirectoryUser{
		UniqueIdentifier: NewValues(e.GetAttributeValues(AttrUniqueIdentifier)...),
		CN:               e.GetAttributeValue(AttrCN),
		DepartmentNumber: NewValues(e.GetAttributeValues(AttrDepartmentNumber)...),
		EmployeeNumber:   e.GetAttributeValue(AttrEmployeeNumber),
		Email:            e.GetAttributeValue(AttrMail),
		Mobile:           e.GetAttributeValue(AttrMobile),
		Title:            e.GetAttributeValue(AttrTitle),
	}
}
