package schema

// Directory attribute names.
const (
	AttrObjectClass      = "objectClass"
	AttrOU               = "ou"
	AttrCN               = "cn"
	AttrSN               = "sn"
	AttrUID              = "uid"
	AttrMail             = "mail"
	AttrMobile           = "mobile"
	AttrTitle            = "title"
	AttrUniqueIdentifier = "uniqueIdentifier"
	AttrDepartmentNumber = "departmentNumber"
	AttrEmployeeNumber   = "employeeNumber"
	AttrUserPassword     = "userPassword"
	AttrMember           = "member"
)

// Attributes is a directory attribute set keyed by attribute name.
type Attributes map[string][]string

// Set stores values under name, ignoring empty input.
func (a Attributes) Set(name string, values ...string) {
	vs := NewValues(values...)
	if len(vs) == 0 {
		return
	}
	a[name] = vs
}
