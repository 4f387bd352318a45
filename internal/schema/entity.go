package schema

// Kind identifies one of the four entity shapes.
type Kind int

const (
	KindProviderUser Kind = iota + 1
	KindDirectoryUser
	KindProviderDepartment
	KindDirectoryDepartment
)

func (k Kind) String() string {
	switch k {
	case KindProviderUser:
		return "provider-user"
	case KindDirectoryUser:
		return "directory-user"
	case KindProviderDepartment:
		return "provider-department"
	case KindDirectoryDepartment:
		return "directory-department"
	default:
		return "unknown"
	}
}

// Entity is the closed union of the user and department shapes. Only types in
// this package implement it.
type Entity interface {
	Kind() Kind
	entity()
}

func (ProviderUser) Kind() Kind        { return KindProviderUser }
func (DirectoryUser) Kind() Kind       { return KindDirectoryUser }
func (ProviderDepartment) Kind() Kind  { return KindProviderDepartment }
func (DirectoryDepartment) Kind() Kind { return KindDirectoryDepartment }

func (ProviderUser) entity()        {}
func (DirectoryUser) entity()       {}
func (ProviderDepartment) entity()  {}
func (DirectoryDepartment) entity() {}
