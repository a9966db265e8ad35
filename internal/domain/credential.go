package domain

// Role tags an authenticated identity.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Identity is the result of a successful login.
type Identity struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	ClassID  string `json:"classId,omitempty"`
}

// Credential is a stored row of the teacher or student identity table.
type Credential struct {
	Username string
	Password string
	Name     string
	// Extra is the role-specific column: role for teachers, classId for students.
	Extra string
}

// AppSettings is the key/value configuration exposed to clients.
type AppSettings struct {
	AppName    string `json:"appName"`
	SchoolName string `json:"schoolName"`
}

// DefaultAppSettings returns the values used when the Config table has no entry.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		AppName:    "TKA SDNUP03",
		SchoolName: "SDN Utan Panjang 03",
	}
}
