package access

import "strings"

// Role is the normalised role of a user profile.
type Role string

// Roles
const (
	RoleUnknown  Role = ""
	RoleDirector Role = "director"
	RoleTeacher  Role = "teacher"
	RoleGuardian Role = "guardian"
)

var (
	AllRoles = []Role{RoleDirector, RoleTeacher, RoleGuardian}

	// RoleOptions are the roles exposed to clients.
	RoleOptions = []RoleOption{
		{Name: "Dirección", Value: RoleDirector},
		{Name: "Maestra", Value: RoleTeacher},
		{Name: "Padre/Tutor", Value: RoleGuardian},
	}

	roleAliases = map[string]Role{
		"director":  RoleDirector,
		"directora": RoleDirector,
		"teacher":   RoleTeacher,
		"maestra":   RoleTeacher,
		"maestro":   RoleTeacher,
		"guardian":  RoleGuardian,
		"parent":    RoleGuardian,
		"padre":     RoleGuardian,
		"madre":     RoleGuardian,
		"tutor":     RoleGuardian,
	}
)

type RoleOption struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

// ParseRole maps any known spelling of a role to its Role. Unknown values yield RoleUnknown.
func ParseRole(s string) Role {
	return roleAliases[strings.ToLower(strings.TrimSpace(s))]
}

// IsValidRole reports whether s is a known role spelling.
func IsValidRole(s string) bool {
	return ParseRole(s) != RoleUnknown
}

func (r Role) String() string { return string(r) }

func (r Role) IsDirector() bool { return r == RoleDirector }
func (r Role) IsTeacher() bool  { return r == RoleTeacher }
func (r Role) IsGuardian() bool { return r == RoleGuardian }

// IsStaff reports whether r belongs to school staff (director or teacher).
func (r Role) IsStaff() bool {
	return r == RoleDirector || r == RoleTeacher
}
