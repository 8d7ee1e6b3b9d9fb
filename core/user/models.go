package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
)

// User is an account and its profile. SchoolID is empty when the profile has no school.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	DisplayName  string      `json:"display_name"`
	Role         access.Role `json:"role"`
	SchoolID     string      `json:"school_id"`
	IsActive     bool        `json:"is_active"`
	PasswordHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
	LastLogin    time.Time   `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Caller returns the identity the access rules are evaluated against.
func (u User) Caller() access.Caller {
	return access.Caller{UserID: u.ID, Role: u.Role, SchoolID: u.SchoolID}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Email           string `json:"email" validate:"required,email"`
	DisplayName     string `json:"display_name" validate:"required"`
	Role            string `json:"role" validate:"required,role"`
	SchoolID        string `json:"school_id"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) clean() {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.DisplayName = core.CleanString(nu.DisplayName)
	nu.Role = core.CleanString(nu.Role)
	nu.SchoolID = core.CleanString(nu.SchoolID)
}

// UpdateProfile defines what an administrator may change on an existing User.
// Nil fields are left untouched; an empty SchoolID detaches the profile from its school.
type UpdateProfile struct {
	DisplayName string  `json:"display_name"`
	Role        string  `json:"role" validate:"omitempty,role"`
	SchoolID    *string `json:"school_id"`
	IsActive    *bool   `json:"is_active"`
}

func (up *UpdateProfile) apply(usr *User) {
	if name := core.CleanString(up.DisplayName); name != "" {
		usr.DisplayName = name
	}
	if up.Role != "" {
		usr.Role = access.ParseRole(up.Role)
	}
	if up.SchoolID != nil {
		usr.SchoolID = core.CleanString(*up.SchoolID)
	}
	if up.IsActive != nil {
		usr.IsActive = *up.IsActive
	}
}

type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// QueryFilter narrows user listings; empty fields do not filter.
// Search does a case-insensitive match on DisplayName or Email.
type QueryFilter struct {
	SchoolID string
	Roles    []access.Role
	Search   string
	IsActive *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SchoolID = core.CleanString(qf.SchoolID)
}

func (qf QueryFilter) IsEmpty() bool {
	return qf.SchoolID == "" && len(qf.Roles) == 0 && qf.Search == "" && qf.IsActive == nil
}
