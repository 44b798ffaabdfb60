package user

import (
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/escola/core"
)

// Role is the closed set of user kinds.
type Role string

// Roles
const (
	RoleManager  Role = "manager"
	RoleTeacher  Role = "teacher"
	RoleStudent  Role = "student"
	RoleGuardian Role = "guardian"
)

var (
	AllRoles = []Role{RoleManager, RoleTeacher, RoleStudent, RoleGuardian}

	roleLabels = map[Role]string{
		RoleManager:  "Manager",
		RoleTeacher:  "Teacher",
		RoleStudent:  "Student",
		RoleGuardian: "Guardian",
	}

	ErrInvalidRole = errors.New("invalid role")
)

func ParseRole(s string) (Role, error) {
	r := Role(core.CleanString(s, true /* lower */))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

func (r Role) Label() string { return roleLabels[r] }

func (r Role) String() string { return string(r) }

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity is the authenticated caller of a request.
type Identity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (id Identity) IsZero() bool { return id.ID == 0 }

type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Role         Role      `db:"role" json:"role"`
	PasswordHash []byte    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"` // UTC
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"` // UTC
	LastLogin    null.Time `db:"last_login" json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Role: u.Role}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `form:"name" validate:"required,notblank"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,pwdminlen,pwdmaxlen,pwdnospace,pwdnotallnum"`
	Role     string `form:"role" validate:"required,role"`
}

func (nu *NewUser) clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
}

// UpdateUser defines what a manager may change on an existing User.
type UpdateUser struct {
	Name  string `form:"name" validate:"required,notblank"`
	Email string `form:"email" validate:"required,email"`
	Role  string `form:"role" validate:"required,role"`
}

func (uu *UpdateUser) clean() {
	uu.Name = core.CleanString(uu.Name)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	uu.Role = core.CleanString(uu.Role, true /* lower */)
}

// UpdateProfile defines what users may change on their own account.
type UpdateProfile struct {
	Name            string `form:"name" validate:"required,notblank"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"omitempty,pwdminlen,pwdmaxlen,pwdnospace,pwdnotallnum"`
	PasswordConfirm string `form:"password_confirm" validate:"eqfield=Password"`
}

func (up *UpdateProfile) clean() {
	up.Name = core.CleanString(up.Name)
	up.Email = core.CleanString(up.Email, true /* lower */)
}

type ResetUserPassword struct {
	Token           string `param:"token" form:"token" validate:"required"`
	Password        string `form:"password" validate:"required,pwdminlen,pwdmaxlen,pwdnospace,pwdnotallnum"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}

type QueryFilter struct {
	Role   Role   `query:"role"`
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if !qf.Role.Valid() {
		qf.Role = ""
	}
}

// RoleCounts holds the number of users per Role.
type RoleCounts map[Role]int
