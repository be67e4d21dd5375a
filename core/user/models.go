package user

import (
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/educonnect/backend/core"
)

// Roles. A user is exactly one of these; the role decides which identity
// field (email vs registration number) the account is keyed by.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

var AllRoles = []Role{RoleStudent, RoleTeacher}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleTeacher
}

type User struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Role               Role      `json:"role"`
	Email              string    `json:"email,omitempty"`               // teachers
	RegistrationNumber string    `json:"registration_number,omitempty"` // students
	IsActive           bool      `json:"is_active"`
	PasswordHash       []byte    `json:"-"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
	LastLogin          time.Time `json:"last_login"` // UTC
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

// Identifier returns the role-specific unique key this account is looked up by.
func (u User) Identifier() string {
	if u.Role == RoleTeacher {
		return u.Email
	}
	return u.RegistrationNumber
}

func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// IsEmailIdentifier reports whether a login identifier should be resolved
// against the email column rather than the registration number.
func IsEmailIdentifier(identifier string) bool {
	return strings.ContainsRune(identifier, '@')
}

// NewUser contains information needed to create a new User.
// Exactly one identity field is required, depending on Role; enforced by
// the struct-level validation in validators.go.
type NewUser struct {
	Name               string `json:"name" validate:"required"`
	Role               Role   `json:"role" validate:"required,userrole"`
	Email              string `json:"email" validate:"omitempty,email"`
	RegistrationNumber string `json:"registration_number" validate:"omitempty,min=4,alphanum_"`
	Password           string `json:"password" validate:"required"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.RegistrationNumber = core.CleanString(nu.RegistrationNumber, true /* lower */)
	nu.Role = Role(core.CleanString(string(nu.Role), true /* lower */))

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email, nu.RegistrationNumber)
}

// UpdateUser defines what information may be provided to modify an existing User.
// The role itself is immutable after creation.
type UpdateUser struct {
	Name               string `json:"name"`
	Email              string `json:"email" validate:"omitempty,email"`
	RegistrationNumber string `json:"registration_number" validate:"omitempty,min=4,alphanum_"`
	IsActive           *bool  `json:"is_active"`
	Password           string `json:"password" validate:"omitempty"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	regNum := core.CleanString(uu.RegistrationNumber, true /* lower */)
	if regNum != "" {
		uu.RegistrationNumber = regNum
	} else {
		uu.RegistrationNumber = origUsr.RegistrationNumber
	}

	// teachers are keyed by email and never carry a registration number
	if origUsr.Role == RoleTeacher {
		uu.RegistrationNumber = ""
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Email, uu.RegistrationNumber, origUsr)
}

type ResetUserPassword struct {
	Token    string `json:"token,omitempty" validate:"required"`
	UID      string `json:"uid,omitempty" validate:"required"`
	Password string `json:"password,omitempty" validate:"required"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        Role      `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = Role(core.CleanString(string(qf.Role), true /* lower */))
}

// GetFilter selects a single user; the first non-empty field wins.
type GetFilter struct {
	ID                 string
	Email              string
	RegistrationNumber string
	Identifier         string // resolved by shape: email if it contains "@"
}

// InitValidators registers this package's custom validators; must be called
// once at startup after core.InitValidators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	initValidators(validate, translator)
}
