package domain

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	PasswordHash         string     `json:"-"`
	Role                 string     `json:"role"`
	Photo                string     `json:"photo"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   *string    `json:"-"` // sha256 hex of the mailed token
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// UserInfo is the public representation of a user.
type UserInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Photo string `json:"photo"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
		Photo: u.Photo,
	}
}

// ChangedPasswordAfter reports whether the password was changed after the
// given token issuance time. Tokens issued before a password change are stale.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Before(*u.PasswordChangedAt)
}

// Valid user roles
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

var validRoles = map[string]bool{
	RoleUser:      true,
	RoleGuide:     true,
	RoleLeadGuide: true,
	RoleAdmin:     true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type UpdateMeRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Photo *string `json:"photo,omitempty"`
}

// UserPatch is the admin-side partial update. Password mutations never go
// through this path.
type UserPatch struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Role   *string `json:"role,omitempty"`
	Photo  *string `json:"photo,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

func (r *SignupRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
}

func (r *SignupRequest) Validate() error {
	if r.Name == "" {
		return Invalid("name is required")
	}
	if r.Email == "" {
		return Invalid("email is required")
	}
	if !isValidEmail(r.Email) {
		return Invalid("invalid email format")
	}
	if err := validatePassword(r.Password, r.PasswordConfirm); err != nil {
		return err
	}
	return nil
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return Invalid("please provide email and password")
	}
	return nil
}

func (r *ResetPasswordRequest) Validate() error {
	return validatePassword(r.Password, r.PasswordConfirm)
}

func (r *UpdatePasswordRequest) Validate() error {
	if r.PasswordCurrent == "" {
		return Invalid("current password is required")
	}
	return validatePassword(r.Password, r.PasswordConfirm)
}

func (r *UpdateMeRequest) Normalize() {
	if r.Email != nil {
		e := NormalizeEmail(*r.Email)
		r.Email = &e
	}
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		r.Name = &n
	}
}

func (r *UpdateMeRequest) Validate() error {
	if r.Email != nil && !isValidEmail(*r.Email) {
		return Invalid("invalid email format")
	}
	if r.Name != nil && *r.Name == "" {
		return Invalid("name cannot be empty")
	}
	return nil
}

func (p *UserPatch) Normalize() {
	if p.Email != nil {
		e := NormalizeEmail(*p.Email)
		p.Email = &e
	}
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		p.Name = &n
	}
}

func (p *UserPatch) Validate() error {
	if p.Role != nil && !validRoles[*p.Role] {
		return Invalid("invalid role")
	}
	if p.Email != nil && !isValidEmail(*p.Email) {
		return Invalid("invalid email format")
	}
	return nil
}

func validatePassword(password, confirm string) error {
	if password == "" {
		return Invalid("password is required")
	}
	if len(password) < 8 {
		return Invalid("password must be at least 8 characters")
	}
	if password != confirm {
		return Invalid("passwords are not the same")
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
