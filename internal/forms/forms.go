package forms

import (
	"strings"

	"github.com/quizmaster/profile-kit/pkg/validator"
)

// Signup is the account creation form.
type Signup struct {
	Name            string `json:"name" validate:"max=100"`
	Username        string `json:"username" validate:"qm_username"`
	Email           string `json:"email" validate:"qm_email"`
	Password        string `json:"password" validate:"qm_password"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=teacher student"`
}

// ResetPassword is submitted from the emailed reset link.
type ResetPassword struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"qm_password"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

// Settings is the profile settings form. The password fields are optional
// as a group.
type Settings struct {
	Name            string `json:"name" validate:"required,max=100"`
	Username        string `json:"username" validate:"qm_username"`
	Email           string `json:"email" validate:"qm_email"`
	CurrentPassword string `json:"current_password" validate:"required_with=NewPassword"`
	NewPassword     string `json:"new_password" validate:"omitempty,qm_password,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=NewPassword"`
}

// Result is the verdict for a whole form.
type Result struct {
	Valid  bool                   `json:"valid"`
	Errors []validator.FieldError `json:"errors"`
}

// Normalizer is implemented by forms that clean up input before validation.
type Normalizer interface {
	Normalize()
}

func (f *Signup) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.Role = strings.ToLower(strings.TrimSpace(f.Role))
}

func (f *Settings) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

// Checker validates forms against the shared policy.
type Checker struct {
	v *validator.Validator
}

func NewChecker(v *validator.Validator) *Checker {
	if v == nil {
		v = validator.New()
	}
	return &Checker{v: v}
}

// Check normalizes form when it supports it and validates it. form must be a
// pointer to one of the form structs.
func (c *Checker) Check(form interface{}) (Result, error) {
	if n, ok := form.(Normalizer); ok {
		n.Normalize()
	}
	fields, err := c.v.Struct(form)
	if err != nil {
		return Result{}, err
	}
	if fields == nil {
		fields = []validator.FieldError{}
	}
	return Result{Valid: len(fields) == 0, Errors: fields}, nil
}
