package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/quizmaster/profile-kit/pkg/policy"
)

// Struct tags backed by the shared validation policy.
const (
	TagPassword = "qm_password"
	TagUsername = "qm_username"
	TagEmail    = "qm_email"
)

// FieldError is one failed field, keyed by its JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator validates structs with the policy tags registered.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := Register(v); err != nil {
		// registration only fails on an empty tag name
		panic(err)
	}
	return &Validator{v: v}
}

// Register installs the policy tags and JSON field naming on v, so gin's
// binding engine reports the same fields and rules.
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		TagPassword: func(fl validator.FieldLevel) bool {
			return policy.EvaluatePassword(fl.Field().String()).IsValid
		},
		TagUsername: func(fl validator.FieldLevel) bool {
			return policy.EvaluateUsername(fl.Field().String()).IsValid
		},
		TagEmail: func(fl validator.FieldLevel) bool {
			return policy.EvaluateEmail(fl.Field().String()).IsValid
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return nil
}

// Engine exposes the underlying validator.
func (v *Validator) Engine() *validator.Validate {
	return v.v
}

// Struct validates s and returns every failed field in declaration order.
// A nil result means s is valid.
func (v *Validator) Struct(s interface{}) ([]FieldError, error) {
	err := v.v.Struct(s)
	if err == nil {
		return nil, nil
	}
	fields := Translate(err)
	if fields == nil {
		return nil, err
	}
	return fields, nil
}

// Translate turns validator errors into FieldErrors. Policy tags carry the
// policy's own message. It returns nil when err holds no field errors.
func Translate(err error) []FieldError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}
	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		out = append(out, FieldError{Field: e.Field(), Message: message(e)})
	}
	return out
}

func message(e validator.FieldError) string {
	value, _ := e.Value().(string)
	switch e.Tag() {
	case TagPassword:
		return policy.EvaluatePassword(value).Message
	case TagUsername:
		return policy.EvaluateUsername(value).Message
	case TagEmail:
		return policy.EvaluateEmail(value).Message
	case "required", "required_with":
		return fmt.Sprintf("%s is required", e.Field())
	case "eqfield":
		return "passwords do not match"
	case "nefield":
		return "new password must differ from the current one"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), strings.ReplaceAll(e.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
