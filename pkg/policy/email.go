package policy

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxEmailLen matches the column limit used by the profile backend.
const MaxEmailLen = 254

var validate = validator.New(validator.WithRequiredStructEnabled())

// EmailVerdict is the structured result of EvaluateEmail.
type EmailVerdict struct {
	TrimmedValue string `json:"trimmed_value"`
	IsValid      bool   `json:"is_valid"`
	Message      string `json:"message"`
}

// EvaluateEmail checks the trimmed address for presence, length and format.
func EvaluateEmail(email string) EmailVerdict {
	trimmed := strings.TrimSpace(email)
	v := EmailVerdict{TrimmedValue: trimmed}

	switch {
	case trimmed == "":
		v.Message = "email required"
	case len(trimmed) > MaxEmailLen:
		v.Message = "email is too long"
	case validate.Var(trimmed, "email") != nil:
		v.Message = "email is not a valid address"
	default:
		v.IsValid = true
		v.Message = "email is valid"
	}
	return v
}
