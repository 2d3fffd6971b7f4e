package policy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 100
)

// UsernameRule names the check that decided a username verdict.
type UsernameRule string

const (
	UsernameOK       UsernameRule = ""
	UsernameRequired UsernameRule = "required"
	UsernameTooLong  UsernameRule = "max_length"
	UsernameTooShort UsernameRule = "min_length"
	UsernameCharset  UsernameRule = "charset"
	UsernameReserved UsernameRule = "reserved"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9\s\-_.]+$`)

// UsernameVerdict is the structured result of EvaluateUsername.
type UsernameVerdict struct {
	TrimmedValue string       `json:"trimmed_value"`
	IsValid      bool         `json:"is_valid"`
	Rule         UsernameRule `json:"rule,omitempty"`
	Message      string       `json:"message"`
}

// EvaluateUsername trims the input and applies the username rules in order.
// Only the first violated rule is reported.
func EvaluateUsername(username string) UsernameVerdict {
	trimmed := strings.TrimSpace(username)
	v := UsernameVerdict{TrimmedValue: trimmed}

	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return v.fail(UsernameRequired, "username required")
	case n > MaxUsernameLen:
		return v.fail(UsernameTooLong, fmt.Sprintf("username must be at most %d characters", MaxUsernameLen))
	case n < MinUsernameLen:
		return v.fail(UsernameTooShort, fmt.Sprintf("username must be at least %d characters", MinUsernameLen))
	case !usernamePattern.MatchString(trimmed):
		return v.fail(UsernameCharset, "username may only contain letters, numbers, spaces, hyphens, underscores and periods")
	case IsReservedUsername(trimmed):
		return v.fail(UsernameReserved, "username is reserved")
	}

	v.IsValid = true
	v.Message = "username is valid"
	return v
}

func (v UsernameVerdict) fail(rule UsernameRule, msg string) UsernameVerdict {
	v.Rule = rule
	v.Message = msg
	return v
}
