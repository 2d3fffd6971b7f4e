package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/quizmaster/profile-kit/pkg/policy"
)

var errInvalid = errors.New("invalid")

// evaluate prints the verdict for kind and returns errInvalid when the value
// fails the policy.
func evaluate(w io.Writer, kind, value string, asJSON bool) error {
	var (
		verdict interface{}
		valid   bool
	)
	switch kind {
	case "password":
		v := policy.EvaluatePassword(value)
		verdict, valid = v, v.IsValid
		if !asJSON {
			printPassword(w, v)
		}
	case "username":
		v := policy.EvaluateUsername(value)
		verdict, valid = v, v.IsValid
		if !asJSON {
			printLine(w, v.IsValid, v.Message)
		}
	case "email":
		v := policy.EvaluateEmail(value)
		verdict, valid = v, v.IsValid
		if !asJSON {
			printLine(w, v.IsValid, v.Message)
		}
	default:
		return fmt.Errorf("unknown command %q", kind)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(verdict); err != nil {
			return err
		}
	}
	if !valid {
		return errInvalid
	}
	return nil
}

func printPassword(w io.Writer, v policy.PasswordVerdict) {
	fmt.Fprintf(w, "strength: %s (%d/%d)\n", v.Strength, v.ScoreAchieved, policy.RequiredScore)
	for _, r := range v.RuleResults {
		mark := "x"
		if r.Satisfied {
			mark = "ok"
		}
		fmt.Fprintf(w, "  [%s] %s\n", mark, r.Label)
	}
	printLine(w, v.IsValid, v.Message)
}

func printLine(w io.Writer, valid bool, message string) {
	status := "invalid"
	if valid {
		status = "valid"
	}
	fmt.Fprintf(w, "%s: %s\n", status, message)
}
