package policy

import (
	"strings"
	"unicode/utf8"
)

// MinPasswordLen is the shortest password accepted by the length rule.
const MinPasswordLen = 8

// RequiredScore is the number of base rules a password must satisfy.
const RequiredScore = 5

// Feedback markers prefixed to every line of a verdict message.
const (
	MarkPass = "✓"
	MarkFail = "✗"
)

// MessageTooCommon is returned for passwords found in the common-password denylist.
const MessageTooCommon = "password too common"

// RuleID identifies a single password rule.
type RuleID string

const (
	RuleLength     RuleID = "length"
	RuleUppercase  RuleID = "uppercase"
	RuleLowercase  RuleID = "lowercase"
	RuleDigit      RuleID = "digit"
	RuleSpecial    RuleID = "special"
	RuleSequential RuleID = "sequential"
	RuleRepeat     RuleID = "repeat"
)

// RuleResult is the outcome of one rule.
type RuleResult struct {
	Rule      RuleID `json:"rule"`
	Satisfied bool   `json:"satisfied"`
	Label     string `json:"label"`
}

// PasswordVerdict is the structured result of EvaluatePassword.
//
// ScoreAchieved counts only the five base rules. StrengthScore additionally
// subtracts one point each for sequential runs and repeated characters and is
// meant for strength meters; it never affects IsValid.
type PasswordVerdict struct {
	ScoreAchieved int          `json:"score_achieved"`
	StrengthScore int          `json:"strength_score"`
	Strength      string       `json:"strength"`
	RuleResults   []RuleResult `json:"rule_results"`
	Denylisted    bool         `json:"denylisted"`
	IsValid       bool         `json:"is_valid"`
	Message       string       `json:"message"`
}

type passwordRule struct {
	id    RuleID
	label string
	check func(string) bool
}

// base rules, in their fixed reporting order
var baseRules = []passwordRule{
	{RuleLength, "At least 8 characters", func(p string) bool { return utf8.RuneCountInString(p) >= MinPasswordLen }},
	{RuleUppercase, "One uppercase letter", func(p string) bool { return strings.IndexFunc(p, isUpper) >= 0 }},
	{RuleLowercase, "One lowercase letter", func(p string) bool { return strings.IndexFunc(p, isLower) >= 0 }},
	{RuleDigit, "One number", func(p string) bool { return strings.IndexFunc(p, isDigit) >= 0 }},
	{RuleSpecial, "One special character", func(p string) bool {
		return strings.IndexFunc(p, func(r rune) bool { return !isAlnum(r) }) >= 0
	}},
}

// penalty checks; a satisfied result means the pattern was NOT found
var penaltyRules = []passwordRule{
	{RuleSequential, "No sequential characters (abc, 123)", func(p string) bool { return !HasSequentialRun(p) }},
	{RuleRepeat, "No repeated characters (aaa)", func(p string) bool { return !HasRepeatedRun(p) }},
}

// EvaluatePassword scores a password against the shared password policy.
// It is pure and safe for concurrent use.
func EvaluatePassword(password string) PasswordVerdict {
	if IsCommonPassword(password) {
		return PasswordVerdict{
			Denylisted:  true,
			RuleResults: []RuleResult{},
			Strength:    StrengthLabel(0),
			Message:     MessageTooCommon,
		}
	}

	results := make([]RuleResult, 0, len(baseRules)+len(penaltyRules))
	score := 0
	for _, rule := range baseRules {
		ok := rule.check(password)
		if ok {
			score++
		}
		results = append(results, RuleResult{Rule: rule.id, Satisfied: ok, Label: rule.label})
	}

	strength := score
	for _, rule := range penaltyRules {
		ok := rule.check(password)
		if !ok && strength > 0 {
			strength--
		}
		results = append(results, RuleResult{Rule: rule.id, Satisfied: ok, Label: rule.label})
	}

	return PasswordVerdict{
		ScoreAchieved: score,
		StrengthScore: strength,
		Strength:      StrengthLabel(strength),
		RuleResults:   results,
		IsValid:       score >= RequiredScore,
		Message:       feedback(results),
	}
}

// StrengthLabel maps a strength score to the label shown next to the meter.
func StrengthLabel(score int) string {
	switch {
	case score >= 5:
		return "strong"
	case score == 4:
		return "good"
	case score == 3:
		return "fair"
	default:
		return "weak"
	}
}

// HasSequentialRun reports whether s contains three or more consecutive
// ascending letters or digits, such as "abc", "XYZ" or "789".
func HasSequentialRun(s string) bool {
	b := []byte(strings.ToLower(s))
	for i := 0; i+2 < len(b); i++ {
		if !sameClass(b[i], b[i+1], b[i+2]) {
			continue
		}
		if b[i+1] == b[i]+1 && b[i+2] == b[i+1]+1 {
			return true
		}
	}
	return false
}

// HasRepeatedRun reports whether s repeats the same character three or more
// times in a row.
func HasRepeatedRun(s string) bool {
	r := []rune(s)
	for i := 0; i+2 < len(r); i++ {
		if r[i] == r[i+1] && r[i+1] == r[i+2] {
			return true
		}
	}
	return false
}

func feedback(results []RuleResult) string {
	lines := make([]string, len(results))
	for i, res := range results {
		mark := MarkFail
		if res.Satisfied {
			mark = MarkPass
		}
		lines[i] = mark + " " + res.Label
	}
	return strings.Join(lines, "\n")
}

func sameClass(a, b, c byte) bool {
	letters := isLowerByte(a) && isLowerByte(b) && isLowerByte(c)
	digits := isDigitByte(a) && isDigitByte(b) && isDigitByte(c)
	return letters || digits
}

func isUpper(r rune) bool     { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool     { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool     { return r >= '0' && r <= '9' }
func isAlnum(r rune) bool     { return isUpper(r) || isLower(r) || isDigit(r) }
func isLowerByte(b byte) bool { return b >= 'a' && b <= 'z' }
func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }
