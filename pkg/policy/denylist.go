package policy

import "strings"

// ProductName is the product's own name; it is reserved as a username.
const ProductName = "quizmaster"

// commonPasswords holds lower-cased passwords rejected outright. Several of
// them satisfy every composition rule, which is why the denylist is checked
// before scoring.
var commonPasswords = toSet(
	"123456", "12345678", "123456789", "1234567890", "111111", "000000",
	"123123", "654321", "password", "password1", "password123", "passw0rd",
	"qwerty", "qwerty123", "abc123", "letmein", "welcome", "monkey",
	"iloveyou", "dragon", "football", "baseball", "sunshine", "princess",
	"admin", "admin123", "login", "master", "trustno1", "starwars",
	"p@ssw0rd", "p@ssword1", "p@ssw0rd1", "p@ssw0rd!", "password1!", "password123!",
	"passw0rd!", "qwerty123!", "welcome1!", "welcome123!", "admin@123", "admin123!",
	"letmein1!", "iloveyou1!", "abc123!@#", "changeme1!", "summer2024!", "winter2024!",
	"quizmaster", "quizmaster1", "quizmaster1!", "quizmaster123!",
)

// reservedUsernames are refused regardless of letter case.
var reservedUsernames = toSet(
	"admin", "administrator", "system", "root", "superuser",
	ProductName, "teacher", "student", "user", "test", "demo",
)

// IsCommonPassword reports whether the lower-cased password is denylisted.
func IsCommonPassword(password string) bool {
	_, ok := commonPasswords[strings.ToLower(password)]
	return ok
}

// IsReservedUsername reports whether name matches a reserved name,
// ignoring case. The caller is expected to trim it first.
func IsReservedUsername(name string) bool {
	_, ok := reservedUsernames[strings.ToLower(name)]
	return ok
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
