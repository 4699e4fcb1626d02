package service

import (
	"regexp"
	"strings"
)

// Error strings match what the front-end renders; they are accumulated so
// every problem with a form is reported at once.
const (
	msgInvalidUsername = "Invalid username."
	msgInvalidEmail    = "Invalid Email."
	msgInvalidPassword = "Invalid Password."
)

// ValidationErrors is the accumulated list of problems with a submitted
// form. It is an error so callers can branch with errors.As, but handlers
// should render the whole list, not just the first entry.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return strings.Join(v, "; ")
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const passwordSymbols = "!@#$%^&*()_+{}|:'<>,.?/~`"

const (
	usernameMinLen = 3
	usernameMaxLen = 35
	passwordMinLen = 8
	passwordMaxLen = 30
)

// NormalizeEmail applies the canonical form every lookup and store uses:
// trimmed, lowercase.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// passwordMeetsPolicy reports whether the password is 8-30 characters drawn
// only from letters, digits and the fixed symbol set, with at least one
// uppercase letter, one lowercase letter, one digit and one symbol.
func passwordMeetsPolicy(password string) bool {
	if len(password) < passwordMinLen || len(password) > passwordMaxLen {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, c):
			hasSymbol = true
		default:
			// Anything outside the allowed alphabet fails the policy.
			return false
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

func validateUsername(username string, errs ValidationErrors) ValidationErrors {
	if username == "" || len(username) < usernameMinLen || len(username) > usernameMaxLen {
		errs = append(errs, msgInvalidUsername)
	}
	return errs
}

func validateEmail(email string, errs ValidationErrors) ValidationErrors {
	if email == "" || !emailPattern.MatchString(email) {
		errs = append(errs, msgInvalidEmail)
	}
	return errs
}

// validatePasswordPair checks password+confirmation together: an empty or
// mismatched pair reports the generic password error once and skips the
// complexity check, otherwise complexity is enforced.
func validatePasswordPair(password, confirm string, errs ValidationErrors) ValidationErrors {
	if password == "" || confirm == "" || password != confirm {
		return append(errs, msgInvalidPassword)
	}
	if !passwordMeetsPolicy(password) {
		return append(errs, msgInvalidPassword)
	}
	return errs
}

// RegisterForm carries the raw signup fields; Validate trims and
// normalizes as it checks.
type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Normalize trims every field and lowercases the email. Call before
// Validate; the normalized values are what get persisted.
func (f *RegisterForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = NormalizeEmail(f.Email)
	f.Password = strings.TrimSpace(f.Password)
	f.ConfirmPassword = strings.TrimSpace(f.ConfirmPassword)
}

// Validate checks every rule and accumulates failures; it never
// short-circuits across fields.
func (f RegisterForm) Validate() ValidationErrors {
	var errs ValidationErrors
	errs = validateUsername(f.Username, errs)
	errs = validateEmail(f.Email, errs)
	errs = validatePasswordPair(f.Password, f.ConfirmPassword, errs)
	return errs
}

// validateLogin applies the registration rules minus username and
// confirmation. An empty password reports the password error without
// running the complexity check.
func validateLogin(email, password string) ValidationErrors {
	var errs ValidationErrors
	errs = validateEmail(email, errs)
	if password == "" {
		return append(errs, msgInvalidPassword)
	}
	if !passwordMeetsPolicy(password) {
		errs = append(errs, msgInvalidPassword)
	}
	return errs
}
