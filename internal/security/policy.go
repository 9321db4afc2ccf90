package security

import (
	"errors"
	"strings"
)

var ErrWeakPassword = errors.New("password does not meet policy requirements")

// PasswordPolicy decides whether a candidate password is acceptable for the
// given identity. Implementations return ErrWeakPassword (possibly wrapped)
// on rejection.
type PasswordPolicy interface {
	Validate(password, email string) error
}

// DefaultPasswordPolicy rejects short passwords, entries from a common-password
// list, and passwords too similar to the account email.
type DefaultPasswordPolicy struct {
	MinLength int
	common    map[string]struct{}
}

// Drawn from the top of the usual breached-password lists; matched
// case-insensitively.
var commonPasswords = []string{
	"password", "password1", "password123", "12345678", "123456789",
	"qwerty123", "letmein1", "iloveyou", "admin123", "welcome1",
	"sunshine", "princess", "football", "monkey123", "dragon123",
}

func NewDefaultPasswordPolicy(minLength int) *DefaultPasswordPolicy {
	if minLength <= 0 {
		minLength = 8
	}
	common := make(map[string]struct{}, len(commonPasswords))
	for _, p := range commonPasswords {
		common[p] = struct{}{}
	}
	return &DefaultPasswordPolicy{MinLength: minLength, common: common}
}

func (p *DefaultPasswordPolicy) Validate(password, email string) error {
	if len(password) < p.MinLength {
		return ErrWeakPassword
	}
	lowered := strings.ToLower(password)
	if _, ok := p.common[lowered]; ok {
		return ErrWeakPassword
	}
	if tooSimilar(lowered, strings.ToLower(email)) {
		return ErrWeakPassword
	}
	return nil
}

// tooSimilar flags passwords that contain, or are contained in, the local part
// of the email address.
func tooSimilar(password, email string) bool {
	if email == "" {
		return false
	}
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}
	if len(local) < 4 {
		return false
	}
	return strings.Contains(password, local) || strings.Contains(local, password)
}
