package password

import "errors"

// Policy limits. A secret must carry at least one character from each class
// and stay within the length bounds.
const (
	policyMinLength = 8
	policyMaxLength = 128
)

var (
	// ErrPolicyTooShort is returned when a secret is under 8 characters.
	ErrPolicyTooShort = errors.New("password must be at least 8 characters")
	// ErrPolicyTooLong is returned when a secret exceeds 128 characters.
	ErrPolicyTooLong = errors.New("password must be at most 128 characters")
	// ErrPolicyMissingUpper is returned when no uppercase letter is present.
	ErrPolicyMissingUpper = errors.New("password must contain an uppercase letter")
	// ErrPolicyMissingLower is returned when no lowercase letter is present.
	ErrPolicyMissingLower = errors.New("password must contain a lowercase letter")
	// ErrPolicyMissingDigit is returned when no digit is present.
	ErrPolicyMissingDigit = errors.New("password must contain a digit")
	// ErrPolicyMissingSpecial is returned when no special character is present.
	ErrPolicyMissingSpecial = errors.New("password must contain a special character")
)

// Validate checks a candidate secret against the account password policy:
// 8-128 characters with at least one uppercase letter, one lowercase letter,
// one digit and one special character. The first violation found is returned.
func Validate(secret string) error {
	if len(secret) < policyMinLength {
		return ErrPolicyTooShort
	}
	if len(secret) > policyMaxLength {
		return ErrPolicyTooLong
	}

	var upper, lower, digit, special bool
	for _, r := range secret {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}

	if !upper {
		return ErrPolicyMissingUpper
	}
	if !lower {
		return ErrPolicyMissingLower
	}
	if !digit {
		return ErrPolicyMissingDigit
	}
	if !special {
		return ErrPolicyMissingSpecial
	}
	return nil
}
