package auth

import "errors"

// The caller-facing error taxonomy. Handlers branch on these with
// errors.Is; messages are stable and never leak account existence beyond
// what the kind itself reveals.
var (
	// ErrValidationFailed covers malformed input and password-policy
	// violations. Recoverable by resubmitting.
	ErrValidationFailed = errors.New("validation failed")
	// ErrDuplicateIdentity is surfaced at registration only.
	ErrDuplicateIdentity = errors.New("email or username already registered")
	// ErrInvalidCredentials deliberately conflates unknown email and wrong
	// password to prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrTwoFactorRequired means login needs a code before tokens issue.
	ErrTwoFactorRequired = errors.New("two-factor code required")
	// ErrTwoFactorInvalid means the submitted code or backup code failed.
	ErrTwoFactorInvalid = errors.New("two-factor code invalid")
	// ErrAccountInactive means the account exists but is disabled.
	ErrAccountInactive = errors.New("account inactive")
	// ErrTokenInvalid covers structural or signature failure, and refresh
	// tokens that were never issued.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired means the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked means the refresh token was already rotated or the
	// access token blacklisted. On refresh this is the reuse signal.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrPermissionDenied is authorization failure, distinct from every
	// authentication failure above.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRateLimited means too many failed logins for this identity.
	ErrRateLimited = errors.New("too many attempts")
	// ErrResetCodeInvalid means the reset or verification code is unknown,
	// expired or already used.
	ErrResetCodeInvalid = errors.New("code invalid or expired")
)
