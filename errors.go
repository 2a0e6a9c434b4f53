package classtrack

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidCredentials is returned when password sign-in is rejected.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken is returned when sign-up collides with an existing profile.
var ErrEmailTaken = goerrors.New("email is already registered", goerrors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(goerrors.CodeConflict)

// ErrWeakPassword is returned when the supplied password fails the policy.
var ErrWeakPassword = goerrors.New("password does not meet minimum requirements", goerrors.CategoryValidation).
	WithTextCode("WEAK_PASSWORD").
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidOrExpiredCode is returned when a one-time verification code does
// not exist, was already used, or expired.
var ErrInvalidOrExpiredCode = goerrors.New("verification code is invalid or expired", goerrors.CategoryAuth).
	WithTextCode("INVALID_OR_EXPIRED_CODE").
	WithCode(goerrors.CodeUnauthorized)

// ErrProfileNotFound is returned when a valid session has no usable profile.
// Callers treat this as "no usable identity", never as a fatal error.
var ErrProfileNotFound = goerrors.New("profile not found for identity", goerrors.CategoryNotFound).
	WithTextCode("PROFILE_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrNetwork is returned for transport failures against the identity provider.
var ErrNetwork = goerrors.New("identity provider unreachable", goerrors.CategoryOperation).
	WithTextCode("NETWORK_ERROR").
	WithCode(goerrors.CodeInternal)

// ErrManagerStopped is returned for operations issued after Stop.
var ErrManagerStopped = goerrors.New("session manager is stopped", goerrors.CategoryOperation).
	WithTextCode("MANAGER_STOPPED").
	WithCode(goerrors.CodeInternal)

// IsAuthError reports whether err belongs to the auth error taxonomy, i.e.
// a failure the UI reports and the user may retry, not a programming error.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	switch richErr.Category {
	case goerrors.CategoryAuth, goerrors.CategoryConflict, goerrors.CategoryValidation:
		return true
	default:
		return false
	}
}

// IsProfileNotFound will check for missing profile lookups, including ones
// wrapped by repository layers.
func IsProfileNotFound(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.Is(err, ErrProfileNotFound) || goerrors.IsNotFound(err)
}
