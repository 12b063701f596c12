package models

import (
	"errors"
)

// ==============================================
// PREDEFINED ERRORS
// ==============================================

// User/Auth Errors
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUsernameAlreadyExists = errors.New("username already exist")
	ErrEmailAlreadyExists    = errors.New("email already in use")
)

// Token Errors
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenMissing = errors.New("token is missing")
)

// Password Reset Errors
var (
	ErrOTPInvalid            = errors.New("invalid OTP")
	ErrResetTokenUsed        = errors.New("this reset token was already used")
	ErrResetAttemptsExceeded = errors.New("maximum reset attempts exceeded")
	ErrPasswordReuse         = errors.New("new password must be different from the old one")
)

// Task Errors
var (
	ErrTaskNotFound  = errors.New("no task found")
	ErrTaskQuota     = errors.New("task limit reached")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidCursor    = errors.New("invalid cursor")
	ErrInvalidDatetime  = errors.New("invalid datetime format")
)

// Rate Limiting Errors
var (
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ==============================================
// ERROR CODES (for API responses)
// ==============================================
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUserAlreadyExists = "USER_ALREADY_EXISTS"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbiddenAccess   = "FORBIDDEN_ACCESS"
	ErrCodeTooManyRequests   = "TOO_MANY_REQUEST"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// ==============================================
// HELPER FUNCTIONS
// ==============================================

// IsNotFoundError checks if error is a "not found" error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrTaskNotFound)
}

// IsTokenError checks if error came from token verification
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenMissing)
}
