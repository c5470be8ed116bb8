package domain

import (
	"errors"
	"strings"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email has already been taken")
)

// Code is the stable machine-readable reason attached to a denial.
type Code string

const (
	CodeMissingToken         Code = "missing_token"
	CodeInvalidToken         Code = "invalid_token"
	CodeTokenExpired         Code = "token_expired"
	CodeInvalidIat           Code = "invalid_iat"
	CodeTokenError           Code = "token_error"
	CodeInvalidTokenType     Code = "invalid_token_type"
	CodeUserNotFound         Code = "user_not_found"
	CodeUserMismatch         Code = "user_mismatch"
	CodeAuthRequired         Code = "auth_required"
	CodeInvalidCredentials   Code = "invalid_credentials"
	CodeTokenGenerationError Code = "token_generation_error"
	CodeMissingRefreshToken  Code = "missing_refresh_token"
	CodeNotAuthenticated     Code = "not_authenticated"
	CodeValidationError      Code = "validation_error"
	CodeInternalError        Code = "internal_error"
)

// AuthError is a denial: a negative auth outcome with a stable code and a
// human-readable message. Detail carries the underlying library message, if any.
type AuthError struct {
	Code    Code
	Message string
	Detail  string
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return string(e.Code) + ": " + e.Message + ": " + e.Detail
	}
	return string(e.Code) + ": " + e.Message
}

// Is matches any *AuthError carrying the same code, so callers can write
// errors.Is(err, domain.Denied(domain.CodeTokenExpired)).
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var messages = map[Code]string{
	CodeMissingToken:         "Token missing",
	CodeInvalidToken:         "Invalid token format",
	CodeTokenExpired:         "Token has expired",
	CodeInvalidIat:           "Invalid issued at time",
	CodeTokenError:           "Token processing failed",
	CodeInvalidTokenType:     "Invalid token type",
	CodeUserNotFound:         "User not found",
	CodeUserMismatch:         "Token user mismatch",
	CodeAuthRequired:         "Authentication required",
	CodeInvalidCredentials:   "Invalid credentials",
	CodeTokenGenerationError: "Token generation failed",
	CodeMissingRefreshToken:  "Refresh token required",
	CodeNotAuthenticated:     "Not authenticated",
	CodeValidationError:      "Validation failed",
	CodeInternalError:        "Internal server error",
}

// Denied builds an AuthError with the default message for code.
func Denied(code Code) *AuthError {
	return &AuthError{Code: code, Message: messages[code]}
}

// DeniedWith is Denied plus the underlying error text.
func DeniedWith(code Code, detail error) *AuthError {
	e := Denied(code)
	if detail != nil {
		e.Detail = detail.Error()
	}
	return e
}

// CodeOf returns the denial code carried by err, or "" if err is not a denial.
func CodeOf(err error) Code {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// ValidationError lists the reasons user input failed record constraints.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}
