package core

import (
	"errors"
	"fmt"
)

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalidated  = errors.New("token has been invalidated")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidAddress    = errors.New("invalid wallet address")
	ErrLeadNotFound      = errors.New("lead not found")
	ErrInvalidLead       = errors.New("invalid lead")
	ErrSessionNotFound   = errors.New("no active session")
	ErrStoreClosed       = errors.New("auth store is closed")
	ErrInvalidSignUp     = errors.New("invalid sign-up request")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrInvalidCredential = errors.New("invalid login credentials")
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	ErrAlreadyRegistered = errors.New("user already registered")
)

// ErrorKind is the user-facing category of a wallet login failure
type ErrorKind string

const (
	KindProviderUnavailable         ErrorKind = "provider_unavailable"
	KindAccessDenied                ErrorKind = "access_denied"
	KindConfigurationError          ErrorKind = "configuration_error"
	KindNoAccountReturned           ErrorKind = "no_account_returned"
	KindSignatureRejected           ErrorKind = "signature_rejected"
	KindSignatureError              ErrorKind = "signature_error"
	KindRegistrationError           ErrorKind = "registration_error"
	KindConfirmationPending         ErrorKind = "confirmation_pending"
	KindPostRegistrationSignInError ErrorKind = "post_registration_sign_in_error"
	KindSignInError                 ErrorKind = "sign_in_error"
	KindAlreadyPending              ErrorKind = "already_pending"
	KindUnclassifiedError           ErrorKind = "unclassified_error"
)

// AuthError is the error value returned by the wallet login flow.
// Message is safe to show to the user; Err keeps the raw cause.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewAuthError creates an AuthError of the given kind wrapping err
func NewAuthError(kind ErrorKind, message string, err error) *AuthError {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &AuthError{Kind: kind, Message: message, Err: err}
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or KindUnclassifiedError
// when err is not an AuthError.
func KindOf(err error) ErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindUnclassifiedError
}

// IsConfirmationPending reports whether err is the soft-success state where the
// identity exists but cannot be used until its email is confirmed.
func IsConfirmationPending(err error) bool {
	return err != nil && KindOf(err) == KindConfirmationPending
}

// BackendError is a failure reported by the identity backend REST API
type BackendError struct {
	Status  int    // HTTP status code
	Code    string // Stable machine-readable error code, may be empty
	Message string // Human-readable message as sent by the backend
}

func (e *BackendError) Error() string {
	return e.Message
}

// ProviderError is an EIP-1193 style wallet error
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// ErrorCode returns the EIP-1193 code
func (e *ProviderError) ErrorCode() int {
	return e.Code
}

// UserRejected returns the provider error for a declined wallet prompt
func UserRejected(what string) error {
	return &ProviderError{Code: ProviderCodeUserRejected, Message: "user rejected the request: " + what}
}
