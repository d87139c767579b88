package core

import (
	"context"
	"errors"
	"strings"
)

// ErrorClass is the best-effort reading of a raw backend or wallet error
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassInvalidCredentials
	ClassEmailNotConfirmed
	ClassAlreadyRegistered
	ClassUserRejected
	ClassUserClosed
	ClassAlreadyPending
)

func (c ErrorClass) String() string {
	switch c {
	case ClassInvalidCredentials:
		return "invalid_credentials"
	case ClassEmailNotConfirmed:
		return "email_not_confirmed"
	case ClassAlreadyRegistered:
		return "already_registered"
	case ClassUserRejected:
		return "user_rejected"
	case ClassUserClosed:
		return "user_closed"
	case ClassAlreadyPending:
		return "already_pending"
	default:
		return "unknown"
	}
}

// EIP-1193 provider error codes
const (
	ProviderCodeUserRejected   = 4001
	ProviderCodeUnauthorized   = 4100
	ProviderCodeAlreadyPending = -32002
)

// Stable GoTrue error codes
var backendCodes = map[string]ErrorClass{
	"invalid_credentials": ClassInvalidCredentials,
	"email_not_confirmed": ClassEmailNotConfirmed,
	"user_already_exists": ClassAlreadyRegistered,
	"email_exists":        ClassAlreadyRegistered,
}

var phrases = []struct {
	phrase string
	class  ErrorClass
}{
	{"invalid login credentials", ClassInvalidCredentials},
	{"email not confirmed", ClassEmailNotConfirmed},
	{"user already registered", ClassAlreadyRegistered},
	{"already been registered", ClassAlreadyRegistered},
	{"user rejected", ClassUserRejected},
	{"user denied", ClassUserRejected},
	{"already pending", ClassAlreadyPending},
	{"user closed", ClassUserClosed},
}

type codedError interface {
	ErrorCode() int
}

// Classify inspects err and returns its class. Structured codes win over
// message matching; substrings are only a fallback.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	if errors.Is(err, context.Canceled) {
		return ClassUserClosed
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.Code != "" {
		if class, ok := backendCodes[backendErr.Code]; ok {
			return class
		}
	}

	var coded codedError
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case ProviderCodeUserRejected, ProviderCodeUnauthorized:
			return ClassUserRejected
		case ProviderCodeAlreadyPending:
			return ClassAlreadyPending
		}
	}

	switch {
	case errors.Is(err, ErrInvalidCredential):
		return ClassInvalidCredentials
	case errors.Is(err, ErrEmailNotConfirmed):
		return ClassEmailNotConfirmed
	case errors.Is(err, ErrAlreadyRegistered):
		return ClassAlreadyRegistered
	}

	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p.phrase) {
			return p.class
		}
	}
	return ClassUnknown
}
