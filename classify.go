package goSession

import (
	"context"
	"errors"
	"net"
	"syscall"
)

/*
==========================================
ERROR KINDS
==========================================
*/

// ErrorKind is the classified category of an authentication failure.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindInvalidCredentials
	KindUnverifiedAccount
	KindAdditionalSteps
	KindSessionExpired
	KindNetworkUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnverifiedAccount:
		return "unverified_account"
	case KindAdditionalSteps:
		return "additional_steps"
	case KindSessionExpired:
		return "session_expired"
	case KindNetworkUnavailable:
		return "network_unavailable"
	default:
		return "unknown"
	}
}

// AuthError is a classified authentication failure. Its message is fixed per
// kind and never derived from provider text, so it is safe to show and to
// log. Instances are the package sentinels; compare with errors.Is.
type AuthError struct {
	kind ErrorKind
}

// Kind reports the classified category.
func (e *AuthError) Kind() ErrorKind {
	if e == nil {
		return KindUnknown
	}
	return e.kind
}

func (e *AuthError) Error() string {
	switch e.Kind() {
	case KindInvalidCredentials:
		return "incorrect username or password"
	case KindUnverifiedAccount:
		return "account is not verified"
	case KindAdditionalSteps:
		return "additional authentication steps are required"
	case KindSessionExpired:
		return "session expired"
	case KindNetworkUnavailable:
		return "network unavailable"
	default:
		return "authentication failed"
	}
}

func sentinelFor(kind ErrorKind) *AuthError {
	switch kind {
	case KindInvalidCredentials:
		return ErrInvalidCredentials
	case KindUnverifiedAccount:
		return ErrUnverifiedAccount
	case KindAdditionalSteps:
		return ErrAdditionalSteps
	case KindSessionExpired:
		return ErrSessionExpired
	case KindNetworkUnavailable:
		return ErrNetworkUnavailable
	default:
		return ErrAuthFailed
	}
}

/*
==========================================
PROVIDER ERRORS
==========================================
*/

// ProviderError is the raw failure a provider adapter returns. Code is the
// provider's machine-readable error code and is the only part classification
// reads. Message may carry raw provider text; it never reaches callers or
// logs in classified form.
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrorCode exposes the machine code for classification.
func (e *ProviderError) ErrorCode() string { return e.Code }

// errorCoder is satisfied by any provider error carrying a machine code.
type errorCoder interface {
	ErrorCode() string
}

/*
==========================================
CLASSIFIER
==========================================
*/

// defaultCodeTable maps provider exception names to kinds. The names follow
// the Cognito-style codes the stock adapters emit; Config.Classifier
// CodeOverrides can extend or replace entries.
var defaultCodeTable = map[string]ErrorKind{
	// Collapsed on purpose: confirming which of the two happened would
	// enable account enumeration.
	"NotAuthorizedException": KindInvalidCredentials,
	"UserNotFoundException":  KindInvalidCredentials,

	"UserNotConfirmedException": KindUnverifiedAccount,

	"PasswordResetRequiredException": KindAdditionalSteps,
	"MFARequiredException":           KindAdditionalSteps,
	"NewPasswordRequiredException":   KindAdditionalSteps,

	"SessionExpiredException": KindSessionExpired,
	"TokenRevokedException":   KindSessionExpired,

	"NetworkError":       KindNetworkUnavailable,
	"ServiceUnavailable": KindNetworkUnavailable,
	"TimeoutError":       KindNetworkUnavailable,
}

// Classifier maps provider failures to classified errors using a code table.
type Classifier struct {
	table map[string]ErrorKind
}

// NewClassifier builds a classifier from the default table plus overrides.
// Override entries win over default ones.
func NewClassifier(overrides map[string]ErrorKind) *Classifier {
	table := make(map[string]ErrorKind, len(defaultCodeTable)+len(overrides))
	for code, kind := range defaultCodeTable {
		table[code] = kind
	}
	for code, kind := range overrides {
		table[code] = kind
	}
	return &Classifier{table: table}
}

// Classify maps err to its classified form. Classification looks at provider
// codes and transport failure types only, never at message text: two causes
// that collapse to the same kind return the same sentinel. Already-classified
// errors pass through unchanged. Returns nil for a nil err.
func (c *Classifier) Classify(err error) *AuthError {
	if err == nil {
		return nil
	}

	var ae *AuthError
	if errors.As(err, &ae) {
		return sentinelFor(ae.Kind())
	}

	if code, ok := providerCode(err); ok {
		if kind, found := c.kindFor(code); found {
			return sentinelFor(kind)
		}
	}

	if isNetworkError(err) {
		return ErrNetworkUnavailable
	}

	return ErrAuthFailed
}

func (c *Classifier) kindFor(code string) (ErrorKind, bool) {
	if c == nil || c.table == nil {
		kind, ok := defaultCodeTable[code]
		return kind, ok
	}
	kind, ok := c.table[code]
	return kind, ok
}

var defaultClassifier = NewClassifier(nil)

// Classify maps err using the default code table. See Classifier.Classify.
func Classify(err error) *AuthError {
	return defaultClassifier.Classify(err)
}

func providerCode(err error) (string, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Code != "" {
		return pe.Code, true
	}
	var ec errorCoder
	if errors.As(err, &ec) {
		if code := ec.ErrorCode(); code != "" {
			return code, true
		}
	}
	return "", false
}

// isNetworkError detects transport-level failures: timeouts, refused or
// reset connections, unreachable hosts. Deliberate cancellation is not a
// network failure.
func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.ECONNABORTED,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
		syscall.ENETDOWN,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
