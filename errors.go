package goSession

import "errors"

// Classified authentication failures. Each sentinel is a shared *AuthError,
// so two failures of the same kind are indistinguishable down to the pointer.
// Wrong password and unknown user both surface as ErrInvalidCredentials.
var (
	ErrInvalidCredentials = &AuthError{kind: KindInvalidCredentials}
	ErrUnverifiedAccount  = &AuthError{kind: KindUnverifiedAccount}
	ErrAdditionalSteps    = &AuthError{kind: KindAdditionalSteps}
	ErrSessionExpired     = &AuthError{kind: KindSessionExpired}
	ErrNetworkUnavailable = &AuthError{kind: KindNetworkUnavailable}
	ErrAuthFailed         = &AuthError{kind: KindUnknown}
)

// Client lifecycle and usage errors.
var (
	// ErrClientClosed is returned by every operation after Close.
	ErrClientClosed = errors.New("client closed")
	// ErrProviderRequired is returned by Build when no provider was set.
	ErrProviderRequired = errors.New("provider is required")
	// ErrBuilderUsed is returned by Build after a successful Build.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrSyncRunning is returned when a synchronizer is started twice.
	ErrSyncRunning = errors.New("synchronizer already running")
)
