package domain

import (
	"errors"
	"fmt"
)

// FailureKind categorizes checkout failures. Every kind except
// KindCorruptState is recoverable: the draft is preserved and the buyer
// can correct and retry.
type FailureKind string

const (
	// KindValidation means the draft failed local validation. Never
	// reaches the network layer.
	KindValidation FailureKind = "VALIDATION"

	// KindAuth means the caller's session is missing or invalid where an
	// authenticated identity is required.
	KindAuth FailureKind = "AUTH"

	// KindNetwork is a transport-level failure talking to a collaborator.
	KindNetwork FailureKind = "NETWORK"

	// KindServer is a 5xx or business-rule rejection from the order
	// service (e.g. stock unavailable).
	KindServer FailureKind = "SERVER"

	// KindCorruptState marks unreadable persisted state. It is recovered
	// silently by reinitializing and is never surfaced to the buyer.
	KindCorruptState FailureKind = "CORRUPT_STATE"
)

// FlowError is the typed error the engine returns for every checkout
// failure. Message is user-facing; Fields carries per-field validation
// errors for KindValidation.
type FlowError struct {
	Kind    FailureKind
	Message string
	Fields  []ValidationError
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FlowError) Unwrap() error { return e.Err }

// NewValidationFailure wraps a non-empty set of field errors.
func NewValidationFailure(fields []ValidationError) *FlowError {
	return &FlowError{
		Kind:    KindValidation,
		Message: "Please correct the highlighted fields",
		Fields:  fields,
	}
}

// NewAuthFailure signals that the caller must authenticate. returnTo is
// carried in Message-independent structured form by the HTTP layer.
func NewAuthFailure(msg string) *FlowError {
	if msg == "" {
		msg = "Sign in to complete your order"
	}
	return &FlowError{Kind: KindAuth, Message: msg}
}

// NewNetworkFailure wraps a transport-level error.
func NewNetworkFailure(err error) *FlowError {
	return &FlowError{
		Kind:    KindNetwork,
		Message: "We could not reach the order service. Check your connection and try again",
		Err:     err,
	}
}

// NewServerFailure carries the business-rule message returned by the
// order service.
func NewServerFailure(msg string, err error) *FlowError {
	if msg == "" {
		msg = "The order could not be placed. Please try again shortly"
	}
	return &FlowError{Kind: KindServer, Message: msg, Err: err}
}

// KindOf extracts the FailureKind from an error chain. Unclassified
// errors report as KindServer so nothing is silently swallowed.
func KindOf(err error) FailureKind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindServer
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return hasKind(err, KindValidation) }

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return hasKind(err, KindAuth) }

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool { return hasKind(err, KindNetwork) }

func hasKind(err error, k FailureKind) bool {
	var fe *FlowError
	return errors.As(err, &fe) && fe.Kind == k
}
