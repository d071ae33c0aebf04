package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnauthenticated reports an operation attempted on an account
	// with no live session that cannot silently self-heal.
	ErrServiceUnauthenticated = errors.New("service session not authenticated")
	// ErrSessionExpired is the normalized vendor auth-expired signal. Callers
	// are expected to expire the session and retry once through a reload.
	ErrSessionExpired = errors.New("vendor session expired")
	// ErrServiceNotImplemented reports an operation that has no adapter
	// support for the account's service.
	ErrServiceNotImplemented = errors.New("operation not implemented for service")
	// ErrAccountNotFound reports a lookup for an unknown local ID.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNotExternal reports an external-only operation called on a primary
	// account (or the other way around for ErrNotPrimary).
	ErrNotExternal = errors.New("account is not an external account")
	ErrNotPrimary  = errors.New("account is not a primary account")
	// ErrPartialRefresh reports a background refresh that ran out of budget
	// before covering every stored account.
	ErrPartialRefresh = errors.New("background refresh incomplete")
)

// API user and authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrForbidden          = errors.New("access forbidden")
)

// VendorErrorClass splits vendor failures by how callers should react.
type VendorErrorClass uint8

const (
	// VendorTransient covers network, timeout and 5xx-class failures; safe to
	// retry with backoff above the core.
	VendorTransient VendorErrorClass = iota + 1
	// VendorTerminal covers bad credentials, locked accounts and other
	// failures that need user action before a retry can succeed.
	VendorTerminal
	// VendorDataShape covers responses the mapping layer could not turn into
	// domain objects.
	VendorDataShape
)

func (c VendorErrorClass) String() string {
	switch c {
	case VendorTransient:
		return "transient"
	case VendorTerminal:
		return "terminal"
	case VendorDataShape:
		return "data_shape"
	}
	return "unknown"
}

// VendorError wraps a vendor SDK failure with enough context to route and
// diagnose it: which service, which operation, and whether a retry can help.
type VendorError struct {
	Service Service
	Op      string
	Class   VendorErrorClass
	Err     error
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s: %s: %v (%s)", e.Service, e.Op, e.Err, e.Class)
}

func (e *VendorError) Unwrap() error { return e.Err }

// NewVendorError wraps err for the given service and operation.
func NewVendorError(service Service, op string, class VendorErrorClass, err error) *VendorError {
	return &VendorError{Service: service, Op: op, Class: class, Err: err}
}

// IsRetryable reports whether err is a transient vendor failure.
func IsRetryable(err error) bool {
	var ve *VendorError
	return errors.As(err, &ve) && ve.Class == VendorTransient
}

// IsTerminal reports whether err is a terminal vendor failure requiring user
// action (typically re-entering credentials).
func IsTerminal(err error) bool {
	var ve *VendorError
	return errors.As(err, &ve) && ve.Class == VendorTerminal
}
