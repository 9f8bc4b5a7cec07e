// ABOUTME: Error taxonomy for the roster policy kernel
// ABOUTME: Validation, authorization, duplicate-identity, and store error types

package roster

import (
	"errors"
	"fmt"
)

// Authorization errors. These always deny the attempted action.
var (
	// ErrNotMainAdmin is returned when a non-main-admin session attempts a
	// privileged roster mutation.
	ErrNotMainAdmin = errors.New("main admin privileges required")

	// ErrCannotModifyMainAdmin is returned when a mutation targets the
	// main-admin record, which is immutable through the kernel.
	ErrCannotModifyMainAdmin = errors.New("cannot modify the main admin record")

	// ErrDuplicateIdentity is returned by AddUser when the identity
	// provider reports the email as already registered.
	ErrDuplicateIdentity = errors.New("email already registered")

	// ErrReauthenticationFailed is returned by the self-service operations
	// when the current password does not verify.
	ErrReauthenticationFailed = errors.New("reauthentication failed")

	// ErrProvisioningFailed is returned when the load-bearing auto-provision
	// write fails during login authorization.
	ErrProvisioningFailed = errors.New("provisioning failed")
)

// ValidationError reports malformed or missing input. It is always
// recoverable: no provider or store write happens before validation passes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a backing-store failure during an authorization read.
// It is transient: callers surface it without forcing sign-out, since it is
// not an authorization denial.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
