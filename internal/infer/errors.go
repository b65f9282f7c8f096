package infer

import (
	"errors"
	"fmt"
)

// errClosedHandle guards against generation on a handle after Close.
var errClosedHandle = errors.New("handle already closed")

// unknownBackendError signals a backend name outside the closed set.
type unknownBackendError struct{ name string }

func (e unknownBackendError) Error() string { return "unknown backend: " + e.name }

// ErrUnknownBackend constructs an unknownBackendError.
func ErrUnknownBackend(name string) error { return unknownBackendError{name: name} }

// IsUnknownBackend reports whether err names a backend outside the closed set.
func IsUnknownBackend(err error) bool {
	_, ok := err.(unknownBackendError)
	return ok
}

// configError signals an invalid request shape (unknown slot or device),
// detected before any I/O.
type configError struct{ msg string }

func (e configError) Error() string { return e.msg }

// ErrConfig constructs a configuration error.
func ErrConfig(format string, args ...any) error {
	return configError{msg: fmt.Sprintf(format, args...)}
}

// IsConfig reports whether err is a configuration error. Unknown backend
// names count as configuration errors too.
func IsConfig(err error) bool {
	if _, ok := err.(configError); ok {
		return true
	}
	return IsUnknownBackend(err)
}

// notFoundError signals a missing model path or directory.
type notFoundError struct{ ref string }

func (e notFoundError) Error() string { return "model not found: " + e.ref }

// ErrModelNotFound constructs a notFoundError.
func ErrModelNotFound(ref string) error { return notFoundError{ref: ref} }

// IsModelNotFound reports whether err indicates a missing model.
func IsModelNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// capabilityError signals a backend that cannot run here: native runtime not
// built in, required accelerator absent, or worker binary missing.
type capabilityError struct{ msg string }

func (e capabilityError) Error() string { return e.msg }

// ErrCapability constructs a capabilityError.
func ErrCapability(format string, args ...any) error {
	return capabilityError{msg: fmt.Sprintf(format, args...)}
}

// IsCapability reports whether err indicates a missing capability.
func IsCapability(err error) bool {
	_, ok := err.(capabilityError)
	return ok
}

// notReadyError signals a generate against an empty slot.
type notReadyError struct{ slot string }

func (e notReadyError) Error() string {
	return fmt.Sprintf("model not loaded in slot %q", e.slot)
}

// ErrNotReady constructs a notReadyError for slot.
func ErrNotReady(slot string) error { return notReadyError{slot: slot} }

// IsNotReady reports whether err indicates an empty slot at generate time.
func IsNotReady(err error) bool {
	_, ok := err.(notReadyError)
	return ok
}

// runtimeError wraps a failure inside a native generation call so callers can
// present the cause without it propagating as an unrecoverable fault.
type runtimeError struct {
	backend string
	err     error
}

func (e runtimeError) Error() string {
	return e.backend + " generation failed: " + e.err.Error()
}

func (e runtimeError) Unwrap() error { return e.err }

// ErrRuntime wraps err as a backend runtime failure.
func ErrRuntime(backend string, err error) error {
	return runtimeError{backend: backend, err: err}
}

// IsRuntime reports whether err is a wrapped backend runtime failure.
func IsRuntime(err error) bool {
	_, ok := err.(runtimeError)
	return ok
}
