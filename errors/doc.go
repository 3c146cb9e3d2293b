// Package errors provides the error taxonomy shared by every visionflow package.
//
// # Classification
//
// Every error is transient (retry may succeed), invalid (the request itself is
// wrong and must not be retried) or fatal (a programming or environment error
// that should stop the caller). Graph operations such as an incompatible
// connect, an unknown kind on import or a merge cycle are invalid; they are
// logged and refused, and the graph stays interactive.
//
// # Wrapping
//
// All wrapping follows one format:
//
//	component.method: action failed: cause
//
// produced by Wrap, or by WrapInvalid, WrapTransient and WrapFatal which also
// attach the class:
//
//	if !compatible {
//	    return errors.WrapInvalid(errors.ErrIncompatiblePort, "Base", "Connect", "type check")
//	}
//
// Wrapped errors keep the chain intact, so errors.Is works against the
// sentinels declared here.
//
// # Retry
//
// RetryConfig decides whether a transient error deserves another attempt and
// converts to the backoff configuration of pkg/retry.
package errors
