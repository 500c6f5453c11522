// Package errs defines the wallet core's error taxonomy.
//
// Components wrap these sentinels with fmt.Errorf("...: %w", ...) so callers
// can branch with errors.Is while logs keep the full context. Secret material
// must never appear in wrapped messages.
package errs

import "errors"

var (
	// ErrInvalidInput marks user-correctable format errors (bad address,
	// amount, mnemonic). Surfaced verbatim.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthFailure is a wrong password. Retryable by the user.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrLocked means the operation needs an unlocked vault first.
	ErrLocked = errors.New("wallet is locked")

	// ErrNetworkUnavailable marks unreachable or timed-out RPC endpoints.
	// Retryable; retry policy belongs to the caller.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrChainMismatch means a custom network's endpoint reported a
	// different chain id than the config claims.
	ErrChainMismatch = errors.New("chain id mismatch")

	// ErrValidation marks a rejected configuration (duplicate chain id,
	// missing fields, removing a built-in).
	ErrValidation = errors.New("validation failed")

	// ErrCorrupted means the stored secret is unreadable. Not retryable;
	// the only recovery is re-importing the phrase.
	ErrCorrupted = errors.New("stored secret corrupted")

	// ErrUserRejected is a declined dApp request. Terminal for that
	// request id, not an app-level failure.
	ErrUserRejected = errors.New("user rejected request")

	// ErrUnsupported marks a method or chain family that is not
	// implemented. A capability gap, never a crash.
	ErrUnsupported = errors.New("unsupported")

	// ErrNotFound marks a missing entity (chain id, account, wallet).
	ErrNotFound = errors.New("not found")
)

// JSON-RPC error codes used by the dApp mediator when mapping internal
// errors onto the single {code, message} shape the content surface sees.
// 4xxx codes follow EIP-1193/EIP-1474 provider conventions.
const (
	CodeUserRejected        = 4001
	CodeUnauthorized        = 4100
	CodeUnsupportedMethod   = 4200
	CodeUnrecognizedChain   = 4902
	CodeParseError          = -32700
	CodeInvalidRequest      = -32600
	CodeMethodNotFound      = -32601
	CodeInvalidParams       = -32602
	CodeInternalError       = -32603
	CodeResourceNotFound    = -32001
	CodeResourceUnavailable = -32002
)

// Code maps an internal error onto a JSON-RPC error code.
func Code(err error) int {
	switch {
	case errors.Is(err, ErrUserRejected):
		return CodeUserRejected
	case errors.Is(err, ErrLocked), errors.Is(err, ErrAuthFailure):
		return CodeUnauthorized
	case errors.Is(err, ErrUnsupported):
		return CodeUnsupportedMethod
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation), errors.Is(err, ErrChainMismatch):
		return CodeInvalidParams
	case errors.Is(err, ErrNotFound):
		return CodeResourceNotFound
	case errors.Is(err, ErrNetworkUnavailable):
		return CodeResourceUnavailable
	default:
		return CodeInternalError
	}
}
