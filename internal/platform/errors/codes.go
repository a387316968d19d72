// Package errors provides structured errors carrying a machine-readable code.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeInvalidInput Code = "INVALID_INPUT"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// Task queue errors
	CodeTaskNotReady    Code = "TASK_NOT_READY"
	CodeTaskFailed      Code = "TASK_FAILED"
	CodeTaskWaitTimeout Code = "TASK_WAIT_TIMEOUT"
	CodeTaskUnknownKind Code = "TASK_UNKNOWN_KIND"
	CodeTaskLeaseLost   Code = "TASK_LEASE_LOST"

	// Credential errors
	CodeCredentialInvalid Code = "CREDENTIAL_INVALID"

	// Upstream errors
	CodeUnavailable Code = "UNAVAILABLE"
)

// Retryable reports whether an operation failing with this code may succeed
// when attempted again.
func (c Code) Retryable() bool {
	switch c {
	case CodeTaskNotReady, CodeTaskWaitTimeout, CodeUnavailable:
		return true
	default:
		return false
	}
}
