package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 20000-20999: Execution pipeline errors
const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10004
	ServiceUnavailable  ErrorCode = 10005
	Timeout             ErrorCode = 10006

	// Validation errors (10300-10399)
	ValidationFailed ErrorCode = 10300
	InvalidEncoding  ErrorCode = 10301
	PayloadTooLarge  ErrorCode = 10302
	PayloadEmpty     ErrorCode = 10303

	// ========== Execution Pipeline Errors (20000-20999) ==========

	// Stage failures (20000-20099)
	CompilationFailed   ErrorCode = 20000
	LinkingFailed       ErrorCode = 20001
	EntryPointNotFound  ErrorCode = 20002
	ExecutionCanceled   ErrorCode = 20003
	ExecutionTimeout    ErrorCode = 20004
	SandboxSystemError  ErrorCode = 20005
	InvalidSandboxLimit ErrorCode = 20006

	// Scheduling (20100-20199)
	QueueFull ErrorCode = 20100
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Validation
	ValidationFailed: "Validation failed",
	InvalidEncoding:  "Invalid text encoding",
	PayloadTooLarge:  "Payload is too large",
	PayloadEmpty:     "Payload is empty",

	// Execution pipeline
	CompilationFailed:   "Payload compilation failed",
	LinkingFailed:       "Capability import linking failed",
	EntryPointNotFound:  "No callable entry point found",
	ExecutionCanceled:   "Execution was canceled",
	ExecutionTimeout:    "Execution timed out",
	SandboxSystemError:  "Sandbox system error",
	InvalidSandboxLimit: "Invalid sandbox limit configuration",

	// Scheduling
	QueueFull: "Worker pool is saturated, please try again later",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case Success:
		return 200
	case NotFound:
		return 404
	case TooManyRequests, QueueFull:
		return 429
	case ServiceUnavailable:
		return 503
	case PayloadTooLarge:
		return 413
	case InvalidParams, ValidationFailed, InvalidEncoding, PayloadEmpty,
		CompilationFailed, LinkingFailed, EntryPointNotFound,
		ExecutionCanceled, ExecutionTimeout:
		return 400
	default:
		return 500
	}
}
