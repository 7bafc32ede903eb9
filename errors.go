// errors.go: structured error taxonomy for keystone
//
// This file provides structured error types using the go-errors library.
// Local conditions (cache miss, eviction, merge conflicts) are never errors;
// everything surfaced to a caller carries a KEYSTONE_* code and context.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package keystone

import (
	goerrors "errors"
	"fmt"
	"time"

	"github.com/agilira/go-errors"
)

// Error codes for keystone operations
const (
	// Configuration errors
	ErrCodeInvalidConfig     errors.ErrorCode = "KEYSTONE_INVALID_CONFIG"
	ErrCodeUnknownCache      errors.ErrorCode = "KEYSTONE_UNKNOWN_CACHE"
	ErrCodeDuplicateCache    errors.ErrorCode = "KEYSTONE_DUPLICATE_CACHE"
	ErrCodeCacheTypeMismatch errors.ErrorCode = "KEYSTONE_CACHE_TYPE_MISMATCH"

	// Admission errors
	ErrCodeAdmissionRejected errors.ErrorCode = "KEYSTONE_ADMISSION_REJECTED"

	// Work unit and stage errors
	ErrCodeUnitFailed    errors.ErrorCode = "KEYSTONE_UNIT_FAILED"
	ErrCodeUnitTimeout   errors.ErrorCode = "KEYSTONE_UNIT_TIMEOUT"
	ErrCodeStageFailed   errors.ErrorCode = "KEYSTONE_STAGE_FAILED"
	ErrCodeParseFailed   errors.ErrorCode = "KEYSTONE_PARSE_FAILED"
	ErrCodeBatchMismatch errors.ErrorCode = "KEYSTONE_BATCH_MISMATCH"

	// Collaborator errors
	ErrCodeGeneratorFailed errors.ErrorCode = "KEYSTONE_GENERATOR_FAILED"

	// Lifecycle and internal errors
	ErrCodeCoordinatorClosed errors.ErrorCode = "KEYSTONE_COORDINATOR_CLOSED"
	ErrCodePanicRecovered    errors.ErrorCode = "KEYSTONE_PANIC_RECOVERED"
)

const (
	msgInvalidConfig     = "invalid configuration"
	msgUnknownCache      = "no cache registered under this name"
	msgDuplicateCache    = "a cache is already registered under this name"
	msgCacheTypeMismatch = "registered cache holds a different value type"
	msgAdmissionRejected = "rate limit exceeded"
	msgUnitFailed        = "work unit failed"
	msgUnitTimeout       = "work unit timed out"
	msgStageFailed       = "dependent stage failed"
	msgParseFailed       = "could not parse collaborator output"
	msgBatchMismatch     = "batch function returned a different number of results"
	msgGeneratorFailed   = "text generation request failed"
	msgCoordinatorClosed = "coordinator is closed"
	msgPanicRecovered    = "panic recovered"
)

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// NewErrInvalidConfig creates an error for a configuration value that cannot be used.
func NewErrInvalidConfig(field string, value interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidConfig, msgInvalidConfig, map[string]interface{}{
		"field": field,
		"value": value,
	})
}

// NewErrUnknownCache creates an error when a cache name is not registered.
func NewErrUnknownCache(name string) error {
	return errors.NewWithField(ErrCodeUnknownCache, msgUnknownCache, "cache", name)
}

// NewErrDuplicateCache creates an error when a name is registered twice.
func NewErrDuplicateCache(name string) error {
	return errors.NewWithField(ErrCodeDuplicateCache, msgDuplicateCache, "cache", name)
}

// NewErrCacheTypeMismatch creates an error when Lookup asks for the wrong value type.
func NewErrCacheTypeMismatch(name string, want interface{}, got Instance) error {
	return errors.NewWithContext(ErrCodeCacheTypeMismatch, msgCacheTypeMismatch, map[string]interface{}{
		"cache": name,
		"want":  fmt.Sprintf("%T", want),
		"got":   fmt.Sprintf("%T", got),
	})
}

// =============================================================================
// ADMISSION ERRORS
// =============================================================================

// NewErrAdmissionRejected creates the user-facing rejection error.
// The caller must not retry before retryAfterSeconds have elapsed.
func NewErrAdmissionRejected(client string, retryAfterSeconds int) error {
	return errors.NewWithContext(ErrCodeAdmissionRejected, msgAdmissionRejected, map[string]interface{}{
		"client":      client,
		"retry_after": retryAfterSeconds,
	}).AsRetryable().WithSeverity("warning")
}

// =============================================================================
// UNIT AND STAGE ERRORS
// =============================================================================

// NewErrUnitFailed wraps the failure of a single batch unit or independent stage.
func NewErrUnitFailed(unit string, cause error) error {
	return errors.Wrap(cause, ErrCodeUnitFailed, msgUnitFailed).
		WithContext("unit", unit)
}

// NewErrUnitTimeout creates an error for a unit that exceeded its deadline.
func NewErrUnitTimeout(unit string, timeout time.Duration) error {
	return errors.NewWithContext(ErrCodeUnitTimeout, msgUnitTimeout, map[string]interface{}{
		"unit":    unit,
		"timeout": timeout.String(),
	}).AsRetryable()
}

// NewErrStageFailed wraps the failure of a dependent stage. It aborts the run.
func NewErrStageFailed(stage string, cause error) error {
	return errors.Wrap(cause, ErrCodeStageFailed, msgStageFailed).
		WithContext("stage", stage).
		WithSeverity("warning")
}

// NewErrParseFailed creates an error for collaborator output that could not be decoded.
func NewErrParseFailed(reason string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeParseFailed, msgParseFailed).
			WithContext("reason", reason)
	}
	return errors.NewWithField(ErrCodeParseFailed, msgParseFailed, "reason", reason)
}

// NewErrBatchMismatch creates an error when a batch function breaks the one-output-per-input contract.
func NewErrBatchMismatch(inputs, outputs int) error {
	return errors.NewWithContext(ErrCodeBatchMismatch, msgBatchMismatch, map[string]interface{}{
		"inputs":  inputs,
		"outputs": outputs,
	}).WithSeverity("critical")
}

// NewErrGeneratorFailed creates an error for a failed text generation call.
// Throttling and server-side failures are retryable.
func NewErrGeneratorFailed(status int, cause error, retryable bool) error {
	if cause == nil {
		cause = fmt.Errorf("upstream returned status %d", status)
	}
	if retryable {
		return errors.Wrap(cause, ErrCodeGeneratorFailed, msgGeneratorFailed).
			WithContext("status", status).
			AsRetryable()
	}
	return errors.Wrap(cause, ErrCodeGeneratorFailed, msgGeneratorFailed).
		WithContext("status", status)
}

// =============================================================================
// LIFECYCLE AND INTERNAL ERRORS
// =============================================================================

// NewErrCoordinatorClosed creates an error for work submitted to, or pending in, a closed coordinator.
func NewErrCoordinatorClosed(key string) error {
	return errors.NewWithField(ErrCodeCoordinatorClosed, msgCoordinatorClosed, "key", key)
}

// NewErrPanicRecovered creates an error when a panic is recovered
func NewErrPanicRecovered(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// =============================================================================
// ERROR CHECKING HELPERS
// =============================================================================

// IsAdmissionRejected reports whether err is a rate limit rejection.
func IsAdmissionRejected(err error) bool {
	return errors.HasCode(err, ErrCodeAdmissionRejected)
}

// IsUnitFailure reports whether err is an isolated unit failure, including timeouts.
func IsUnitFailure(err error) bool {
	return errors.HasCode(err, ErrCodeUnitFailed) || errors.HasCode(err, ErrCodeUnitTimeout)
}

// IsTimeout reports whether err is a unit timeout.
func IsTimeout(err error) bool {
	return errors.HasCode(err, ErrCodeUnitTimeout)
}

// IsStageFailure reports whether err is a fatal dependent stage failure.
func IsStageFailure(err error) bool {
	return errors.HasCode(err, ErrCodeStageFailed)
}

// IsParseFailure reports whether err is a collaborator parse failure.
func IsParseFailure(err error) bool {
	return errors.HasCode(err, ErrCodeParseFailed)
}

// IsUnknownCache reports whether err names a cache that is not registered.
func IsUnknownCache(err error) bool {
	return errors.HasCode(err, ErrCodeUnknownCache)
}

// IsClosed reports whether err comes from a closed coordinator.
func IsClosed(err error) bool {
	return errors.HasCode(err, ErrCodeCoordinatorClosed)
}

// IsConfigError reports whether err is a configuration or registry error.
func IsConfigError(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeInvalidConfig, ErrCodeUnknownCache, ErrCodeDuplicateCache, ErrCodeCacheTypeMismatch:
		return true
	}
	return false
}

// IsRetryable checks if the error can be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the outermost error code from an error
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts context from an error
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var kerr *errors.Error
	if goerrors.As(err, &kerr) {
		return kerr.Context
	}
	return nil
}
