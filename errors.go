// errors.go: Error taxonomy for the clio event log
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import (
	"fmt"
	"os"

	"github.com/agilira/go-errors"
)

// Error codes for the clio event log.
//
// Emitters never fail visibly: observability must not perturb the
// observed system, so the hot path drops and truncates silently. These
// codes surface only from the out-of-band operations (registration,
// rendering, merge, serialization) and from the config loader.
const (
	// Configuration errors
	ErrCodeInvalidConfig errors.ErrorCode = "CLIO_INVALID_CONFIG"
	ErrCodeFileOpen      errors.ErrorCode = "CLIO_FILE_OPEN"

	// Registration errors
	ErrCodeArityOverflow errors.ErrorCode = "CLIO_ARITY_OVERFLOW"

	// Codec errors (programming errors in the release taxonomy: reported,
	// never allowed to corrupt memory or crash the process)
	ErrCodeBadDescriptor   errors.ErrorCode = "CLIO_BAD_DESCRIPTOR"
	ErrCodePayloadOverflow errors.ErrorCode = "CLIO_PAYLOAD_OVERFLOW"
	ErrCodeArgMismatch     errors.ErrorCode = "CLIO_ARG_MISMATCH"
	ErrCodeEnumRange       errors.ErrorCode = "CLIO_ENUM_RANGE"

	// Serialization errors
	ErrCodeBadMagic     errors.ErrorCode = "CLIO_BAD_MAGIC"
	ErrCodeTruncatedLog errors.ErrorCode = "CLIO_TRUNCATED_LOG"
	ErrCodeIndexRange   errors.ErrorCode = "CLIO_INDEX_RANGE"
	ErrCodeWriteFailed  errors.ErrorCode = "CLIO_WRITE_FAILED"
)

// ErrorHandler handles errors raised on paths that cannot return them,
// such as rendering a record whose payload does not match its descriptor.
type ErrorHandler func(err *errors.Error)

// defaultErrorHandler prints to stderr. The event log never logs through
// itself.
var defaultErrorHandler ErrorHandler = func(err *errors.Error) {
	fmt.Fprintf(os.Stderr, "[CLIO ERROR] %s: %s\n", err.Code, err.Message)
	if err.Cause != nil {
		fmt.Fprintf(os.Stderr, "[CLIO ERROR] Caused by: %v\n", err.Cause)
	}
}

var currentErrorHandler = defaultErrorHandler

// SetErrorHandler replaces the package error handler. Passing nil
// restores the default stderr handler.
func SetErrorHandler(handler ErrorHandler) {
	if handler == nil {
		currentErrorHandler = defaultErrorHandler
		return
	}
	currentErrorHandler = handler
}

// GetErrorHandler returns the current package error handler.
func GetErrorHandler() ErrorHandler {
	return currentErrorHandler
}

// handleError routes an error through the current handler.
func handleError(err *errors.Error) {
	if err == nil {
		return
	}
	currentErrorHandler(err)
}

// handleErr coerces err to a coded error and routes it through the
// handler. Used on paths that report rather than return.
func handleErr(err error) {
	if err == nil {
		return
	}
	if e, ok := err.(*errors.Error); ok {
		handleError(e)
		return
	}
	handleError(errors.Wrap(err, ErrCodeWriteFailed, "unclassified error"))
}

// WrapWatcherError wraps a config watcher failure with its file path.
func WrapWatcherError(err error, path string) *errors.Error {
	return errors.Wrap(err, ErrCodeFileOpen, "config watcher error for "+path)
}

// IsLogError reports whether err carries the given clio error code.
func IsLogError(err error, code errors.ErrorCode) bool {
	return errors.HasCode(err, code)
}
