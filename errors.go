package cdm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SNUH-BMI/CDM/archive"
	"github.com/SNUH-BMI/CDM/event"
	"github.com/SNUH-BMI/CDM/tabular"
)

var (
	// ErrNoInput indicates that the input root holds no archives
	ErrNoInput = errors.New("cdm: no .LOX archives found")

	// ErrInvalidConfig indicates an unusable merger configuration
	ErrInvalidConfig = errors.New("cdm: invalid configuration")

	// ErrOutputPath indicates that an output location cannot be created; it aborts the run
	ErrOutputPath = errors.New("cdm: output path cannot be created")

	// ErrNoEvents indicates a group without any usable event log
	ErrNoEvents = errors.New("cdm: no valid events")

	// ErrNoMetadata indicates a group without any fluid and pressure pair
	ErrNoMetadata = errors.New("cdm: no valid metadata")
)

// ErrorClass names the kind of failure behind a diagnostic.
type ErrorClass string

// Error classes, also used as the error_class log field.
const (
	ClassFileAccess      ErrorClass = "file_access"
	ClassMalformedMember ErrorClass = "malformed_member"
	ClassDecodeStep      ErrorClass = "decode_step"
	ClassTimeParse       ErrorClass = "time_parse"
	ClassShape           ErrorClass = "shape"
	ClassUnknown         ErrorClass = "unknown"
)

// String returns the class name
func (c ErrorClass) String() string {
	return string(c)
}

// ClassifiedError carries an error class alongside the wrapped error.
type ClassifiedError struct {
	Class ErrorClass
	Err   error
}

// Error implements error
func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

// Unwrap returns the wrapped error
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Classify maps an error onto its class. A ClassifiedError anywhere in the
// chain wins; otherwise the package sentinels decide.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	switch {
	case errors.Is(err, tabular.ErrTimeParse):
		return ClassTimeParse
	case errors.Is(err, tabular.ErrShape), errors.Is(err, tabular.ErrNotRows), errors.Is(err, event.ErrMissingColumns):
		return ClassShape
	case errors.Is(err, archive.ErrStep):
		return ClassDecodeStep
	case errors.Is(err, ErrOutputPath):
		return ClassFileAccess
	default:
		return ClassUnknown
	}
}

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	FilePath  string
	Group     string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation, filePath string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		FilePath:  filePath,
	}
}

// WithGroup adds group context to the error
func (ec *ErrorContext) WithGroup(group string) *ErrorContext {
	ec.Group = group
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Error creates a formatted error with context
func (ec *ErrorContext) Error(baseErr error) error {
	var parts []string
	parts = append(parts, fmt.Sprintf("cdm: %s failed", ec.Operation))

	if ec.FilePath != "" {
		parts = append(parts, "file: "+ec.FilePath)
	}

	if ec.Group != "" {
		parts = append(parts, "group: "+ec.Group)
	}

	if ec.Details != "" {
		parts = append(parts, "details: "+ec.Details)
	}

	context := strings.Join(parts, ", ")
	if baseErr != nil {
		return fmt.Errorf("%s: %w", context, baseErr)
	}
	return fmt.Errorf("%s", context)
}
