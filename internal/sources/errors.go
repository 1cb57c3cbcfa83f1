package sources

import (
	"errors"
	"fmt"
)

const (
	unavailableErrorTemplateConstant        = "source %s unavailable: %v"
	formatErrorTemplateConstant             = "source %s format error: %v"
	formatErrorWithLineTemplateConstant     = "source %s format error at line %d: %v"
	configurationErrorTemplateConstant      = "configuration error: %s"
	configurationErrorFieldTemplateConstant = "configuration error: %s: %s"
	unknownCauseMessageConstant             = "unknown failure"
	lineReasonTemplateConstant              = "line %d: %s"
)

// ErrorKind names a class of source failure surfaced in reports.
type ErrorKind string

// Error kinds recognized by the orchestrator and reporter.
const (
	ErrorKindUnavailable   ErrorKind = ErrorKind("SourceUnavailable")
	ErrorKindFormat        ErrorKind = ErrorKind("SourceFormatError")
	ErrorKindConfiguration ErrorKind = ErrorKind("ConfigurationError")
)

// UnavailableError reports a network, authentication, IO, or timeout failure
// while reaching a source.
type UnavailableError struct {
	Source string
	Cause  error
}

// Error describes the failure.
func (unavailableError *UnavailableError) Error() string {
	return fmt.Sprintf(unavailableErrorTemplateConstant, unavailableError.Source, describeCause(unavailableError.Cause))
}

// Unwrap exposes the underlying cause.
func (unavailableError *UnavailableError) Unwrap() error {
	return unavailableError.Cause
}

// FormatError reports a source whose data was reachable but could not be parsed
// into identities. Line is zero when the failure is not tied to a record.
type FormatError struct {
	Source string
	Line   int
	Cause  error
}

// Error describes the failure.
func (formatError *FormatError) Error() string {
	if formatError.Line > 0 {
		return fmt.Sprintf(formatErrorWithLineTemplateConstant, formatError.Source, formatError.Line, describeCause(formatError.Cause))
	}
	return fmt.Sprintf(formatErrorTemplateConstant, formatError.Source, describeCause(formatError.Cause))
}

// Unwrap exposes the underlying cause.
func (formatError *FormatError) Unwrap() error {
	return formatError.Cause
}

// ConfigurationError reports a fatal setup problem detected before any source is queried.
type ConfigurationError struct {
	Field   string
	Message string
}

// Error describes the misconfiguration.
func (configurationError *ConfigurationError) Error() string {
	if len(configurationError.Field) == 0 {
		return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Message)
	}
	return fmt.Sprintf(configurationErrorFieldTemplateConstant, configurationError.Field, configurationError.Message)
}

// NewUnavailableError wraps cause as an UnavailableError for the named source.
func NewUnavailableError(sourceName string, cause error) error {
	return &UnavailableError{Source: sourceName, Cause: cause}
}

// NewFormatError wraps cause as a FormatError for the named source.
func NewFormatError(sourceName string, line int, cause error) error {
	return &FormatError{Source: sourceName, Line: line, Cause: cause}
}

// NewConfigurationError builds a ConfigurationError for the provided field.
func NewConfigurationError(field string, message string) error {
	return &ConfigurationError{Field: field, Message: message}
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var configurationError *ConfigurationError
	return errors.As(err, &configurationError)
}

// ClassifyError maps a source failure to its ErrorKind. Failures that are
// neither format nor configuration errors are treated as unavailability.
func ClassifyError(err error) ErrorKind {
	var formatError *FormatError
	if errors.As(err, &formatError) {
		return ErrorKindFormat
	}
	var unavailableError *UnavailableError
	if errors.As(err, &unavailableError) {
		return ErrorKindUnavailable
	}
	if IsConfigurationError(err) {
		return ErrorKindConfiguration
	}
	return ErrorKindUnavailable
}

// Reason extracts the innermost human-readable cause of a classified source error.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var formatError *FormatError
	if errors.As(err, &formatError) {
		if formatError.Line > 0 {
			return fmt.Sprintf(lineReasonTemplateConstant, formatError.Line, describeCause(formatError.Cause))
		}
		return describeCause(formatError.Cause)
	}
	var unavailableError *UnavailableError
	if errors.As(err, &unavailableError) {
		return describeCause(unavailableError.Cause)
	}
	return err.Error()
}

func describeCause(cause error) string {
	if cause == nil {
		return unknownCauseMessageConstant
	}
	return cause.Error()
}
