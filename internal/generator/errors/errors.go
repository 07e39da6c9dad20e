// Package errors provides structured error handling for the protoverge
// generator. It defines error codes, categories, and severities for both
// human-readable terminal output and machine-parseable JSON.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Code is a unique error code in the generator
type Code string

const (
	// CodeTypeMismatch is raised when a field resolves to irreconcilable types
	CodeTypeMismatch Code = "VRG101"
	// CodeAmbiguousIdentity is raised when field matching finds conflicting candidates
	CodeAmbiguousIdentity Code = "VRG102"
	// CodeMalformedDescriptor is raised when a descriptor set cannot be decoded
	CodeMalformedDescriptor Code = "VRG201"
	// CodeLockTimeout is raised when the cache lock cannot be acquired in time
	CodeLockTimeout Code = "VRG301"
	// CodeStateCorrupt is raised when the cache state file cannot be decoded
	CodeStateCorrupt Code = "VRG302"
	// CodeBadConfig is raised for invalid project configuration
	CodeBadConfig Code = "VRG401"
	// CodeSynthesis is raised when accessor synthesis fails for a message
	CodeSynthesis Code = "VRG501"
)

// Category groups error codes by generator phase
type Category string

const (
	// CategoryMerge covers identity resolution and conflict classification (VRG1xx)
	CategoryMerge Category = "merge"
	// CategorySchema covers descriptor loading and model construction (VRG2xx)
	CategorySchema Category = "schema"
	// CategoryCache covers incremental state and locking (VRG3xx)
	CategoryCache Category = "cache"
	// CategoryConfig covers project configuration (VRG4xx)
	CategoryConfig Category = "config"
	// CategorySynth covers accessor synthesis (VRG5xx)
	CategorySynth Category = "synth"
)

// Severity indicates the severity level of an error
type Severity string

const (
	// SeverityFatal indicates an error that aborts generation immediately
	SeverityFatal Severity = "fatal"
	// SeverityError indicates an error that fails the run after the phase completes
	SeverityError Severity = "error"
	// SeverityWarning indicates a diagnostic that does not fail the run
	SeverityWarning Severity = "warning"
	// SeverityInfo indicates informational output
	SeverityInfo Severity = "info"
)

// GenError represents a structured generator error with enough context to
// pinpoint the field and revisions involved
type GenError struct {
	// Code is the unique error code (e.g., "VRG101")
	Code Code `json:"code"`
	// Category is the generator phase the error belongs to
	Category Category `json:"category"`
	// Severity is the error severity level
	Severity Severity `json:"severity"`
	// Message is the primary error message
	Message string `json:"message"`
	// MessageName is the fully-qualified schema message involved (optional)
	MessageName string `json:"message_name,omitempty"`
	// Field is the schema field involved (optional)
	Field string `json:"field,omitempty"`
	// Revisions lists the revision tags involved (optional)
	Revisions []string `json:"revisions,omitempty"`
	// Detail carries additional key/value context (optional)
	Detail map[string]string `json:"detail,omitempty"`

	cause error
}

// Error implements the error interface
func (e *GenError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.MessageName != "" {
		fmt.Fprintf(&b, " (message %s", e.MessageName)
		if e.Field != "" {
			fmt.Fprintf(&b, ", field %s", e.Field)
		}
		b.WriteString(")")
	}
	if len(e.Revisions) > 0 {
		fmt.Fprintf(&b, " [revisions %s]", strings.Join(e.Revisions, ", "))
	}
	return b.String()
}

// Unwrap returns the wrapped cause, if any
func (e *GenError) Unwrap() error {
	return e.cause
}

// IsFatal reports whether the error aborts generation immediately
func (e *GenError) IsFatal() bool {
	return e.Severity == SeverityFatal
}

// ToJSON returns the error as an indented JSON string
func (e *GenError) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WithMessageName sets the schema message the error refers to
func (e *GenError) WithMessageName(name string) *GenError {
	e.MessageName = name
	return e
}

// WithField sets the schema field the error refers to
func (e *GenError) WithField(field string) *GenError {
	e.Field = field
	return e
}

// WithRevisions sets the revision tags involved
func (e *GenError) WithRevisions(tags ...string) *GenError {
	e.Revisions = tags
	return e
}

// WithDetail adds a key/value pair of additional context
func (e *GenError) WithDetail(key, value string) *GenError {
	if e.Detail == nil {
		e.Detail = make(map[string]string)
	}
	e.Detail[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *GenError) WithCause(cause error) *GenError {
	e.cause = cause
	return e
}

// New creates a GenError with the severity and category implied by the code
func New(code Code, format string, args ...interface{}) *GenError {
	return &GenError{
		Code:     code,
		Category: categoryOf(code),
		Severity: severityOf(code),
		Message:  fmt.Sprintf(format, args...),
	}
}

func categoryOf(code Code) Category {
	switch code {
	case CodeTypeMismatch, CodeAmbiguousIdentity:
		return CategoryMerge
	case CodeMalformedDescriptor:
		return CategorySchema
	case CodeLockTimeout, CodeStateCorrupt:
		return CategoryCache
	case CodeBadConfig:
		return CategoryConfig
	case CodeSynthesis:
		return CategorySynth
	}
	return CategoryMerge
}

func severityOf(code Code) Severity {
	switch code {
	case CodeTypeMismatch, CodeAmbiguousIdentity, CodeMalformedDescriptor, CodeLockTimeout:
		return SeverityFatal
	case CodeStateCorrupt:
		return SeverityWarning
	}
	return SeverityError
}

// List is a collection of generator errors
type List []*GenError

// Error implements the error interface
func (l List) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	msgs := make([]string, 0, len(l))
	for _, err := range l {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n")
}

// HasFatal returns true if the list contains a fatal error
func (l List) HasFatal() bool {
	for _, err := range l {
		if err.IsFatal() {
			return true
		}
	}
	return false
}

// HasErrors returns true if the list contains errors (excludes warnings/info)
func (l List) HasErrors() bool {
	for _, err := range l {
		if err.Severity == SeverityError || err.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// ToJSON returns all errors as an indented JSON array
func (l List) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Count returns the number of entries by severity
func (l List) Count() (fatals, errors, warnings, info int) {
	for _, err := range l {
		switch err.Severity {
		case SeverityFatal:
			fatals++
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			info++
		}
	}
	return
}
