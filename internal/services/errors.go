package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSynthesis     = errors.New("synthesis error")
	ErrPublish       = errors.New("publish error")
	ErrFileOperation = errors.New("file operation error")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker. The marker should be one of the exported sentinel
// errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// SynthesisError reports a failed text-to-speech request. It covers an
// unreachable service, an invalid entity id, and empty input text.
type SynthesisError struct {
	Op  string
	Err error
}

func (e *SynthesisError) Error() string { return describe("synthesize", e.Op, e.Err) }

func (e *SynthesisError) Unwrap() []error { return []error{ErrSynthesis, e.Err} }

// PublishError reports a failure to post an approval message.
type PublishError struct {
	Op  string
	Err error
}

func (e *PublishError) Error() string { return describe("publish", e.Op, e.Err) }

func (e *PublishError) Unwrap() []error { return []error{ErrPublish, e.Err} }

// FileOperationError reports a failed move or delete during outcome handling.
type FileOperationError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileOperationError) Error() string {
	op := e.Op
	if e.Path != "" {
		op = fmt.Sprintf("%s %s", e.Op, e.Path)
	}
	return describe("file", op, e.Err)
}

func (e *FileOperationError) Unwrap() []error { return []error{ErrFileOperation, e.Err} }

// ConfigurationError reports missing or invalid startup settings. It is fatal.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string { return describe("config", e.Key, e.Err) }

func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

func describe(kind, op string, err error) string {
	var b strings.Builder
	b.WriteString(kind)
	if op = strings.TrimSpace(op); op != "" {
		b.WriteString(" ")
		b.WriteString(op)
	}
	if err != nil {
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
