package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes pipeline failures
type Kind string

const (
	KindDecode     Kind = "DECODE_ERROR"
	KindCompute    Kind = "COMPUTE_ERROR"
	KindEncode     Kind = "ENCODE_ERROR"
	KindIO         Kind = "IO_ERROR"
	KindValidation Kind = "VALIDATION_ERROR"
)

// Sentinels for errors.Is checks against a whole category.
var (
	ErrDecode     = &Error{Kind: KindDecode}
	ErrCompute    = &Error{Kind: KindCompute}
	ErrEncode     = &Error{Kind: KindEncode}
	ErrIO         = &Error{Kind: KindIO}
	ErrValidation = &Error{Kind: KindValidation}
)

// Error is the structured error carried through every stage
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Cause   error
	Fields  map[string]interface{}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Stage != "" {
		msg = fmt.Sprintf("%s (stage=%s)", msg, e.Stage)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrDecode) works
// regardless of stage or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// With attaches a field and returns the same error
func (e *Error) With(key string, value interface{}) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

func newError(kind Kind, stage, message string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message, Cause: cause}
}

func Decode(stage, message string, cause error) *Error {
	return newError(KindDecode, stage, message, cause)
}

func Compute(stage, message string, cause error) *Error {
	return newError(KindCompute, stage, message, cause)
}

func Encode(stage, message string, cause error) *Error {
	return newError(KindEncode, stage, message, cause)
}

func IO(stage, message string, cause error) *Error {
	return newError(KindIO, stage, message, cause)
}

// Validation reports a rejected configuration value
func Validation(field string, value interface{}, message string) *Error {
	return newError(KindValidation, "config", fmt.Sprintf("field=%s value=%v: %s", field, value, message), nil).
		With("field", field)
}

// FFmpegError describes a failed ffmpeg/ffprobe invocation
type FFmpegError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg exit=%d stderr=%q", e.ExitCode, truncate(e.Stderr, 400))
}

// KindOf returns the kind of the first *Error in the chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
