// Package apperror carries coded failures from the chain readers up to the
// API, where the code decides the HTTP status and the JSON error body.
package apperror

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// AppError is a failure tagged with a stable Code.
type AppError struct {
	Code      Code
	Message   string
	Detail    string
	Status    int
	Timestamp time.Time

	cause error
	stack []uintptr
}

// Option configures an AppError in New.
type Option func(*AppError)

// WithMessage replaces the code's default message.
func WithMessage(message string) Option {
	return func(e *AppError) { e.Message = message }
}

// WithContext attaches a free-form detail, usually the pair or contract
// that failed.
func WithContext(detail string) Option {
	return func(e *AppError) { e.Detail = detail }
}

// WithCause records the underlying error for Unwrap.
func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

// New builds an AppError for code.
func New(code Code, opts ...Option) *AppError {
	e := &AppError{
		Code:      code,
		Message:   code.Message(),
		Status:    code.Status(),
		Timestamp: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Status >= http.StatusInternalServerError {
		e.stack = captureStack()
	}
	return e
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// Is matches any *AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// ErrorBody is the JSON object served under "error".
type ErrorBody struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Context   string `json:"context,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

// Response is the JSON envelope for failed requests.
type Response struct {
	Error ErrorBody `json:"error"`
}

// Response renders e for an HTTP client. traceID may be empty.
func (e *AppError) Response(traceID string) Response {
	return Response{Error: ErrorBody{
		Code:      e.Code,
		Message:   e.Message,
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Context:   e.Detail,
		TraceID:   traceID,
	}}
}

// LogValue implements slog.LogValuer so an AppError logs as a group.
func (e *AppError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", string(e.Code)),
		slog.String("message", e.Message),
	}
	if e.Detail != "" {
		attrs = append(attrs, slog.String("context", e.Detail))
	}
	if e.cause != nil {
		attrs = append(attrs, slog.String("cause", e.cause.Error()))
	}
	if len(e.stack) > 0 {
		attrs = append(attrs, slog.String("stack", formatStack(e.stack)))
	}
	return slog.GroupValue(attrs...)
}

func captureStack() []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

func formatStack(pcs []uintptr) string {
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", frame.File, frame.Line, frame.Function)
		}
		if !more {
			return sb.String()
		}
	}
}

// As returns the outermost AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// Wrap returns err's AppError, or a new one with code wrapping err.
func Wrap(err error, code Code) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return New(code, WithCause(err))
}

// GetCode returns the code of err's AppError, or CodeUnknownError.
func GetCode(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeUnknownError
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &AppError{Code: code})
}
