// Package ccerr defines the classified error taxonomy shared by the
// resolver, router, and every extraction engine. Engines return *Error
// (or wrap a cause with one of the constructors below) so the router can
// make fallback decisions without parsing error strings.
package ccerr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure, not a concrete Go type. The router's
// fallback policy and fatal_errors matching operate on Kind, never on
// the wrapped cause.
type Kind string

const (
	EngineNotFound          Kind = "engine_not_found"
	EngineUnavailable       Kind = "engine_unavailable"
	NoEngineAvailable       Kind = "no_engine_available"
	NetworkError            Kind = "network_error"
	RateLimitError          Kind = "rate_limit_error"
	AuthError               Kind = "auth_error"
	NotFoundError           Kind = "not_found_error"
	ParseError              Kind = "parse_error"
	UnsupportedContentError Kind = "unsupported_content_error"
	Timeout                 Kind = "timeout"
	Cancelled               Kind = "cancelled"
	TranscriptionError      Kind = "transcription_error"
	FatalInternal           Kind = "fatal_internal"
	Blocked                 Kind = "blocked"
	EmptyCaptions           Kind = "empty_captions"
	CaptionGenerationError  Kind = "caption_generation_error"
)

// Retryable kinds are ones an engine's own backoff loop should retry on.
// Router-level fallback is a separate decision (see config.Fallback,
// applied by router.Run).
func (k Kind) Retryable() bool {
	switch k {
	case NetworkError, RateLimitError, Timeout:
		return true
	default:
		return false
	}
}

// Error is the concrete error value engines and the router exchange.
type Error struct {
	Kind    Kind
	Engine  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Engine != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Engine, e.Kind, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s: %s", e.Engine, e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, ccerr.New(SomeKind, "")) to match purely on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a classified error with no engine name attached yet; engines
// typically call WithEngine immediately after, or use Newf directly.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an existing cause, preserving it
// for errors.Unwrap/errors.As chains.
func Wrap(kind Kind, engine string, cause error, message string) *Error {
	return &Error{Kind: kind, Engine: engine, Message: message, Cause: cause}
}

func (e *Error) WithEngine(name string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Engine = name
	return &cp
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, defaulting
// to FatalInternal for unclassified errors so the router never falls
// through silently on an unexpected Go error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return FatalInternal
}

// Attempt records one engine's outcome in a chain, for AllEnginesFailed
// and partial-failure reporting.
type Attempt struct {
	Engine  string
	Kind    Kind
	Message string
}

// AllEnginesFailedError is the router's terminal failure: every engine in
// the resolved chain was attempted (or skipped as unavailable) and none
// produced a result.
type AllEnginesFailedError struct {
	Attempts []Attempt
}

func (e *AllEnginesFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all engines failed: no attempts recorded"
	}
	msg := "all engines failed:"
	for _, a := range e.Attempts {
		msg += fmt.Sprintf(" [%s:%s:%s]", a.Engine, a.Kind, a.Message)
	}
	return msg
}

// SegmentFailure is one failed audio segment inside a TranscriptionError.
type SegmentFailure struct {
	Index   int
	Kind    Kind
	Message string
}

// TranscriptionFailedError is the subclassed TranscriptionError from
// spec §4.6/§7: it carries every segment's failure so callers can see
// which portions of the audio could not be transcribed.
type TranscriptionFailedError struct {
	Failures []SegmentFailure
}

func (e *TranscriptionFailedError) Error() string {
	msg := "transcription failed for segment(s):"
	for _, f := range e.Failures {
		msg += fmt.Sprintf(" [%d:%s:%s]", f.Index, f.Kind, f.Message)
	}
	return msg
}
