package chat

import (
	"errors"
	"fmt"
)

// Kind classifies how a dispatch ended.
type Kind int

const (
	KindOK Kind = iota
	// KindLengthExceeded and KindIntercepted are normal rejections, not failures.
	KindLengthExceeded
	KindIntercepted
	KindUnsupportedType
	KindMiddlewareFailure
	KindHandlerFailure
	KindSystemFault
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindLengthExceeded:
		return "length_exceeded"
	case KindIntercepted:
		return "intercepted"
	case KindUnsupportedType:
		return "unsupported_type"
	case KindMiddlewareFailure:
		return "middleware_failure"
	case KindHandlerFailure:
		return "handler_failure"
	case KindSystemFault:
		return "system_fault"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Failed reports whether k is one of the failure kinds.
func (k Kind) Failed() bool {
	return k >= KindUnsupportedType
}

func (k Kind) label() string {
	switch k {
	case KindUnsupportedType:
		return "unsupported message type"
	case KindMiddlewareFailure:
		return "middleware failure"
	case KindHandlerFailure:
		return "handler failure"
	default:
		return "system error"
	}
}

// Error is the structured failure carried by a failed Result.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	detail := e.Detail
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		return e.Kind.label()
	}

	return e.Kind.label() + ": " + detail
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// KindOf returns the dispatch kind carried by err, or KindSystemFault for
// foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}

	var chatErr *Error
	if errors.As(err, &chatErr) {
		return chatErr.Kind
	}

	return KindSystemFault
}

const interceptedText = "message intercepted by middleware"

// Result is the outcome of one dispatch.
type Result struct {
	DispatchID string
	Kind       Kind
	// Text is the final reply for KindOK.
	Text string
	// Limit is the configured ceiling for KindLengthExceeded.
	Limit int
	// Middleware and MiddlewareIndex identify the intercepting middleware
	// for KindIntercepted.
	Middleware      string
	MiddlewareIndex int
	Err        error
}

func (r Result) OK() bool {
	return r.Kind == KindOK
}

// String renders the result for humans. Failures render as
// "<failure-kind>: <detail>".
func (r Result) String() string {
	switch r.Kind {
	case KindOK:
		return r.Text
	case KindLengthExceeded:
		return fmt.Sprintf("message length exceeds limit (%d)", r.Limit)
	case KindIntercepted:
		return interceptedText
	}

	if r.Err != nil {
		var chatErr *Error
		if errors.As(r.Err, &chatErr) {
			return chatErr.Error()
		}
		return (&Error{Kind: r.Kind, Err: r.Err}).Error()
	}

	return r.Kind.label()
}

func failure(kind Kind, detail string, err error) Result {
	return Result{Kind: kind, Err: &Error{Kind: kind, Detail: detail, Err: err}}
}
