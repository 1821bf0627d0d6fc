package middleware

import (
	"context"
	"fmt"
	"strings"

	"chatdispatch/pkg/message"
)

// Middleware wraps handler invocation with a pre-hook and a post-hook.
//
// BeforeProcess returning false stops the dispatch. AfterProcess receives the
// current result and returns the result handed to the next post-hook.
type Middleware interface {
	BeforeProcess(ctx context.Context, msg *message.Context) (bool, error)
	AfterProcess(ctx context.Context, result string, msg *message.Context) (string, error)
}

// Named is implemented by middleware that wants a stable name in logs and errors.
type Named interface {
	Name() string
}

// Base provides pass-through hooks. Embed it to implement only one side.
type Base struct{}

func (Base) BeforeProcess(context.Context, *message.Context) (bool, error) {
	return true, nil
}

func (Base) AfterProcess(_ context.Context, result string, _ *message.Context) (string, error) {
	return result, nil
}

// Phase identifies which hook of a middleware ran.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// Error reports a failing hook.
type Error struct {
	Name  string
	Index int
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("middleware %s (#%d) %s hook: %v", e.Name, e.Index, e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// NameOf returns the display name of mw.
func NameOf(mw Middleware) string {
	if named, ok := mw.(Named); ok {
		if name := strings.TrimSpace(named.Name()); name != "" {
			return name
		}
	}

	return strings.TrimPrefix(fmt.Sprintf("%T", mw), "*")
}
