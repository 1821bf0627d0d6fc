package middleware

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"chatdispatch/pkg/message"
)

// ErrNilMiddleware is returned when a nil middleware is added to a chain.
var ErrNilMiddleware = errors.New("middleware is nil")

// PreOutcome describes how the pre-hook phase ended.
type PreOutcome struct {
	Intercepted bool
	Index       int
	Name        string
}

// Chain is an ordered list of middleware.
//
// Pre-hooks run in insertion order, post-hooks in reverse insertion order.
// Each run works on a snapshot, so Add never affects a dispatch in flight.
type Chain struct {
	mu    sync.RWMutex
	items []Middleware
}

func NewChain(items ...Middleware) *Chain {
	c := &Chain{}
	for _, mw := range items {
		_ = c.Add(mw)
	}
	return c
}

// Add appends mw to the end of the chain.
func (c *Chain) Add(mw Middleware) error {
	if mw == nil {
		return ErrNilMiddleware
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, mw)
	return nil
}

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Names lists the chain in insertion order.
func (c *Chain) Names() []string {
	items := c.snapshot()
	out := make([]string, 0, len(items))
	for _, mw := range items {
		out = append(out, NameOf(mw))
	}
	return out
}

// RunPre invokes every pre-hook in insertion order. It stops at the first
// hook that returns false or fails; no later hook runs.
func (c *Chain) RunPre(ctx context.Context, msg *message.Context) (PreOutcome, error) {
	for i, mw := range c.snapshot() {
		proceed, err := callBefore(ctx, mw, msg)
		if err != nil {
			return PreOutcome{Index: i, Name: NameOf(mw)}, &Error{Name: NameOf(mw), Index: i, Phase: PhaseBefore, Err: err}
		}
		if !proceed {
			return PreOutcome{Intercepted: true, Index: i, Name: NameOf(mw)}, nil
		}
	}

	return PreOutcome{Index: -1}, nil
}

// RunPost threads result through every post-hook in reverse insertion order.
// On failure it returns the result reached before the failing hook.
func (c *Chain) RunPost(ctx context.Context, result string, msg *message.Context) (string, error) {
	items := c.snapshot()
	for i := len(items) - 1; i >= 0; i-- {
		next, err := callAfter(ctx, items[i], result, msg)
		if err != nil {
			return result, &Error{Name: NameOf(items[i]), Index: i, Phase: PhaseAfter, Err: err}
		}
		result = next
	}

	return result, nil
}

func (c *Chain) snapshot() []Middleware {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

func callBefore(ctx context.Context, mw Middleware, msg *message.Context) (bool, error) {
	return bounded(ctx, NameOf(mw), func() (bool, error) {
		return mw.BeforeProcess(ctx, msg)
	})
}

func callAfter(ctx context.Context, mw Middleware, result string, msg *message.Context) (string, error) {
	return bounded(ctx, NameOf(mw), func() (string, error) {
		return mw.AfterProcess(ctx, result, msg)
	})
}

// bounded runs hook with panic recovery. When ctx can be canceled the hook
// runs on its own goroutine, so a hook that ignores ctx cannot hold the
// caller past the deadline.
func bounded[T any](ctx context.Context, name string, hook func() (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}

	call := func() (out outcome) {
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()

		value, err := hook()
		return outcome{value: value, err: err}
	}

	if ctx == nil || ctx.Done() == nil {
		out := call()
		return out.value, out.err
	}

	done := make(chan outcome, 1)
	go func() {
		done <- call()
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("middleware %q did not finish: %w", name, ctx.Err())
	}
}
