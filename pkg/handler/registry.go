package handler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"chatdispatch/pkg/message"
)

// Func produces the reply for one message.
type Func func(ctx context.Context, msg *message.Context) (string, error)

// Definition is one registration record: the message type it serves, its
// priority within that type, and the function to invoke.
type Definition struct {
	Type     string
	Priority int
	Name     string
	Invoke   Func
}

// Supplier hands a batch of handler definitions to the registry.
type Supplier interface {
	Definitions() ([]Definition, error)
}

// Definitions is a fixed, in-memory Supplier.
type Definitions []Definition

func (d Definitions) Definitions() ([]Definition, error) {
	return d, nil
}

// SupplierFunc adapts a function to the Supplier interface.
type SupplierFunc func() ([]Definition, error)

func (f SupplierFunc) Definitions() ([]Definition, error) {
	return f()
}

// RegistrationError reports why a bulk registration stopped.
type RegistrationError struct {
	Index int
	Name  string
	Err   error
}

func (e *RegistrationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Index < 0 {
		return fmt.Sprintf("register handlers: %v", e.Err)
	}
	if e.Name == "" {
		return fmt.Sprintf("register handler #%d: %v", e.Index, e.Err)
	}

	return fmt.Sprintf("register handler #%d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

var (
	ErrMissingType   = errors.New("handler type is required")
	ErrMissingInvoke = errors.New("handler function is required")
)

// Registry maps message types to handlers ordered by priority.
//
// Each per-type list is kept sorted by priority descending; handlers with
// equal priority keep their registration order.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Definition
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]Definition)}
}

// Register appends def to its type's list and re-sorts that list.
// Duplicate registrations coexist.
func (r *Registry) Register(def Definition) error {
	if err := validate(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.handlers[def.Type], def)
	slices.SortStableFunc(list, func(a, b Definition) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	r.handlers[def.Type] = list

	return nil
}

// RegisterAll registers every definition produced by supplier in order and
// returns how many were inserted. The first failure aborts the rest of the
// batch; definitions inserted before it are kept.
func (r *Registry) RegisterAll(supplier Supplier) (int, error) {
	if supplier == nil {
		return 0, &RegistrationError{Index: -1, Err: errors.New("handler supplier is nil")}
	}

	defs, err := supplier.Definitions()
	if err != nil {
		return 0, &RegistrationError{Index: -1, Err: err}
	}

	for i, def := range defs {
		if err := r.Register(def); err != nil {
			return i, &RegistrationError{Index: i, Name: def.Name, Err: err}
		}
	}

	return len(defs), nil
}

// Lookup returns the highest-priority handler for msgType.
func (r *Registry) Lookup(msgType string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.handlers[msgType]
	if len(list) == 0 {
		return Definition{}, false
	}

	return list[0], true
}

// Candidates returns a copy of every handler registered for msgType in
// dispatch order.
func (r *Registry) Candidates(msgType string) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.handlers[msgType]
	if len(list) == 0 {
		return nil
	}

	return slices.Clone(list)
}

// Types returns the registered message types in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for msgType, list := range r.handlers {
		if len(list) > 0 {
			types = append(types, msgType)
		}
	}
	slices.Sort(types)

	return types
}

func validate(def Definition) error {
	if strings.TrimSpace(def.Type) == "" {
		return ErrMissingType
	}
	if def.Invoke == nil {
		return ErrMissingInvoke
	}

	return nil
}
