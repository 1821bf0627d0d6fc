package handler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"chatdispatch/pkg/message"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func reply(text string) Func {
	return func(context.Context, *message.Context) (string, error) {
		return text, nil
	}
}

func names(defs []Definition) []string {
	out := make([]string, 0, len(defs))
	for _, def := range defs {
		out = append(out, def.Name)
	}
	return out
}

func TestRegisterSortsByPriorityDescending(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(Definition{Type: "text", Priority: 0, Name: "low", Invoke: reply("low")}))
	require.NoError(t, r.Register(Definition{Type: "text", Priority: 5, Name: "high", Invoke: reply("high")}))
	require.NoError(t, r.Register(Definition{Type: "text", Priority: 1, Name: "mid", Invoke: reply("mid")}))

	if diff := cmp.Diff([]string{"high", "mid", "low"}, names(r.Candidates("text"))); diff != "" {
		t.Fatalf("candidate order mismatch (-want +got):\n%s", diff)
	}

	top, ok := r.Lookup("text")
	require.True(t, ok)
	require.Equal(t, "high", top.Name)
}

func TestRegisterKeepsRegistrationOrderOnTies(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, r.Register(Definition{Type: "image", Priority: 1, Name: name, Invoke: reply(name)}))
	}
	require.NoError(t, r.Register(Definition{Type: "image", Priority: 2, Name: "d", Invoke: reply("d")}))
	require.NoError(t, r.Register(Definition{Type: "image", Priority: 1, Name: "e", Invoke: reply("e")}))

	if diff := cmp.Diff([]string{"d", "a", "b", "c", "e"}, names(r.Candidates("image"))); diff != "" {
		t.Fatalf("candidate order mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterAllowsDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	def := Definition{Type: "text", Name: "dup", Invoke: reply("x")}
	require.NoError(t, r.Register(def))
	require.NoError(t, r.Register(def))

	require.Len(t, r.Candidates("text"), 2)
}

func TestRegisterRejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.ErrorIs(t, r.Register(Definition{Invoke: reply("x")}), ErrMissingType)
	require.ErrorIs(t, r.Register(Definition{Type: "text"}), ErrMissingInvoke)
	require.Empty(t, r.Types())
}

func TestLookupUnknownType(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, ok := r.Lookup("video"); ok {
		t.Fatal("expected lookup of unregistered type to fail")
	}
	if got := r.Candidates("video"); got != nil {
		t.Fatalf("candidates = %v, want nil", got)
	}
}

func TestRegisterAllRegistersBatch(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	n, err := r.RegisterAll(Definitions{
		{Type: "text", Priority: 1, Name: "text", Invoke: reply("t")},
		{Type: "image", Priority: 1, Name: "image", Invoke: reply("i")},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"image", "text"}, r.Types())
}

func TestRegisterAllAbortsOnInvalidDefinition(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	n, err := r.RegisterAll(Definitions{
		{Type: "text", Name: "first", Invoke: reply("t")},
		{Type: "image", Name: "broken"},
		{Type: "location", Name: "never", Invoke: reply("l")},
	})
	require.Error(t, err)
	require.Equal(t, 1, n)

	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, 1, regErr.Index)
	require.Equal(t, "broken", regErr.Name)
	require.ErrorIs(t, err, ErrMissingInvoke)

	// Earlier inserts are not rolled back.
	require.Equal(t, []string{"text"}, r.Types())
}

func TestRegisterAllSupplierFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("module unavailable")
	r := NewRegistry()
	_, err := r.RegisterAll(SupplierFunc(func() ([]Definition, error) { return nil, boom }))

	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	require.ErrorIs(t, err, boom)
	require.Equal(t, "register handlers: module unavailable", err.Error())

	_, err = r.RegisterAll(nil)
	require.Error(t, err)
}

func TestRegistryConcurrentRegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(priority int) {
			defer wg.Done()
			_ = r.Register(Definition{Type: "text", Priority: priority, Invoke: reply("x")})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = r.Lookup("text")
		}()
	}
	wg.Wait()

	candidates := r.Candidates("text")
	require.Len(t, candidates, 20)
	for i := 1; i < len(candidates); i++ {
		if candidates[i-1].Priority < candidates[i].Priority {
			t.Fatalf("candidates not sorted at %d: %d < %d", i, candidates[i-1].Priority, candidates[i].Priority)
		}
	}
}
