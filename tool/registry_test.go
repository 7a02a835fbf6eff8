package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/colloquy/internal/schema"
)

func quoteDef() Definition {
	return Definition{
		Name:        "get_lotr_quote",
		Description: "Fetch a movie quote",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

func TestRegistryInvokeSuccess(t *testing.T) {
	reg := NewRegistry().Register(quoteDef(), func(ctx context.Context, args map[string]any) (*Output, error) {
		return &Output{Content: "You shall not pass!"}, nil
	})

	out, err := reg.Invoke(context.Background(), "get_lotr_quote", nil)
	require.NoError(t, err)
	assert.Equal(t, "You shall not pass!", out.Content)
}

func TestRegistryUnknownCapability(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Invoke(context.Background(), "get_lotr_quote", nil)
	require.Error(t, err)
	assert.Equal(t, ErrorUnknownCapability, KindOf(err))
	assert.False(t, reg.Has("get_lotr_quote"))
}

func TestRegistryClassifiesUntypedErrors(t *testing.T) {
	reg := NewRegistry().Register(quoteDef(), func(ctx context.Context, args map[string]any) (*Output, error) {
		return nil, errors.New("connection refused")
	})

	_, err := reg.Invoke(context.Background(), "get_lotr_quote", nil)
	assert.Equal(t, ErrorUnreachable, KindOf(err))
}

func TestRegistryPreservesTypedErrors(t *testing.T) {
	reg := NewRegistry().Register(quoteDef(), func(ctx context.Context, args map[string]any) (*Output, error) {
		return nil, NewRejected("get_lotr_quote", "no quote available")
	})

	_, err := reg.Invoke(context.Background(), "get_lotr_quote", nil)
	assert.Equal(t, ErrorRejected, KindOf(err))
	assert.Contains(t, err.Error(), "no quote available")
}

func TestRegistryReinvocable(t *testing.T) {
	calls := 0
	reg := NewRegistry().Register(quoteDef(), func(ctx context.Context, args map[string]any) (*Output, error) {
		calls++
		if calls == 1 {
			return nil, NewUnreachable("get_lotr_quote", errors.New("timeout"))
		}
		return &Output{Content: "second try"}, nil
	})

	_, err := reg.Invoke(context.Background(), "get_lotr_quote", nil)
	require.Error(t, err)

	out, err := reg.Invoke(context.Background(), "get_lotr_quote", nil)
	require.NoError(t, err)
	assert.Equal(t, "second try", out.Content)
}

func TestRegistryDefinitionsOrderAndReplace(t *testing.T) {
	a := Definition{Name: "a", Description: "first"}
	b := Definition{Name: "b", Description: "second"}

	reg := NewRegistry().
		Register(a, func(ctx context.Context, args map[string]any) (*Output, error) { return &Output{}, nil }).
		Register(b, func(ctx context.Context, args map[string]any) (*Output, error) { return &Output{}, nil })

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "a", defs[0].Name)
	assert.Equal(t, "b", defs[1].Name)

	// Re-registering replaces in place without duplicating.
	a.Description = "replaced"
	reg.Register(a, func(ctx context.Context, args map[string]any) (*Output, error) { return &Output{}, nil })
	defs = reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "replaced", defs[0].Description)
}

func TestRegistryValidatesArguments(t *testing.T) {
	type describeArgs struct {
		Quote string `json:"quote" description:"The quote text"`
	}

	def := Definition{
		Name:        "describe_lotr_quote",
		Description: "Describe a quote",
		Parameters:  schema.For(describeArgs{}),
	}
	reg := NewRegistry().Register(def, func(ctx context.Context, args map[string]any) (*Output, error) {
		return &Output{Content: "described"}, nil
	})

	// Missing required argument is a rejection, not a transport failure.
	_, err := reg.Invoke(context.Background(), "describe_lotr_quote", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, ErrorRejected, KindOf(err))

	// Wrong type likewise.
	_, err = reg.Invoke(context.Background(), "describe_lotr_quote", map[string]any{"quote": 42})
	assert.Equal(t, ErrorRejected, KindOf(err))

	out, err := reg.Invoke(context.Background(), "describe_lotr_quote", map[string]any{"quote": "You shall not pass!"})
	require.NoError(t, err)
	assert.Equal(t, "described", out.Content)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorUnknownCapability, KindOf(NewUnknownCapability("x")))

	// Wrapped invocation errors still classify.
	wrapped := errors.Join(errors.New("outer"), NewRejected("x", "nope"))
	assert.Equal(t, ErrorRejected, KindOf(wrapped))
}
