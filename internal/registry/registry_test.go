package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ifihan/blazerpc/internal/types"
)

func echoDescriptor() ModelDescriptor {
	return ModelDescriptor{
		Name:       "echo",
		Params:     []Param{{Name: "text", Type: types.Scalar(types.KindString)}},
		ReturnType: types.Scalar(types.KindString),
		Unbatched: func(args map[string]any) (any, error) {
			return args["text"], nil
		},
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoDescriptor()))

	got, err := r.Lookup("PredictEcho")
	require.NoError(t, err)
	assert.Equal(t, "echo", got.Name)
	assert.Equal(t, "1", got.Version)
}

func TestMethodNameDerivation(t *testing.T) {
	assert.Equal(t, "PredictSentimentV2", MethodName("sentiment_v2"))
	assert.Equal(t, "PredictEcho", MethodName("echo"))
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoDescriptor()))
	err := r.Register(echoDescriptor())
	require.Error(t, err)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestRegisterRejectsDuplicateDerivedMethodName(t *testing.T) {
	r := New()
	a := echoDescriptor()
	a.Name = "greet"
	b := echoDescriptor()
	b.Name = "greet_" // different name, but pascalCase("greet_") == pascalCase("greet")
	require.NoError(t, r.Register(a))
	err := r.Register(b)
	require.Error(t, err)
}

func TestRegisterRejectsInvalidIdentifier(t *testing.T) {
	r := New()
	bad := echoDescriptor()
	bad.Name = "2bad"
	require.Error(t, r.Register(bad))
}

func TestRegisterRejectsMissingCallable(t *testing.T) {
	r := New()
	d := echoDescriptor()
	d.Unbatched = nil
	d.Batched = nil
	require.Error(t, r.Register(d))
}

func TestRegisterStreamingRequiresStreamFunc(t *testing.T) {
	r := New()
	d := echoDescriptor()
	d.Streaming = true
	d.Unbatched = nil
	require.Error(t, r.Register(d))

	d.Stream = func(args map[string]any) (Generator, error) { return nil, nil }
	require.NoError(t, r.Register(d))
}

func TestFreezeRejectsFurtherRegistration(t *testing.T) {
	r := New()
	r.Freeze()
	err := r.Register(echoDescriptor())
	require.Error(t, err)
	assert.True(t, r.Frozen())
}

func TestListPreservesInsertionOrder(t *testing.T) {
	r := New()
	first := echoDescriptor()
	first.Name = "alpha"
	second := echoDescriptor()
	second.Name = "beta"
	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(second))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "beta", list[1].Name)
}

func TestLookupUnknownMethod(t *testing.T) {
	r := New()
	_, err := r.Lookup("PredictMissing")
	require.Error(t, err)
}
