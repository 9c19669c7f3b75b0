package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/Ifihan/blazerpc/internal/registry"
	"github.com/Ifihan/blazerpc/internal/schema"
	"github.com/Ifihan/blazerpc/internal/tensor"
	"github.com/Ifihan/blazerpc/internal/types"
)

func buildEchoSchema(t *testing.T) *schema.Schema {
	t.Helper()
	models := []*registry.ModelDescriptor{
		{
			Name:       "echo",
			MethodName: "PredictEcho",
			Params: []registry.Param{
				{Name: "text", Type: types.Scalar(types.KindString)},
				{Name: "tags", Type: types.List(types.KindString)},
				{Name: "weights", Type: types.Tensor(types.Float32, types.FixedDim(2))},
			},
			ReturnType: types.Scalar(types.KindString),
		},
	}
	sc, err := schema.Generate(models)
	require.NoError(t, err)
	return sc
}

func TestDecodeEncodeScalarRoundTrip(t *testing.T) {
	sc := buildEchoSchema(t)
	reqDesc := sc.FileDesc.Services().ByName("InferenceService").Methods().ByName("PredictEcho").Input()

	msg := dynamicpb.NewMessage(reqDesc)
	textFd := reqDesc.Fields().ByName("text")
	require.NoError(t, encodeField(msg, textFd, types.Scalar(types.KindString), "hello"))

	decoded, err := decodeField(msg, textFd, "text", types.Scalar(types.KindString))
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded)
}

func TestDecodeEncodeListRoundTrip(t *testing.T) {
	sc := buildEchoSchema(t)
	reqDesc := sc.FileDesc.Services().ByName("InferenceService").Methods().ByName("PredictEcho").Input()
	msg := dynamicpb.NewMessage(reqDesc)
	tagsFd := reqDesc.Fields().ByName("tags")

	require.NoError(t, encodeField(msg, tagsFd, types.List(types.KindString), []any{"a", "b", "c"}))
	decoded, err := decodeField(msg, tagsFd, "tags", types.List(types.KindString))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, decoded)
}

func TestDecodeMissingRequiredScalarFails(t *testing.T) {
	sc := buildEchoSchema(t)
	reqDesc := sc.FileDesc.Services().ByName("InferenceService").Methods().ByName("PredictEcho").Input()
	msg := dynamicpb.NewMessage(reqDesc)
	textFd := reqDesc.Fields().ByName("text")

	_, err := decodeField(msg, textFd, "text", types.Scalar(types.KindString))
	require.Error(t, err)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDecodeMissingListYieldsEmptySlice(t *testing.T) {
	sc := buildEchoSchema(t)
	reqDesc := sc.FileDesc.Services().ByName("InferenceService").Methods().ByName("PredictEcho").Input()
	msg := dynamicpb.NewMessage(reqDesc)
	tagsFd := reqDesc.Fields().ByName("tags")

	decoded, err := decodeField(msg, tagsFd, "tags", types.List(types.KindString))
	require.NoError(t, err)
	assert.Equal(t, []any{}, decoded)
}

func TestDecodeEncodeTensorRoundTrip(t *testing.T) {
	sc := buildEchoSchema(t)
	reqDesc := sc.FileDesc.Services().ByName("InferenceService").Methods().ByName("PredictEcho").Input()
	msg := dynamicpb.NewMessage(reqDesc)
	weightsFd := reqDesc.Fields().ByName("weights")

	rec := tensor.Record{Shape: []int64{2}, DType: types.Float32, Data: []byte{0, 0, 128, 63, 0, 0, 0, 64}}
	require.NoError(t, encodeField(msg, weightsFd, types.Tensor(types.Float32, types.FixedDim(2)), rec))

	decoded, err := decodeField(msg, weightsFd, "weights", types.Tensor(types.Float32, types.FixedDim(2)))
	require.NoError(t, err)
	tns, ok := decoded.(interface{ Shape() []int64 })
	require.True(t, ok)
	assert.Equal(t, []int64{2}, tns.Shape())
}

func TestEncodeScalarTypeMismatch(t *testing.T) {
	sc := buildEchoSchema(t)
	reqDesc := sc.FileDesc.Services().ByName("InferenceService").Methods().ByName("PredictEcho").Input()
	msg := dynamicpb.NewMessage(reqDesc)
	textFd := reqDesc.Fields().ByName("text")

	err := encodeField(msg, textFd, types.Scalar(types.KindString), 42)
	require.Error(t, err)
}
