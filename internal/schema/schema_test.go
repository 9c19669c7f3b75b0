package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ifihan/blazerpc/internal/registry"
	"github.com/Ifihan/blazerpc/internal/types"
)

func sampleModels() []*registry.ModelDescriptor {
	return []*registry.ModelDescriptor{
		{
			Name:       "echo",
			MethodName: "PredictEcho",
			Params:     []registry.Param{{Name: "text", Type: types.Scalar(types.KindString)}},
			ReturnType: types.Scalar(types.KindString),
		},
		{
			Name:       "classify",
			MethodName: "PredictClassify",
			Params: []registry.Param{
				{Name: "features", Type: types.Tensor(types.Float32, types.FixedDim(10))},
			},
			ReturnType: types.List(types.KindFloat32),
		},
		{
			Name:       "generate",
			MethodName: "PredictGenerate",
			Params:     []registry.Param{{Name: "prompt", Type: types.Scalar(types.KindString)}},
			ReturnType: types.Scalar(types.KindString),
			Streaming:  true,
		},
	}
}

func TestGenerateTextIsDeterministic(t *testing.T) {
	models := sampleModels()
	first, err := GenerateText(models)
	require.NoError(t, err)
	second, err := GenerateText(models)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "message TensorProto")
	assert.Contains(t, first, "rpc PredictGenerate(GenerateRequest) returns (stream GenerateResponse);")
	assert.Contains(t, first, "rpc PredictEcho(EchoRequest) returns (EchoResponse);")
}

func TestGenerateTextOmitsTensorProtoWhenUnused(t *testing.T) {
	models := []*registry.ModelDescriptor{{
		Name:       "echo",
		MethodName: "PredictEcho",
		Params:     []registry.Param{{Name: "text", Type: types.Scalar(types.KindString)}},
		ReturnType: types.Scalar(types.KindString),
	}}
	text, err := GenerateText(models)
	require.NoError(t, err)
	assert.NotContains(t, text, "TensorProto")
}

func TestBuildFileDescriptorMatchesText(t *testing.T) {
	models := sampleModels()
	fd, err := BuildFileDescriptor(models)
	require.NoError(t, err)

	svc := fd.Services().ByName("InferenceService")
	require.NotNil(t, svc)
	require.Equal(t, 3, svc.Methods().Len())

	classify := svc.Methods().ByName("PredictClassify")
	require.NotNil(t, classify)
	assert.False(t, classify.IsStreamingServer())

	generate := svc.Methods().ByName("PredictGenerate")
	require.NotNil(t, generate)
	assert.True(t, generate.IsStreamingServer())

	req := classify.Input()
	featuresField := req.Fields().ByName("features")
	require.NotNil(t, featuresField)
	assert.Equal(t, "blazerpc.TensorProto", string(featuresField.Message().FullName()))
}

func TestGenerateProducesBothArtifacts(t *testing.T) {
	models := sampleModels()
	sc, err := Generate(models)
	require.NoError(t, err)
	assert.NotEmpty(t, sc.Text)
	assert.NotNil(t, sc.FileDesc)
	assert.Len(t, sc.ModelOrder, 3)
}
