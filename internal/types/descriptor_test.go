package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidIdentifier(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"plain", "predict", true},
		{"underscored", "sentiment_v2", true},
		{"leading_digit", "2fast", false},
		{"empty", "", false},
		{"hyphen", "bad-name", false},
		{"leading_underscore", "_private", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ValidIdentifier(c.in))
		})
	}
}

func TestDTypeByteWidth(t *testing.T) {
	assert.Equal(t, 4, Float32.ByteWidth())
	assert.Equal(t, 8, Int64.ByteWidth())
	assert.Equal(t, 1, Bool.ByteWidth())
	assert.Equal(t, 0, DType("not-a-real-dtype").ByteWidth())
}

func TestTypeDescriptorValidate(t *testing.T) {
	require.NoError(t, Scalar(KindString).Validate("field"))
	require.NoError(t, List(KindInt64).Validate("field"))
	require.NoError(t, Tensor(Float32, FixedDim(3), SymbolDim("batch")).Validate("field"))

	err := Scalar(ScalarKind("unknown")).Validate("field")
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "field", verr.Field)

	err = Tensor(DType("unknown"), FixedDim(1)).Validate("out")
	require.Error(t, err)
}

func TestDimString(t *testing.T) {
	assert.Equal(t, "8", FixedDim(8).String())
	assert.Equal(t, "batch", SymbolDim("batch").String())
}

func TestTensorOutputIsUnsupervisedShape(t *testing.T) {
	assert.Equal(t, KindTensorVariant, TensorOutput.Variant)
	assert.Empty(t, TensorOutput.Shape)
}
