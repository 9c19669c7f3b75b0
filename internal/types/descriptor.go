// Package types implements the small algebraic type language user code uses
// to describe model parameters and return values.
package types

import (
	"fmt"
	"regexp"
)

// ScalarKind is a leaf scalar type.
type ScalarKind string

const (
	KindString ScalarKind = "string"
	KindInt64  ScalarKind = "int64"
	KindFloat32 ScalarKind = "float32"
	KindBool   ScalarKind = "bool"
	KindBytes  ScalarKind = "bytes"
)

func (k ScalarKind) valid() bool {
	switch k {
	case KindString, KindInt64, KindFloat32, KindBool, KindBytes:
		return true
	}
	return false
}

// DType is a tensor element dtype tag, drawn from a closed enumeration.
type DType string

const (
	Float16 DType = "float16"
	Float32 DType = "float32"
	Float64 DType = "float64"
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
	Bool    DType = "bool"
)

// ByteWidth returns the size in bytes of one element of the given dtype, or
// 0 if the tag is not in the closed enumeration.
func (d DType) ByteWidth() int {
	switch d {
	case Int8, Uint8, Bool:
		return 1
	case Float16, Int16, Uint16:
		return 2
	case Float32, Int32, Uint32:
		return 4
	case Float64, Int64, Uint64:
		return 8
	default:
		return 0
	}
}

func (d DType) valid() bool { return d.ByteWidth() > 0 }

// Dim is one dimension of a tensor shape: either fixed (positive integer)
// or symbolic (a runtime-variable name). Symbolic dims are documentation
// only and are never enforced by the generator.
type Dim struct {
	Fixed    int64
	Symbol   string
	IsFixed  bool
}

func FixedDim(n int64) Dim   { return Dim{Fixed: n, IsFixed: true} }
func SymbolDim(s string) Dim { return Dim{Symbol: s, IsFixed: false} }

func (d Dim) String() string {
	if d.IsFixed {
		return fmt.Sprintf("%d", d.Fixed)
	}
	return d.Symbol
}

// Kind discriminates the TypeDescriptor variant.
type Kind int

const (
	KindScalarVariant Kind = iota
	KindListVariant
	KindTensorVariant
)

// TypeDescriptor is a tagged variant: a scalar, a homogeneous list of
// scalars, or a tensor with a dtype and symbolic-capable shape. TensorOutput
// is represented as KindTensorVariant with an empty shape and is the
// distinguished "framework decides shape at call time" value referenced by
// ModelDescriptor.ReturnType.
type TypeDescriptor struct {
	Variant Kind
	Scalar  ScalarKind // valid when Variant == KindScalarVariant or KindListVariant (element type)
	DType   DType      // valid when Variant == KindTensorVariant
	Shape   []Dim      // valid when Variant == KindTensorVariant
}

func Scalar(k ScalarKind) TypeDescriptor {
	return TypeDescriptor{Variant: KindScalarVariant, Scalar: k}
}

func List(element ScalarKind) TypeDescriptor {
	return TypeDescriptor{Variant: KindListVariant, Scalar: element}
}

func Tensor(dtype DType, shape ...Dim) TypeDescriptor {
	return TypeDescriptor{Variant: KindTensorVariant, DType: dtype, Shape: shape}
}

// TensorOutput is the distinguished return-type value for models whose
// output shape is only known once the tensor arrives (e.g. dynamic batch
// dimension on the result). The generator treats it identically to a bare
// Tensor with an empty, fully-symbolic shape.
var TensorOutput = TypeDescriptor{Variant: KindTensorVariant, DType: Float32, Shape: nil}

// identPattern matches the shared identifier rule: [A-Za-z][A-Za-z0-9_]*
var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s matches the identifier rule shared by
// model names and parameter names.
func ValidIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// ValidationError is produced when an annotation or a decoded value is
// malformed. Field names the offending parameter, return value, or tensor
// field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %q: %s", e.Field, e.Reason)
}

// Validate checks a TypeDescriptor against the closed rules: scalar kind
// must be in the closed set, list elements must be scalar (trivially true
// by construction here, kept explicit for clarity), and tensor dtypes must
// be in the closed enumeration.
func (t TypeDescriptor) Validate(field string) error {
	switch t.Variant {
	case KindScalarVariant:
		if !t.Scalar.valid() {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("unknown scalar kind %q", t.Scalar)}
		}
	case KindListVariant:
		if !t.Scalar.valid() {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("list element type %q is not a scalar", t.Scalar)}
		}
	case KindTensorVariant:
		if !t.DType.valid() {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("tensor dtype %q is outside the closed enumeration", t.DType)}
		}
	default:
		return &ValidationError{Field: field, Reason: "missing type annotation"}
	}
	return nil
}
