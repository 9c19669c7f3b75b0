package types

import "fmt"

// ProtoFieldSpec is the wire protobuf field declaration derived from a
// given TypeDescriptor.
type ProtoFieldSpec struct {
	// ScalarType is the proto3 scalar type name ("string", "int64", ...),
	// empty when TypeName is a message type (TensorProto).
	ScalarType string
	// TypeName is "TensorProto" for tensor fields, otherwise equal to
	// ScalarType.
	TypeName string
	// Repeated is true for List(...) fields.
	Repeated bool
}

var scalarProtoNames = map[ScalarKind]string{
	KindString:  "string",
	KindInt64:   "int64",
	KindFloat32: "float",
	KindBool:    "bool",
	KindBytes:   "bytes",
}

// ProtoField derives the wire field spec for t.
func (t TypeDescriptor) ProtoField() (ProtoFieldSpec, error) {
	switch t.Variant {
	case KindScalarVariant:
		name, ok := scalarProtoNames[t.Scalar]
		if !ok {
			return ProtoFieldSpec{}, fmt.Errorf("unmapped scalar kind %q", t.Scalar)
		}
		return ProtoFieldSpec{ScalarType: name, TypeName: name}, nil
	case KindListVariant:
		name, ok := scalarProtoNames[t.Scalar]
		if !ok {
			return ProtoFieldSpec{}, fmt.Errorf("unmapped list element kind %q", t.Scalar)
		}
		return ProtoFieldSpec{ScalarType: name, TypeName: name, Repeated: true}, nil
	case KindTensorVariant:
		return ProtoFieldSpec{TypeName: "TensorProto"}, nil
	default:
		return ProtoFieldSpec{}, fmt.Errorf("malformed type descriptor")
	}
}
