package dispatcher

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	btensor "github.com/Ifihan/blazerpc/internal/tensor"
	"github.com/Ifihan/blazerpc/internal/types"
)

// decodeField reads one field of a dynamicpb.Message into a plain Go value
// per the TypeDescriptor t, applying the tensor codec for tensor fields.
func decodeField(msg *dynamicpb.Message, fd protoreflect.FieldDescriptor, fieldName string, t types.TypeDescriptor) (any, error) {
	if !msg.Has(fd) {
		if t.Variant == types.KindListVariant {
			return []any{}, nil
		}
		return nil, &types.ValidationError{Field: fieldName, Reason: "missing required value"}
	}
	v := msg.Get(fd)

	switch t.Variant {
	case types.KindScalarVariant:
		return decodeScalar(t.Scalar, v), nil
	case types.KindListVariant:
		list := v.List()
		out := make([]any, list.Len())
		for i := 0; i < list.Len(); i++ {
			out[i] = decodeScalar(t.Scalar, list.Get(i))
		}
		return out, nil
	case types.KindTensorVariant:
		sub := v.Message()
		rec, err := decodeTensorRecord(sub)
		if err != nil {
			return nil, err
		}
		return btensor.Decode(rec)
	default:
		return nil, &types.ValidationError{Field: fieldName, Reason: "unsupported type descriptor"}
	}
}

func decodeScalar(kind types.ScalarKind, v protoreflect.Value) any {
	switch kind {
	case types.KindString:
		return v.String()
	case types.KindInt64:
		return v.Int()
	case types.KindFloat32:
		return float32(v.Float())
	case types.KindBool:
		return v.Bool()
	case types.KindBytes:
		return append([]byte(nil), v.Bytes()...)
	}
	return nil
}

func decodeTensorRecord(msg protoreflect.Message) (btensor.Record, error) {
	fields := msg.Descriptor().Fields()
	shapeFd := fields.ByName("shape")
	dtypeFd := fields.ByName("dtype")
	dataFd := fields.ByName("data")
	if shapeFd == nil || dtypeFd == nil || dataFd == nil {
		return btensor.Record{}, fmt.Errorf("malformed TensorProto descriptor")
	}
	shapeList := msg.Get(shapeFd).List()
	shape := make([]int64, shapeList.Len())
	for i := 0; i < shapeList.Len(); i++ {
		shape[i] = shapeList.Get(i).Int()
	}
	dtype := types.DType(msg.Get(dtypeFd).String())
	data := append([]byte(nil), msg.Get(dataFd).Bytes()...)
	return btensor.Record{Shape: shape, DType: dtype, Data: data}, nil
}

// encodeField writes a decoded result value into the named field of a
// dynamicpb.Message, the inverse of decodeField. It is used both for the
// single "result" field of a response message and, indirectly, the per-
// parameter fields of a request message in tests.
func encodeField(msg *dynamicpb.Message, fd protoreflect.FieldDescriptor, t types.TypeDescriptor, value any) error {
	switch t.Variant {
	case types.KindScalarVariant:
		pv, err := encodeScalar(t.Scalar, value)
		if err != nil {
			return err
		}
		msg.Set(fd, pv)
		return nil
	case types.KindListVariant:
		values, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected []any for list field %q, got %T", fd.Name(), value)
		}
		list := msg.NewField(fd).List()
		for _, item := range values {
			pv, err := encodeScalar(t.Scalar, item)
			if err != nil {
				return err
			}
			list.Append(pv)
		}
		msg.Set(fd, protoreflect.ValueOfList(list))
		return nil
	case types.KindTensorVariant:
		rec, err := asTensorRecord(value)
		if err != nil {
			return err
		}
		sub := dynamicpb.NewMessage(fd.Message())
		if err := encodeTensorRecord(sub, rec); err != nil {
			return err
		}
		msg.Set(fd, protoreflect.ValueOfMessage(sub))
		return nil
	default:
		return fmt.Errorf("unsupported type descriptor for field %q", fd.Name())
	}
}

func encodeScalar(kind types.ScalarKind, value any) (protoreflect.Value, error) {
	switch kind {
	case types.KindString:
		s, ok := value.(string)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("expected string, got %T", value)
		}
		return protoreflect.ValueOfString(s), nil
	case types.KindInt64:
		switch n := value.(type) {
		case int64:
			return protoreflect.ValueOfInt64(n), nil
		case int:
			return protoreflect.ValueOfInt64(int64(n)), nil
		default:
			return protoreflect.Value{}, fmt.Errorf("expected int64, got %T", value)
		}
	case types.KindFloat32:
		switch n := value.(type) {
		case float32:
			return protoreflect.ValueOfFloat32(n), nil
		case float64:
			return protoreflect.ValueOfFloat32(float32(n)), nil
		default:
			return protoreflect.Value{}, fmt.Errorf("expected float32, got %T", value)
		}
	case types.KindBool:
		b, ok := value.(bool)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("expected bool, got %T", value)
		}
		return protoreflect.ValueOfBool(b), nil
	case types.KindBytes:
		b, ok := value.([]byte)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("expected []byte, got %T", value)
		}
		return protoreflect.ValueOfBytes(b), nil
	}
	return protoreflect.Value{}, fmt.Errorf("unknown scalar kind %q", kind)
}

func asTensorRecord(value any) (btensor.Record, error) {
	switch t := value.(type) {
	case btensor.Record:
		return t, nil
	case *btensor.Record:
		return *t, nil
	default:
		return btensor.Record{}, fmt.Errorf("expected tensor.Record, got %T", value)
	}
}

func encodeTensorRecord(msg *dynamicpb.Message, rec btensor.Record) error {
	fields := msg.Descriptor().Fields()
	shapeFd := fields.ByName("shape")
	dtypeFd := fields.ByName("dtype")
	dataFd := fields.ByName("data")

	list := msg.NewField(shapeFd).List()
	for _, d := range rec.Shape {
		list.Append(protoreflect.ValueOfInt64(d))
	}
	msg.Set(shapeFd, protoreflect.ValueOfList(list))
	msg.Set(dtypeFd, protoreflect.ValueOfString(string(rec.DType)))
	msg.Set(dataFd, protoreflect.ValueOfBytes(rec.Data))
	return nil
}
