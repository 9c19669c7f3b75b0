package schema

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/Ifihan/blazerpc/internal/registry"
	"github.com/Ifihan/blazerpc/internal/types"
)

// tensorProtoFullName is the well-known message's fully-qualified proto
// name, emitted at most once per file.
const tensorProtoFullName = "." + protoPackage + ".TensorProto"

// scalarProtoKind maps a ProtoFieldSpec scalar type name to its
// descriptorpb field type enum.
var scalarProtoKind = map[string]descriptorpb.FieldDescriptorProto_Type{
	"string": descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"int64":  descriptorpb.FieldDescriptorProto_TYPE_INT64,
	"float":  descriptorpb.FieldDescriptorProto_TYPE_FLOAT,
	"bool":   descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	"bytes":  descriptorpb.FieldDescriptorProto_TYPE_BYTES,
}

// BuildFileDescriptor constructs a real protoreflect.FileDescriptor for the
// registry's models — the same information GenerateText renders as text,
// but in the form the dynamic servicer needs to build dynamicpb messages at
// decode/encode time without a protoc-compiled .pb.go. This is what lets
// the framework expose each registered model as a genuine gRPC method
// without code generation.
func BuildFileDescriptor(models []*registry.ModelDescriptor) (protoreflect.FileDescriptor, error) {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    strPtr("blazerpc.proto"),
		Package: strPtr(protoPackage),
		Syntax:  strPtr("proto3"),
	}

	if usesTensor(models) {
		fdp.MessageType = append(fdp.MessageType, tensorProtoDescriptor())
	}

	svc := &descriptorpb.ServiceDescriptorProto{Name: strPtr("InferenceService")}

	for _, m := range models {
		reqName := pascal(m.Name) + "Request"
		respName := pascal(m.Name) + "Response"

		reqDesc, err := messageDescriptorFromParams(reqName, m.Params)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Name, err)
		}
		respDesc, err := messageDescriptorFromReturn(respName, m.ReturnType)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Name, err)
		}
		fdp.MessageType = append(fdp.MessageType, reqDesc, respDesc)

		svc.Method = append(svc.Method, &descriptorpb.MethodDescriptorProto{
			Name:            strPtr(m.MethodName),
			InputType:       strPtr("." + protoPackage + "." + reqName),
			OutputType:      strPtr("." + protoPackage + "." + respName),
			ServerStreaming: boolPtr(m.Streaming),
		})
	}
	fdp.Service = []*descriptorpb.ServiceDescriptorProto{svc}

	// No cross-file imports are needed (the only message type we
	// reference, TensorProto, is defined in this same file), so an empty
	// resolver is sufficient.
	return protodesc.NewFile(fdp, &protoregistry.Files{})
}

func tensorProtoDescriptor() *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name: strPtr("TensorProto"),
		Field: []*descriptorpb.FieldDescriptorProto{
			scalarField("shape", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64, true),
			scalarField("dtype", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING, false),
			scalarField("data", 3, descriptorpb.FieldDescriptorProto_TYPE_BYTES, false),
		},
	}
}

func messageDescriptorFromParams(name string, params []registry.Param) (*descriptorpb.DescriptorProto, error) {
	d := &descriptorpb.DescriptorProto{Name: strPtr(name)}
	for i, p := range params {
		f, err := fieldDescriptor(p.Name, i+1, p.Type)
		if err != nil {
			return nil, err
		}
		d.Field = append(d.Field, f)
	}
	return d, nil
}

func messageDescriptorFromReturn(name string, ret types.TypeDescriptor) (*descriptorpb.DescriptorProto, error) {
	f, err := fieldDescriptor("result", 1, ret)
	if err != nil {
		return nil, err
	}
	return &descriptorpb.DescriptorProto{Name: strPtr(name), Field: []*descriptorpb.FieldDescriptorProto{f}}, nil
}

func fieldDescriptor(name string, tag int, t types.TypeDescriptor) (*descriptorpb.FieldDescriptorProto, error) {
	spec, err := t.ProtoField()
	if err != nil {
		return nil, err
	}
	if t.Variant == types.KindTensorVariant {
		return messageField(name, tag, tensorProtoFullName, spec.Repeated), nil
	}
	kind, ok := scalarProtoKind[spec.ScalarType]
	if !ok {
		return nil, fmt.Errorf("unmapped scalar proto type %q for field %q", spec.ScalarType, name)
	}
	return scalarField(name, tag, kind, spec.Repeated), nil
}

func scalarField(name string, tag int, kind descriptorpb.FieldDescriptorProto_Type, repeated bool) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     strPtr(name),
		Number:   int32Ptr(int32(tag)),
		Label:    labelFor(repeated),
		Type:     kind.Enum(),
		JsonName: strPtr(name),
	}
}

func messageField(name string, tag int, typeName string, repeated bool) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     strPtr(name),
		Number:   int32Ptr(int32(tag)),
		Label:    labelFor(repeated),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: strPtr(typeName),
		JsonName: strPtr(name),
	}
}

func labelFor(repeated bool) *descriptorpb.FieldDescriptorProto_Label {
	if repeated {
		return descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	}
	return descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()
}

func strPtr(s string) *string   { return &s }
func boolPtr(b bool) *bool      { return &b }
func int32Ptr(i int32) *int32   { return &i }
