// Package schema walks a frozen registry.Registry and emits (a) a
// deterministic, byte-identical-across-runs textual .proto document and
// (b) a real protoreflect.FileDescriptor the dispatcher can use to build
// dynamicpb.Message values, without ever shelling out to protoc. Writing
// the textual form to disk is left to the caller; this package only builds
// it.
package schema

import (
	"fmt"
	"strings"

	"github.com/Ifihan/blazerpc/internal/registry"
	"github.com/Ifihan/blazerpc/internal/types"
)

const (
	protoPackage = "blazerpc"

	tensorProtoMessage = `message TensorProto {
  repeated int64 shape = 1;
  string dtype = 2;
  bytes data = 3;
}`
)

// GenerateText renders the deterministic .proto document for a frozen
// registry. Model order follows registration order; everything else about
// layout (indentation, spacing, tag numbering) is fixed, so two calls
// against the same registry state produce byte-identical output.
func GenerateText(models []*registry.ModelDescriptor) (string, error) {
	var b strings.Builder
	b.WriteString("syntax = \"proto3\";\n\n")
	b.WriteString(fmt.Sprintf("package %s;\n\n", protoPackage))

	if usesTensor(models) {
		b.WriteString(tensorProtoMessage)
		b.WriteString("\n\n")
	}

	for _, m := range models {
		reqMsg, err := requestMessage(m)
		if err != nil {
			return "", err
		}
		respMsg, err := responseMessage(m)
		if err != nil {
			return "", err
		}
		b.WriteString(reqMsg)
		b.WriteString("\n\n")
		b.WriteString(respMsg)
		b.WriteString("\n\n")
	}

	b.WriteString("service InferenceService {\n")
	for _, m := range models {
		stream := ""
		if m.Streaming {
			stream = "stream "
		}
		b.WriteString(fmt.Sprintf("  rpc %s(%sRequest) returns (%s%sResponse);\n",
			m.MethodName, pascal(m.Name), stream, pascal(m.Name)))
	}
	b.WriteString("}\n")

	return b.String(), nil
}

func usesTensor(models []*registry.ModelDescriptor) bool {
	for _, m := range models {
		if m.ReturnType.Variant == types.KindTensorVariant {
			return true
		}
		for _, p := range m.Params {
			if p.Type.Variant == types.KindTensorVariant {
				return true
			}
		}
	}
	return false
}

func requestMessage(m *registry.ModelDescriptor) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("message %sRequest {\n", pascal(m.Name)))
	for i, p := range m.Params {
		field, err := p.Type.ProtoField()
		if err != nil {
			return "", fmt.Errorf("model %s: %w", m.Name, err)
		}
		b.WriteString(fieldLine(field, p.Name, i+1, dimComment(p.Type)))
	}
	b.WriteString("}")
	return b.String(), nil
}

func responseMessage(m *registry.ModelDescriptor) (string, error) {
	field, err := m.ReturnType.ProtoField()
	if err != nil {
		return "", fmt.Errorf("model %s: %w", m.Name, err)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("message %sResponse {\n", pascal(m.Name)))
	b.WriteString(fieldLine(field, "result", 1, dimComment(m.ReturnType)))
	b.WriteString("}")
	return b.String(), nil
}

func fieldLine(field types.ProtoFieldSpec, name string, tag int, comment string) string {
	repeated := ""
	if field.Repeated {
		repeated = "repeated "
	}
	line := fmt.Sprintf("  %s%s %s = %d;", repeated, field.TypeName, name, tag)
	if comment != "" {
		line += " // " + comment
	}
	return line + "\n"
}

// dimComment surfaces symbolic tensor dimensions as a documentation-only
// comment; the generator never enforces them at runtime.
func dimComment(t types.TypeDescriptor) string {
	if t.Variant != types.KindTensorVariant || len(t.Shape) == 0 {
		return ""
	}
	dims := make([]string, len(t.Shape))
	for i, d := range t.Shape {
		dims[i] = d.String()
	}
	return fmt.Sprintf("dtype=%s shape=[%s]", t.DType, strings.Join(dims, ","))
}

func pascal(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
