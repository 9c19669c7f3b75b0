package schema

import (
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/Ifihan/blazerpc/internal/registry"
)

// Schema is the output of a single generation pass: the deterministic
// textual document (for .proto emission, reflection-friendly diffing, or
// operator inspection) and the live FileDescriptor the dispatcher binds
// against.
type Schema struct {
	Text       string
	FileDesc   protoreflect.FileDescriptor
	ModelOrder []*registry.ModelDescriptor
}

// Generate walks a frozen registry once and produces both artifacts above.
// Callers (the server lifecycle) should call this exactly once, after
// Registry.Freeze.
func Generate(models []*registry.ModelDescriptor) (*Schema, error) {
	text, err := GenerateText(models)
	if err != nil {
		return nil, err
	}
	fd, err := BuildFileDescriptor(models)
	if err != nil {
		return nil, err
	}
	return &Schema{Text: text, FileDesc: fd, ModelOrder: models}, nil
}
