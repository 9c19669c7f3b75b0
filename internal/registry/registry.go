// Package registry implements the append-only (until serve()), then frozen
// collection of registered ModelDescriptors.
package registry

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/Ifihan/blazerpc/internal/types"
)

// Callable is the opaque function reference the registry stores. The three
// calling conventions (unbatched, batched, streaming) are modelled as
// distinct Go function types so the registry and the executor can select
// the right calling convention without runtime type-switching on a bare
// `any`.
type (
	// UnbatchedFunc: f(args) -> (result, error).
	UnbatchedFunc func(args map[string]any) (any, error)
	// BatchedFunc: f(argVectors) -> (resultVector, error). Each element of
	// resultVector is either a plain value or an error, isolating per-item
	// failure within a batch.
	BatchedFunc func(argVectors map[string][]any) ([]any, error)
	// StreamFunc: f(args) -> a value-or-error generator, pumped by the executor.
	StreamFunc func(args map[string]any) (Generator, error)
)

// Generator is the lazy sequence streaming models yield. Next returns
// io.EOF (wrapped) when exhausted. Close propagates cancellation so
// generator cleanup can run; it is always called exactly once by the
// dispatcher/executor, including on normal exhaustion.
type Generator interface {
	Next() (any, error)
	Close()
}

// ModelDescriptor is immutable after Register returns successfully.
type ModelDescriptor struct {
	Name       string
	MethodName string
	Version    string
	Params     []Param
	ReturnType types.TypeDescriptor
	Streaming  bool
	Sync       bool

	Unbatched UnbatchedFunc
	Batched   BatchedFunc
	Stream    StreamFunc
}

// Param is one (name, type) entry of ModelDescriptor.Params, in declared
// order.
type Param struct {
	Name string
	Type types.TypeDescriptor
}

// pascalCase renders name (already validated as [A-Za-z][A-Za-z0-9_]*) in
// PascalCase for the derived method name and message names, splitting on
// underscores.
func pascalCase(name string) string {
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

// MethodName derives "Predict" + PascalCase(name).
func MethodName(name string) string {
	return "Predict" + pascalCase(name)
}

// Registry is the ordered, name-unique collection of ModelDescriptors.
// Registration is intentionally not synchronized: it is a startup-only,
// single-goroutine operation, and the registry becomes read-only the
// instant Freeze is called.
type Registry struct {
	byName  map[string]*ModelDescriptor
	byMethod map[string]*ModelDescriptor
	order   []*ModelDescriptor
	frozen  atomic.Bool
}

func New() *Registry {
	return &Registry{
		byName:   make(map[string]*ModelDescriptor),
		byMethod: make(map[string]*ModelDescriptor),
	}
}

// Register validates and appends a descriptor. It fails with
// *types.ValidationError on a duplicate name, an invalid identifier, a
// duplicate derived method name, or a malformed parameter/return type.
func (r *Registry) Register(d ModelDescriptor) error {
	if r.frozen.Load() {
		return &types.ValidationError{Field: d.Name, Reason: "registry is frozen; serve() has already started"}
	}
	if !types.ValidIdentifier(d.Name) {
		return &types.ValidationError{Field: d.Name, Reason: "model name is not a valid identifier"}
	}
	if _, exists := r.byName[d.Name]; exists {
		return &types.ValidationError{Field: d.Name, Reason: "duplicate model name"}
	}
	if d.Version == "" {
		d.Version = "1"
	}
	d.MethodName = MethodName(d.Name)
	if _, exists := r.byMethod[d.MethodName]; exists {
		return &types.ValidationError{Field: d.MethodName, Reason: "derived method name collides with an existing model"}
	}

	seenParams := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if !types.ValidIdentifier(p.Name) {
			return &types.ValidationError{Field: p.Name, Reason: "parameter name is not a valid identifier"}
		}
		if seenParams[p.Name] {
			return &types.ValidationError{Field: p.Name, Reason: "duplicate parameter name"}
		}
		seenParams[p.Name] = true
		if err := p.Type.Validate(p.Name); err != nil {
			return err
		}
	}
	if err := d.ReturnType.Validate(d.Name + ".return"); err != nil {
		return err
	}

	if d.Streaming {
		if d.Stream == nil {
			return &types.ValidationError{Field: d.Name, Reason: "streaming model requires a Stream callable"}
		}
	} else {
		if d.Unbatched == nil && d.Batched == nil {
			return &types.ValidationError{Field: d.Name, Reason: "non-streaming model requires an Unbatched or Batched callable"}
		}
	}

	stored := d
	r.byName[d.Name] = &stored
	r.byMethod[d.MethodName] = &stored
	r.order = append(r.order, &stored)
	return nil
}

// List returns all registered models in insertion order. The slice and its
// elements must be treated as read-only by callers.
func (r *Registry) List() []*ModelDescriptor {
	out := make([]*ModelDescriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup resolves a gRPC method name ("PredictEcho") to its descriptor.
func (r *Registry) Lookup(methodName string) (*ModelDescriptor, error) {
	d, ok := r.byMethod[methodName]
	if !ok {
		return nil, &ModelNotFoundLookupError{MethodName: methodName}
	}
	return d, nil
}

// ModelNotFoundLookupError reports a registry miss by method name. It is a
// separate type from rpcerrors.ModelNotFoundError, which carries a model
// name and version string instead.
type ModelNotFoundLookupError struct {
	MethodName string
}

func (e *ModelNotFoundLookupError) Error() string {
	return fmt.Sprintf("no model registered for method %q", e.MethodName)
}

// Freeze makes the registry read-only. Called once, as a side effect of
// serve() entry. Subsequent Register calls fail.
func (r *Registry) Freeze() { r.frozen.Store(true) }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen.Load() }
