// Package blazerpc is the public entry point: register model functions
// against a Registry, then call Serve to generate a schema, start the
// per-model batchers, and run the gRPC server until its context is
// cancelled.
package blazerpc

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ifihan/blazerpc/internal/config"
	"github.com/Ifihan/blazerpc/internal/metrics"
	"github.com/Ifihan/blazerpc/internal/registry"
	"github.com/Ifihan/blazerpc/internal/server"
	"github.com/Ifihan/blazerpc/internal/types"
)

// Re-exported so callers never need to import internal/types or
// internal/registry directly.
type (
	TypeDescriptor = types.TypeDescriptor
	ScalarKind     = types.ScalarKind
	DType          = types.DType
	Dim            = types.Dim

	UnbatchedFunc = registry.UnbatchedFunc
	BatchedFunc   = registry.BatchedFunc
	StreamFunc    = registry.StreamFunc
	Generator     = registry.Generator
	Param         = registry.Param

	ServeOptions = config.ServeOptions
)

const (
	KindString  = types.KindString
	KindInt64   = types.KindInt64
	KindFloat32 = types.KindFloat32
	KindBool    = types.KindBool
	KindBytes   = types.KindBytes
)

var (
	Scalar       = types.Scalar
	List         = types.List
	Tensor       = types.Tensor
	TensorOutput = types.TensorOutput
	FixedDim     = types.FixedDim
	SymbolDim    = types.SymbolDim
)

// Model is one model's full registration: name, parameter/return shapes,
// and exactly one of Unbatched, Batched, or (when Streaming) Stream.
//
// Async marks a callable that already manages its own concurrency (e.g. one
// that just posts work to a channel and returns) and so should run directly
// rather than consume a slot in the worker pool. Most models block their
// calling goroutine and should leave Async false, the default.
type Model struct {
	Name       string
	Version    string
	Params     []Param
	ReturnType TypeDescriptor
	Streaming  bool
	Async      bool

	Unbatched UnbatchedFunc
	Batched   BatchedFunc
	Stream    StreamFunc
}

// App accumulates model registrations before Serve freezes them.
type App struct {
	reg *registry.Registry
}

// New creates an empty App.
func New() *App {
	return &App{reg: registry.New()}
}

// Register adds one model. It returns a *types.ValidationError (exposed
// through the error interface) if the name, parameters, or return type are
// malformed, or if the name collides with an already-registered model.
func (a *App) Register(m Model) error {
	return a.reg.Register(registry.ModelDescriptor{
		Name:       m.Name,
		Version:    m.Version,
		Params:     m.Params,
		ReturnType: m.ReturnType,
		Streaming:  m.Streaming,
		Sync:       !m.Async,
		Unbatched:  m.Unbatched,
		Batched:    m.Batched,
		Stream:     m.Stream,
	})
}

// Serve freezes the registry, builds the schema and per-model batchers,
// and runs the gRPC server until ctx is cancelled, draining within the
// configured grace period. logger may be nil (a no-op logger is used).
func (a *App) Serve(ctx context.Context, opts ServeOptions, logger *zap.Logger) error {
	metricsReg := metrics.NewRegistry()
	srv, err := server.New(opts, a.reg, logger, metricsReg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
