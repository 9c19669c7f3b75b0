// Package dispatcher implements the dynamic servicer. For each registered
// model it builds one gRPC method (or server-streaming method) handler
// directly against a protoreflect.FileDescriptor produced by
// internal/schema, decoding and encoding dynamicpb.Message values instead
// of protoc-generated structs. No .pb.go file is compiled per model, so new
// models can be registered without a build step.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/Ifihan/blazerpc/internal/batcher"
	"github.com/Ifihan/blazerpc/internal/executor"
	"github.com/Ifihan/blazerpc/internal/registry"
	"github.com/Ifihan/blazerpc/internal/rpcerrors"
	"github.com/Ifihan/blazerpc/internal/schema"
)

const serviceFullName = "blazerpc.InferenceService"

// route bundles what a single RPC handler needs: the descriptor, its
// request/response message descriptors, and (for non-streaming models)
// its batcher, if batching is enabled.
type route struct {
	model    *registry.ModelDescriptor
	reqDesc  protoreflect.MessageDescriptor
	respDesc protoreflect.MessageDescriptor
	b        *batcher.Batcher // nil when batching disabled, model streams, or it has no Batched callable
}

// Dispatcher owns one route per registered model and the shared executor
// used for streaming and unbatched calls.
type Dispatcher struct {
	routes map[string]*route // keyed by method name, e.g. "PredictEcho"
	exec   *executor.Executor
	logger *zap.Logger
}

// New builds a Dispatcher from a generated schema and the batchers the
// server lifecycle has already started for non-streaming models. batchers
// may be nil entries for models where batching is disabled.
func New(sc *schema.Schema, batchers map[string]*batcher.Batcher, exec *executor.Executor, logger *zap.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	svcDesc := sc.FileDesc.Services().ByName(protoreflect.Name("InferenceService"))
	if svcDesc == nil {
		return nil, fmt.Errorf("generated schema is missing InferenceService")
	}
	d := &Dispatcher{routes: make(map[string]*route), exec: exec, logger: logger}
	for _, m := range sc.ModelOrder {
		methodDesc := svcDesc.Methods().ByName(protoreflect.Name(m.MethodName))
		if methodDesc == nil {
			return nil, fmt.Errorf("generated schema is missing method %q", m.MethodName)
		}
		d.routes[m.MethodName] = &route{
			model:    m,
			reqDesc:  methodDesc.Input(),
			respDesc: methodDesc.Output(),
			b:        batchers[m.Name],
		}
	}
	return d, nil
}

// ServiceDesc builds the grpc.ServiceDesc the server binds, with one
// grpc.MethodDesc (unary) or grpc.StreamDesc (server-streaming) per model,
// per its Streaming flag.
func (d *Dispatcher) ServiceDesc() *grpc.ServiceDesc {
	sd := &grpc.ServiceDesc{
		ServiceName: serviceFullName,
		HandlerType: (*any)(nil),
		Metadata:    "blazerpc.proto",
	}
	methodNames := make([]string, 0, len(d.routes))
	for name := range d.routes {
		methodNames = append(methodNames, name)
	}
	slices.Sort(methodNames) // deterministic registration order; d.routes is a map

	for _, methodName := range methodNames {
		r := d.routes[methodName]
		if r.model.Streaming {
			sd.Streams = append(sd.Streams, grpc.StreamDesc{
				StreamName:    methodName,
				Handler:       d.streamHandler(r),
				ServerStreams: true,
			})
			continue
		}
		sd.Methods = append(sd.Methods, grpc.MethodDesc{
			MethodName: methodName,
			Handler:    d.unaryHandler(r),
		})
	}
	return sd
}

// unaryHandler decodes a request, runs it through the batcher or executor,
// and encodes the result — the unary call path.
func (d *Dispatcher) unaryHandler(r *route) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := dynamicpb.NewMessage(r.reqDesc)
		if err := dec(req); err != nil {
			return nil, rpcerrors.ToStatus(&rpcerrors.SerializationError{DType: "request"})
		}
		handle := func(ctx context.Context, reqAny any) (any, error) {
			return d.handleUnary(ctx, r, reqAny.(*dynamicpb.Message))
		}
		if interceptor == nil {
			return handle(ctx, req)
		}
		info := &grpc.UnaryServerInfo{FullMethod: "/" + serviceFullName + "/" + r.model.MethodName}
		return interceptor(ctx, req, info, handle)
	}
}

func (d *Dispatcher) handleUnary(ctx context.Context, r *route, req *dynamicpb.Message) (any, error) {
	args, err := decodeArgs(req, r.model.Params)
	if err != nil {
		return nil, rpcerrors.ToStatus(err)
	}

	var result any
	if r.b != nil {
		result, err = r.b.Submit(ctx, args)
	} else if r.model.Batched != nil {
		vectors := singletonVectors(args)
		var results []any
		results, err = d.exec.ExecuteBatch(ctx, r.model.Batched, vectors, r.model.Sync)
		if err == nil {
			if len(results) != 1 {
				err = &rpcerrors.InferenceError{ModelName: r.model.Name, Cause: fmt.Errorf("batched callable returned %d results for a single-item call", len(results))}
			} else if itemErr, ok := results[0].(error); ok {
				err = &rpcerrors.InferenceError{ModelName: r.model.Name, Cause: itemErr}
			} else {
				result = results[0]
			}
		}
	} else {
		result, err = d.exec.Execute(ctx, r.model.Unbatched, args, r.model.Sync)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, rpcerrors.ToStatus(ctx.Err())
		}
		d.logger.Warn("model call failed", zap.String("model", r.model.Name), zap.Error(err))
		return nil, rpcerrors.ToStatus(wrapInferenceError(r.model.Name, err))
	}

	resp := dynamicpb.NewMessage(r.respDesc)
	resultFd := r.respDesc.Fields().ByName("result")
	if err := encodeField(resp, resultFd, r.model.ReturnType, result); err != nil {
		return nil, rpcerrors.ToStatus(&rpcerrors.SerializationError{DType: "response"})
	}
	return resp, nil
}

// streamHandler decodes one request, drives the model's generator through
// the executor's pump, and sends each produced value as it becomes
// available — the server-streaming call path.
func (d *Dispatcher) streamHandler(r *route) func(srv any, stream grpc.ServerStream) error {
	return func(_ any, stream grpc.ServerStream) error {
		req := dynamicpb.NewMessage(r.reqDesc)
		if err := stream.RecvMsg(req); err != nil {
			return rpcerrors.ToStatus(err)
		}
		args, err := decodeArgs(req, r.model.Params)
		if err != nil {
			return rpcerrors.ToStatus(err)
		}
		gen, err := r.model.Stream(args)
		if err != nil {
			return rpcerrors.ToStatus(&rpcerrors.InferenceError{ModelName: r.model.Name, Cause: err})
		}

		ctx := stream.Context()
		items := d.exec.Pump(ctx, gen, r.model.Sync)
		resultFd := r.respDesc.Fields().ByName("result")
		for item := range items {
			if item.Err != nil {
				if errors.Is(item.Err, io.EOF) {
					break
				}
				return rpcerrors.ToStatus(&rpcerrors.InferenceError{ModelName: r.model.Name, Cause: item.Err})
			}
			resp := dynamicpb.NewMessage(r.respDesc)
			if err := encodeField(resp, resultFd, r.model.ReturnType, item.Value); err != nil {
				return rpcerrors.ToStatus(&rpcerrors.SerializationError{DType: "response"})
			}
			if err := stream.SendMsg(resp); err != nil {
				return rpcerrors.ToStatus(err)
			}
		}
		if ctx.Err() != nil {
			return rpcerrors.ToStatus(ctx.Err())
		}
		return nil
	}
}

func decodeArgs(req *dynamicpb.Message, params []registry.Param) (map[string]any, error) {
	args := make(map[string]any, len(params))
	fields := req.Descriptor().Fields()
	for _, p := range params {
		fd := fields.ByName(protoreflect.Name(p.Name))
		if fd == nil {
			return nil, &rpcerrors.SerializationError{DType: "request"}
		}
		v, err := decodeField(req, fd, p.Name, p.Type)
		if err != nil {
			return nil, err
		}
		args[p.Name] = v
	}
	return args, nil
}

func singletonVectors(args map[string]any) map[string][]any {
	out := make(map[string][]any, len(args))
	for k, v := range args {
		out[k] = []any{v}
	}
	return out
}

func wrapInferenceError(modelName string, err error) error {
	switch err.(type) {
	case *rpcerrors.ValidationError, *rpcerrors.SerializationError, *rpcerrors.ModelNotFoundError,
		*rpcerrors.ConfigurationError, *rpcerrors.InferenceError:
		return err
	default:
		return &rpcerrors.InferenceError{ModelName: modelName, Cause: err}
	}
}
