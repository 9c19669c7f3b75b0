// Hand-written in the shape MockGen emits for google.golang.org/grpc
// (interfaces: ServerStream); not produced by a code generator.

package dispatcher

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"
	"google.golang.org/grpc/metadata"
)

// mockServerStream is a mock of the grpc.ServerStream interface, hand-written
// in the shape mockgen would generate for it, since the dynamic stream
// handler never receives a concrete *grpc.serverStream in tests.
type mockServerStream struct {
	ctrl     *gomock.Controller
	recorder *mockServerStreamRecorder
}

type mockServerStreamRecorder struct {
	mock *mockServerStream
}

func newMockServerStream(ctrl *gomock.Controller) *mockServerStream {
	m := &mockServerStream{ctrl: ctrl}
	m.recorder = &mockServerStreamRecorder{m}
	return m
}

func (m *mockServerStream) EXPECT() *mockServerStreamRecorder { return m.recorder }

func (m *mockServerStream) SetHeader(md metadata.MD) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetHeader", md)
	err, _ := ret[0].(error)
	return err
}

func (mr *mockServerStreamRecorder) SetHeader(md any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetHeader", reflect.TypeOf((*mockServerStream)(nil).SetHeader), md)
}

func (m *mockServerStream) SendHeader(md metadata.MD) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SendHeader", md)
	err, _ := ret[0].(error)
	return err
}

func (mr *mockServerStreamRecorder) SendHeader(md any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendHeader", reflect.TypeOf((*mockServerStream)(nil).SendHeader), md)
}

func (m *mockServerStream) SetTrailer(md metadata.MD) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "SetTrailer", md)
}

func (mr *mockServerStreamRecorder) SetTrailer(md any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetTrailer", reflect.TypeOf((*mockServerStream)(nil).SetTrailer), md)
}

func (m *mockServerStream) Context() context.Context {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Context")
	ctx, _ := ret[0].(context.Context)
	return ctx
}

func (mr *mockServerStreamRecorder) Context() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Context", reflect.TypeOf((*mockServerStream)(nil).Context))
}

func (m *mockServerStream) SendMsg(msg any) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SendMsg", msg)
	err, _ := ret[0].(error)
	return err
}

func (mr *mockServerStreamRecorder) SendMsg(msg any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendMsg", reflect.TypeOf((*mockServerStream)(nil).SendMsg), msg)
}

func (m *mockServerStream) RecvMsg(msg any) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RecvMsg", msg)
	err, _ := ret[0].(error)
	return err
}

func (mr *mockServerStreamRecorder) RecvMsg(msg any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RecvMsg", reflect.TypeOf((*mockServerStream)(nil).RecvMsg), msg)
}
