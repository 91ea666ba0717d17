package selfimprove

import (
	"context"
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockAdaptationEngine is a hand-written mock of AdaptationEngine, kept in
// the same gomock-recorder shape this module's generated mocks use, so it
// drops in wherever a real mockgen run would have produced one.
type MockAdaptationEngine struct {
	ctrl     *gomock.Controller
	recorder *MockAdaptationEngineMockRecorder
}

// MockAdaptationEngineMockRecorder is the mock recorder for MockAdaptationEngine.
type MockAdaptationEngineMockRecorder struct {
	mock *MockAdaptationEngine
}

// NewMockAdaptationEngine creates a new mock instance.
func NewMockAdaptationEngine(ctrl *gomock.Controller) *MockAdaptationEngine {
	mock := &MockAdaptationEngine{ctrl: ctrl}
	mock.recorder = &MockAdaptationEngineMockRecorder{mock}

	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAdaptationEngine) EXPECT() *MockAdaptationEngineMockRecorder {
	return m.recorder
}

// Apply mocks base method.
func (m *MockAdaptationEngine) Apply(ctx context.Context, record ErrorRecord) (AdaptationResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Apply", ctx, record)
	ret0, _ := ret[0].(AdaptationResult)
	ret1, _ := ret[1].(error)

	return ret0, ret1
}

// Apply indicates an expected call of Apply.
func (mr *MockAdaptationEngineMockRecorder) Apply(ctx, record any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Apply", reflect.TypeOf((*MockAdaptationEngine)(nil).Apply), ctx, record)
}
