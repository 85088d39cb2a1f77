// Package mocks holds testify mocks of the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"tcoracle.dev/pkg/tcoracle/internal/domain"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// MockWorkflow is a mock of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

// NewMockWorkflow creates a MockWorkflow whose expectations are asserted
// when the test finishes.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	w := &MockWorkflow{}
	w.Test(t)

	t.Cleanup(func() { w.AssertExpectations(t) })

	return w
}

// Evaluate provides a mock function.
func (w *MockWorkflow) Evaluate(ctx context.Context, args domain.EvaluateArgs) (m.Report, error) {
	ret := w.Called(ctx, args)

	var report m.Report
	if rf, ok := ret.Get(0).(func(context.Context, domain.EvaluateArgs) m.Report); ok {
		report = rf(ctx, args)
	} else if ret.Get(0) != nil {
		report = ret.Get(0).(m.Report)
	}

	return report, ret.Error(1)
}

// Check provides a mock function.
func (w *MockWorkflow) Check(ctx context.Context, args domain.CheckArgs) (m.Manifest, error) {
	ret := w.Called(ctx, args)

	var manifest m.Manifest
	if rf, ok := ret.Get(0).(func(context.Context, domain.CheckArgs) m.Manifest); ok {
		manifest = rf(ctx, args)
	} else if ret.Get(0) != nil {
		manifest = ret.Get(0).(m.Manifest)
	}

	return manifest, ret.Error(1)
}

var _ domain.Workflow = (*MockWorkflow)(nil)
