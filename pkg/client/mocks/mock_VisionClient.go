// Package mocks provides test doubles for the vision client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	types "github.com/menta2k/bin-go/pkg/types"
)

// MockVisionClient is a mock type for the VisionClient interface.
type MockVisionClient struct {
	mock.Mock
}

// SimpleQuery provides a mock function with given fields: ctx, prompt, imgB64
func (_m *MockVisionClient) SimpleQuery(ctx context.Context, prompt string, imgB64 string) (string, error) {
	ret := _m.Called(ctx, prompt, imgB64)

	if len(ret) == 0 {
		panic("no return value specified for SimpleQuery")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, string) (string, error)); ok {
		return rf(ctx, prompt, imgB64)
	}

	return ret.String(0), ret.Error(1)
}

// PredictLabel provides a mock function with given fields: ctx, imgB64
func (_m *MockVisionClient) PredictLabel(ctx context.Context, imgB64 string) (*types.Prediction, error) {
	ret := _m.Called(ctx, imgB64)

	if len(ret) == 0 {
		panic("no return value specified for PredictLabel")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) (*types.Prediction, error)); ok {
		return rf(ctx, imgB64)
	}

	var r0 *types.Prediction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*types.Prediction)
	}

	return r0, ret.Error(1)
}

// NewMockVisionClient creates a new instance of MockVisionClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockVisionClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockVisionClient {
	m := &MockVisionClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
