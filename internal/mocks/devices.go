package mocks

import (
	"net/http"

	"github.com/brettbedarf/treefs"
	"github.com/stretchr/testify/mock"
)

// MockProvider implements devices.Provider for testing across packages
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) NewDevice(cfg map[string]any) (treefs.DeviceNode, error) {
	args := m.Called(cfg)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(map[string]any) treefs.DeviceNode); ok {
		return fn(cfg), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(treefs.DeviceNode), args.Error(1)
}

// MockHTTPClient implements devices.HTTPClient
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)

	if fn, ok := args.Get(0).(func(*http.Request) *http.Response); ok {
		return fn(req), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}
