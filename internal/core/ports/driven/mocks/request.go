package mocks

import (
	"github.com/latchkey-io/latchkey-core/internal/core/ports/driven"
)

// Ensure MockRequest implements Request
var _ driven.Request = (*MockRequest)(nil)

// MockRequest is a map-backed Request for testing
type MockRequest struct {
	headers map[string]string
	inputs  map[string]string
}

// NewMockRequest creates an empty MockRequest
func NewMockRequest() *MockRequest {
	return &MockRequest{
		headers: make(map[string]string),
		inputs:  make(map[string]string),
	}
}

// SetHeader sets a header value and returns the request for chaining
func (m *MockRequest) SetHeader(name, value string) *MockRequest {
	m.headers[name] = value
	return m
}

// SetInput sets a query/body parameter and returns the request for chaining
func (m *MockRequest) SetInput(name, value string) *MockRequest {
	m.inputs[name] = value
	return m
}

func (m *MockRequest) Header(name string) string {
	return m.headers[name]
}

func (m *MockRequest) Input(name string) string {
	return m.inputs[name]
}
