package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the LLM Client interface.
//
// Call i answers with Responses[i] and Errs[i] while those slices last, then
// falls back to Response and Err.
type MockClient struct {
	Response  *Response
	Err       error
	Responses []*Response
	Errs      []error

	mu    sync.Mutex
	Calls []string // records prompts sent
}

// Complete records the call and returns the mock response.
func (m *MockClient) Complete(ctx context.Context, prompt string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := len(m.Calls)
	m.Calls = append(m.Calls, prompt)

	resp, err := m.Response, m.Err
	if i < len(m.Responses) {
		resp = m.Responses[i]
	}
	if i < len(m.Errs) {
		err = m.Errs[i]
	}
	return resp, err
}

// CallCount returns how many prompts have been sent.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
