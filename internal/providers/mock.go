package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is a Client for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailFirst    int // Fail the first N requests (simulates transient errors)
	NonTextual   bool
	ResponseText string

	// Responder, when set, computes the response from the prompt and takes
	// precedence over ResponseText.
	Responder func(prompt string) (string, error)

	requestCount atomic.Int64

	mu      sync.Mutex
	prompts []string
}

// NewMockClient creates a mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{ResponseText: `{"extractions": []}`}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat returns the configured mock response.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.prompts = append(c.prompts, req.Prompt)
	c.mu.Unlock()

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if c.ShouldFail {
		return nil, fmt.Errorf("mock client configured to fail")
	}
	if int(count) <= c.FailFirst {
		return nil, fmt.Errorf("mock transient failure %d", count)
	}
	if c.NonTextual {
		return nil, fmt.Errorf("%w: {\"parts\": []}", ErrNonTextualContent)
	}

	content := c.ResponseText
	if c.Responder != nil {
		var err error
		content, err = c.Responder(req.Prompt)
		if err != nil {
			return nil, err
		}
	}

	return &ChatResult{
		Content:   content,
		Provider:  MockClientName,
		ModelUsed: req.Model,
		RequestID: fmt.Sprintf("mock-%d", count),
	}, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Prompts returns the prompts received so far.
func (c *MockClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.prompts))
	copy(out, c.prompts)
	return out
}

// Reset clears recorded state.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.prompts = nil
	c.mu.Unlock()
}

// Verify interface
var _ Client = (*MockClient)(nil)
