package evidence

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/factlearn/internal/domain"
)

// MockResponse scripts the answer for one claim.
type MockResponse struct {
	Evidence *domain.Evidence
	Err      error
	// Block makes the call wait for ctx to end, then return ErrProviderTimeout.
	Block bool
}

// MockClient is a configurable evidence provider for tests and local runs.
// Claims without a scripted response get Default.
type MockClient struct {
	Default   MockResponse
	Responses map[string]MockResponse

	mu    sync.Mutex
	Calls []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		Default: MockResponse{Evidence: &domain.Evidence{
			Verified:   true,
			Confidence: 0.9,
			Evidence:   "Mock evidence",
			Sources:    []string{},
		}},
		Responses: make(map[string]MockResponse),
	}
}

func (c *MockClient) On(claim string, r MockResponse) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Responses[claim] = r
	return c
}

func (c *MockClient) Search(ctx context.Context, claim string) (*domain.Evidence, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, claim)
	r, ok := c.Responses[claim]
	if !ok {
		r = c.Default
	}
	c.mu.Unlock()

	if r.Block {
		<-ctx.Done()
		return nil, classify(ctx, ctx.Err())
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, err)
	}
	e := *r.Evidence
	return &e, nil
}

// CallCount returns how many times Search was called.
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}
