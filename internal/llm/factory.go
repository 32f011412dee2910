package llm

import (
	"fmt"
	"time"
)

// New constructs the configured backend client.
func New(backend, baseURL, model string, timeout time.Duration) (Client, error) {
	switch backend {
	case BackendOllama:
		return NewOllamaClient(baseURL, model, timeout), nil
	case BackendMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrNotConfigured, backend)
	}
}
