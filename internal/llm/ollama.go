package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// OllamaClient talks to a local Ollama instance over its /api/chat
// endpoint. JSON generation uses Ollama's constrained "format" option.
type OllamaClient struct {
	rc    *resty.Client
	model string
}

// NewOllamaClient creates a client for the Ollama server at baseURL
// (e.g., "http://localhost:11434") using the given model.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &OllamaClient{rc: rc, model: model}
}

func (c *OllamaClient) Name() string { return BackendOllama }

// Ping checks that the Ollama server is reachable.
func (c *OllamaClient) Ping(ctx context.Context) error {
	resp, err := c.rc.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendDown, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: status %d", ErrBackendDown, resp.StatusCode())
	}
	return nil
}

// GenerateText sends a system+user prompt and returns the reply content.
func (c *OllamaClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	return c.chat(ctx, system, user, "")
}

// GenerateJSON sends a system+user prompt with Ollama's JSON format
// constraint and decodes the first object in the reply into out.
func (c *OllamaClient) GenerateJSON(ctx context.Context, system, user string, schema *Schema, out any) error {
	content, err := c.chat(ctx, system, user, "json")
	if err != nil {
		return err
	}
	return DecodeFirstJSON(content, out)
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (c *OllamaClient) chat(ctx context.Context, system, user, format string) (string, error) {
	req := ollamaChatRequest{
		Model: c.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
		Format: format,
	}

	var result ollamaChatResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/api/chat")
	if err != nil {
		return "", classifyTransportErr(err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("ollama: HTTP %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	return result.Message.Content, nil
}

// classifyTransportErr maps transport failures onto the package's
// failure classes so callers can pick timeout-specific fallbacks.
func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrBackendDown, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
