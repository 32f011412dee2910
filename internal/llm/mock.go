package llm

import (
	"context"
	"sync"
)

// MockClient is an offline backend that serves canned, schema-valid
// payloads keyed by schema title. It backs `llm.provider: mock` for
// demos without a model server and doubles as the scripted backend in
// tests: queue free-text replies with ScriptText and override payloads
// with SetJSON.
type MockClient struct {
	mu    sync.Mutex
	json  map[string]string
	errs  map[string]error
	texts []string
}

// NewMockClient creates a mock backend preloaded with default payloads
// for every schema the pipeline requests.
func NewMockClient() *MockClient {
	return &MockClient{
		json: map[string]string{
			"LLMFundamentals": `{"stance":"BEARISH","covered_call_bias":"CAUTION","confidence":0.95,` +
				`"bullets":["Mock: margins deteriorating","Mock: growth decelerating"],` +
				`"risks":["Mock: canned payload"]}`,
			"AgentArgument": `{"stance":"BULLISH","covered_call_bias":"UPSIDE","confidence":0.7,` +
				`"bullets":["Mock: durable franchise","Mock: pricing power"],` +
				`"risks":["Mock: canned payload"]}`,
			"DebateSummary": `{"bull":{"stance":"BULLISH","covered_call_bias":"UPSIDE","confidence":0.7,` +
				`"bullets":["Mock bull"],"risks":[]},` +
				`"bear":{"stance":"BEARISH","covered_call_bias":"CAUTION","confidence":0.6,` +
				`"bullets":["Mock bear"],"risks":[]},` +
				`"synthesis":["Mock synthesis"],"disagreements":["Mock disagreement"]}`,
		},
		errs: map[string]error{},
	}
}

func (c *MockClient) Name() string { return BackendMock }

// ScriptText queues replies for subsequent GenerateText calls, in order.
// When the queue is empty, GenerateText returns "MOCK_TEXT".
func (c *MockClient) ScriptText(replies ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, replies...)
}

// SetJSON overrides the canned payload for a schema title.
func (c *MockClient) SetJSON(title, payload string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.json[title] = payload
}

// FailJSON makes GenerateJSON fail with err for a schema title.
func (c *MockClient) FailJSON(title string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[title] = err
}

func (c *MockClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.texts) > 0 {
		reply := c.texts[0]
		c.texts = c.texts[1:]
		return reply, nil
	}
	return "MOCK_TEXT", nil
}

func (c *MockClient) GenerateJSON(ctx context.Context, system, user string, schema *Schema, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	title := ""
	if schema != nil {
		title = schema.Title
	}
	c.mu.Lock()
	payload, ok := c.json[title]
	err := c.errs[title]
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSchemaMismatch
	}
	return DecodeFirstJSON(payload, out)
}
