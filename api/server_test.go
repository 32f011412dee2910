package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seenimoa/coveredcall/internal/config"
	"github.com/seenimoa/coveredcall/internal/llm"
	"github.com/seenimoa/coveredcall/pkg/models"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Provider.Name = "stub"
	cfg.LLM.Provider = llm.BackendMock
	srv, err := NewServer(cfg, "test")
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

type reportResponse struct {
	Success bool          `json:"success"`
	Data    models.Report `json:"data"`
	Error   string        `json:"error"`
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestInfoEndpoint(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/info", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Providers []string `json:"providers"`
			Mode      string   `json:"mode"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Providers) < 2 {
		t.Errorf("providers = %v, want stub and yahoo registered", resp.Data.Providers)
	}
	if resp.Data.Mode != "deterministic" {
		t.Errorf("mode = %q, want deterministic", resp.Data.Mode)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{Ticker: "aapl"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp reportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Fatalf("success = false, error = %q", resp.Error)
	}
	if resp.Data.Ticker != "AAPL" {
		t.Errorf("ticker = %q, want AAPL", resp.Data.Ticker)
	}
	if resp.Data.Action != models.ActionSellCall {
		t.Errorf("action = %s, want SELL_CALL for the neutral income stub view", resp.Data.Action)
	}
	if resp.Data.Explain == nil || len(resp.Data.Explain.TraceNodes) == 0 {
		t.Error("report must carry the explain payload with trace nodes")
	}
}

func TestAnalyzeModeOverride(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyze",
		AnalyzeRequest{Ticker: "MSFT", Mode: "llm"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp reportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Explain.Mode != "llm" {
		t.Errorf("explain mode = %q, want llm override applied", resp.Data.Explain.Mode)
	}
	if resp.Data.Explain.LLMView == nil {
		t.Error("llm mode must record the llm view")
	}
}

func TestAnalyzeValidation(t *testing.T) {
	srv := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing ticker: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/analyze",
		AnalyzeRequest{Ticker: "AAPL", Mode: "psychic"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/analyze",
		AnalyzeRequest{Ticker: "AAPL", Provider: "bloomberg"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("unknown provider: status = %d, want 500", rec.Code)
	}
}

func TestAnalyzeCachesIdenticalRequests(t *testing.T) {
	srv := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{Ticker: "TSLA"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if _, ok := srv.cache.Get("analyze|TSLA|deterministic|false|stub"); !ok {
		t.Error("report missing from cache after successful run")
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{Ticker: "TSLA"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cached request: status = %d", rec.Code)
	}
}
