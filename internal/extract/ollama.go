package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amlandas/newsgraph/internal/domain"
)

// OllamaClient wraps a local Ollama instance.
type OllamaClient struct {
	host      string
	keepAlive string
	http      *http.Client
}

// OllamaConfig configures an OllamaClient.
type OllamaConfig struct {
	Host      string
	KeepAlive string
	Timeout   time.Duration
}

// NewOllamaClient creates a new Ollama-backed extractor client.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.KeepAlive == "" {
		cfg.KeepAlive = "30m"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OllamaClient{
		host:      cfg.Host,
		keepAlive: cfg.KeepAlive,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *OllamaClient) Name() string { return "ollama" }

func (c *OllamaClient) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/version", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *OllamaClient) Close() error { return nil }

type ollamaGenerateRequest struct {
	Model     string        `json:"model"`
	Prompt    string        `json:"prompt"`
	Stream    bool          `json:"stream"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int64  `json:"prompt_eval_count"`
	EvalCount       int64  `json:"eval_count"`
}

// Extract sends the article to Ollama and parses the result with the shared
// tolerant JSON parser.
func (c *OllamaClient) Extract(ctx context.Context, modelID, articleTitle, text string) (*domain.Extraction, *Usage, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:     modelID,
		Prompt:    ExtractionPrompt(articleTitle, text),
		Stream:    false,
		KeepAlive: c.keepAlive,
		Options:   ollamaOptions{Temperature: 0.1, NumPredict: 2048},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("ollama call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, nil, fmt.Errorf("decode ollama response: %w", err)
	}

	extraction, err := ParseExtraction(c.Name(), modelID, genResp.Response)
	if err != nil {
		return nil, nil, err
	}
	usage := &Usage{InputTokens: genResp.PromptEvalCount, OutputTokens: genResp.EvalCount}
	return extraction, usage, nil
}
