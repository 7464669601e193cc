package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/amlandas/newsgraph/internal/domain"
)

// AnthropicClient wraps the Anthropic Messages API.
type AnthropicClient struct {
	apiKey string
	http   *http.Client
}

// AnthropicConfig configures an AnthropicClient.
type AnthropicConfig struct {
	APIKey  string
	Timeout time.Duration
}

// NewAnthropicClient creates a new Anthropic-backed extractor client.
// Security: the API key is read from ANTHROPIC_API_KEY when not supplied.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured: set ANTHROPIC_API_KEY")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &AnthropicClient{apiKey: apiKey, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (c *AnthropicClient) Name() string { return "anthropic" }

func (c *AnthropicClient) IsAvailable(ctx context.Context) bool { return c.apiKey != "" }

func (c *AnthropicClient) Close() error { return nil }

type anthropicMessagesRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMessagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func (c *AnthropicClient) Extract(ctx context.Context, modelID, articleTitle, text string) (*domain.Extraction, *Usage, error) {
	reqBody, err := json.Marshal(anthropicMessagesRequest{
		Model: modelID,
		Messages: []anthropicMessage{
			{Role: "user", Content: ExtractionPrompt(articleTitle, text)},
		},
		System:    "You are a news analyst. Extract entities and a summary and return valid JSON only.",
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, nil, fmt.Errorf("build anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("anthropic call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("anthropic status %d: %s", resp.StatusCode, string(respBody))
	}

	var anthResp anthropicMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&anthResp); err != nil {
		return nil, nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	if len(anthResp.Content) == 0 {
		return nil, nil, fmt.Errorf("empty anthropic response")
	}
	var textContent string
	for _, block := range anthResp.Content {
		if block.Type == "text" {
			textContent = block.Text
			break
		}
	}
	if textContent == "" {
		return nil, nil, fmt.Errorf("no text content in anthropic response")
	}

	extraction, err := ParseExtraction(c.Name(), modelID, textContent)
	if err != nil {
		return nil, nil, err
	}
	usage := &Usage{InputTokens: anthResp.Usage.InputTokens, OutputTokens: anthResp.Usage.OutputTokens}
	return extraction, usage, nil
}
