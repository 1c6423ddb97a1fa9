// Package llm provides a minimal multi-provider text-generation client.
// Providers: OpenAI-compatible APIs (openai, openrouter, deepseek), Anthropic,
// and local Ollama. The caller supplies a prompt and an optional system prompt
// and gets free text back; all structure recovery happens downstream.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Client is the text-generation capability the pipeline depends on.
type Client interface {
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// Config configures an HTTP-backed client.
type Config struct {
	Provider    string // "openai", "anthropic", "ollama", "deepseek", "openrouter"
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	Backoff     time.Duration
}

// DefaultOpenAIConfig is a reasonable starting point for OpenAI-compatible APIs.
var DefaultOpenAIConfig = Config{
	Provider:    "openai",
	Model:       "gpt-4o-mini",
	BaseURL:     "https://api.openai.com/v1",
	MaxTokens:   2048,
	Temperature: 0.2,
	Timeout:     60 * time.Second,
	MaxRetries:  2,
	Backoff:     time.Second,
}

// CostTracker accumulates token usage and an estimated spend.
type CostTracker struct {
	TotalTokens      int64
	PromptTokens     int64
	CompletionTokens int64
	EstimatedCostUSD float64
}

// AddUsage records one call's token usage.
func (c *CostTracker) AddUsage(prompt, completion int) {
	c.PromptTokens += int64(prompt)
	c.CompletionTokens += int64(completion)
	c.TotalTokens += int64(prompt + completion)
	// Flat heuristic rate; good enough for budgeting, not billing.
	c.EstimatedCostUSD += float64(prompt)*0.000005 + float64(completion)*0.000015
}

// HTTPClient talks to a hosted LLM provider over HTTP.
type HTTPClient struct {
	config Config
	client *http.Client
	cost   *CostTracker
}

// NewHTTPClient creates a client with pooled connections tuned for slow LLM APIs.
func NewHTTPClient(config Config) *HTTPClient {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2048
	}
	if config.Backoff == 0 {
		config.Backoff = time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   15 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		cost: &CostTracker{},
	}
}

// Cost returns the accumulated cost tracker.
func (c *HTTPClient) Cost() *CostTracker {
	return c.cost
}

// Complete sends the prompt and returns the model's text output.
func (c *HTTPClient) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	maxAttempts := c.config.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var content string
	var err error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.config.Backoff * time.Duration(i)):
			}
		}

		switch c.config.Provider {
		case "openai", "openrouter", "deepseek":
			content, err = c.callOpenAI(ctx, prompt, systemPrompt)
		case "anthropic":
			content, err = c.callAnthropic(ctx, prompt, systemPrompt)
		case "ollama":
			content, err = c.callOllama(ctx, prompt, systemPrompt)
		default:
			return "", fmt.Errorf("unknown provider: %s", c.config.Provider)
		}

		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", err
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *HTTPClient) callOpenAI(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []chatMessage{}
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := map[string]any{
		"model":       c.config.Model,
		"messages":    messages,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	}

	body, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(body))
	}

	var openaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return "", err
	}
	if len(openaiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.cost.AddUsage(openaiResp.Usage.PromptTokens, openaiResp.Usage.CompletionTokens)
	return openaiResp.Choices[0].Message.Content, nil
}

func (c *HTTPClient) callAnthropic(ctx context.Context, prompt, systemPrompt string) (string, error) {
	reqBody := map[string]any{
		"model":      c.config.Model,
		"max_tokens": c.config.MaxTokens,
		"messages":   []chatMessage{{Role: "user", Content: prompt}},
	}
	if systemPrompt != "" {
		reqBody["system"] = systemPrompt
	}

	body, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		c.config.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		return "", err
	}

	content := ""
	for _, part := range anthropicResp.Content {
		if part.Type == "text" {
			content += part.Text
		}
	}

	c.cost.AddUsage(anthropicResp.Usage.InputTokens, anthropicResp.Usage.OutputTokens)
	return content, nil
}

func (c *HTTPClient) callOllama(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []chatMessage{}
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := map[string]any{
		"model":    c.config.Model,
		"messages": messages,
		"stream":   false,
		"options": map[string]any{
			"temperature": c.config.Temperature,
			"num_predict": c.config.MaxTokens,
		},
	}

	body, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error %d: %s", resp.StatusCode, string(body))
	}

	var ollamaResp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", err
	}

	return ollamaResp.Message.Content, nil
}
