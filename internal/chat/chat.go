package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codelens-ai/pr-reviewer/internal/config"
	"github.com/codelens-ai/pr-reviewer/internal/models"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Result is the completion client's response: a structured verdict when the
// model honored the JSON contract, otherwise just the free text. Text always
// carries the raw content.
type Result struct {
	Verdict *models.ReviewVerdict
	Text    string
}

// LLMRequest represents a request to an OpenAI-compatible chat endpoint
type LLMRequest struct {
	Model          string             `json:"model"`
	Messages       []LLMMessage       `json:"messages"`
	Temperature    float32            `json:"temperature,omitempty"`
	TopP           float32            `json:"top_p,omitempty"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	ResponseFormat *LLMResponseFormat `json:"response_format,omitempty"`
}

// LLMMessage represents a chat message
type LLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMResponseFormat constrains the response shape
type LLMResponseFormat struct {
	Type string `json:"type"`
}

// LLMResponse represents a response from an OpenAI-compatible chat endpoint
type LLMResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat handles interactions with LLM APIs (OpenAI, Azure OpenAI, or a direct
// OpenAI-compatible endpoint)
type Chat struct {
	client     *openai.Client
	config     *config.Config
	httpClient *http.Client
}

// NewChat creates a new Chat instance
func NewChat(cfg *config.Config) (*Chat, error) {
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}

	if cfg.IsDirectLLM {
		logrus.Info("Using Direct LLM API")
		return &Chat{
			config:     cfg,
			httpClient: httpClient,
		}, nil
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("either Direct LLM or OpenAI API configuration is required")
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	clientConfig.BaseURL = cfg.OpenAIAPIEndpoint

	// Configure for Azure OpenAI if needed
	if cfg.IsAzure {
		clientConfig = openai.DefaultAzureConfig(
			cfg.OpenAIAPIKey,
			fmt.Sprintf("%s/%s", cfg.OpenAIAPIEndpoint, cfg.AzureDeployment),
		)
		clientConfig.APIVersion = cfg.AzureAPIVersion
		clientConfig.AzureModelMapperFunc = func(model string) string {
			return cfg.AzureDeployment
		}
	}

	return &Chat{
		client:     openai.NewClientWithConfig(clientConfig),
		config:     cfg,
		httpClient: httpClient,
	}, nil
}

// Review sends the prompt to the configured completion endpoint and wraps the
// content in a tagged Result. Transport and API failures are returned as
// errors; a response that merely violates the JSON contract is not an error.
func (c *Chat) Review(ctx context.Context, prompt string) (*Result, error) {
	start := time.Now()
	logrus.Infof("Invoking completion model (prompt size: %d bytes)", len(prompt))

	var content string
	var err error

	if c.config.IsDirectLLM {
		content, err = c.callDirectLLMAPI(ctx, prompt)
	} else {
		content, err = c.callOpenAI(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	logrus.Infof("Completion call finished in %s", time.Since(start))
	logrus.Debugf("Raw response content: %s", content)

	result := &Result{Text: content}
	if verdict, ok := decodeVerdict(content); ok {
		result.Verdict = verdict
	}
	return result, nil
}

// decodeVerdict attempts a strict decode of the verdict schema. The object
// must carry an lgtm or comments key so that arbitrary JSON objects are not
// mistaken for verdicts.
func decodeVerdict(content string) (*models.ReviewVerdict, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &keys); err != nil {
		return nil, false
	}
	if _, ok := keys["lgtm"]; !ok {
		if _, ok := keys["comments"]; !ok {
			return nil, false
		}
	}

	var verdict models.ReviewVerdict
	if err := json.Unmarshal([]byte(trimmed), &verdict); err != nil {
		return nil, false
	}
	return &verdict, true
}

func (c *Chat) callOpenAI(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: c.config.Temperature,
		TopP:        c.config.TopP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}

	logrus.Debugf("Sending request to OpenAI API with model: %s", c.config.Model)
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI API returned empty choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// callDirectLLMAPI calls an OpenAI-compatible endpoint over plain HTTP
func (c *Chat) callDirectLLMAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := LLMRequest{
		Model: c.config.DirectLLMModelID,
		Messages: []LLMMessage{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		Temperature: c.config.Temperature,
		TopP:        c.config.TopP,
		ResponseFormat: &LLMResponseFormat{
			Type: "json_object",
		},
	}

	if c.config.MaxTokens > 0 {
		reqBody.MaxTokens = c.config.MaxTokens
	}

	reqData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.config.DirectLLMEndpoint,
		bytes.NewBuffer(reqData),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.DirectLLMAPIKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned non-200 status code: %d, body: %s", resp.StatusCode, string(respBody))
	}

	var llmResp LLMResponse
	if err := json.Unmarshal(respBody, &llmResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(respBody))
	}

	if len(llmResp.Choices) == 0 {
		return "", errors.New("API returned empty choices")
	}

	return llmResp.Choices[0].Message.Content, nil
}
