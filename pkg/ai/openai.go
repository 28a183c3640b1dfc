package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/akozyrev/transcript-analyzer/pkg/config"
)

// Oracle is the structural-judgment capability consumed as a black box:
// one structured prompt in, one JSON object out. Responses are never
// trusted to match the advertised schema; callers must validate.
type Oracle interface {
	InferJSON(ctx context.Context, systemPrompt, userPrompt, model string) (json.RawMessage, error)
}

// OracleError wraps transport and format failures from the oracle so
// callers can distinguish them from semantic non-compliance (which is
// handled by validation, not errors).
type OracleError struct {
	Op  string
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// OpenAIClient is the go-openai backed Oracle implementation.
type OpenAIClient struct {
	cli          *openai.Client
	defaultModel string
	logger       *zap.Logger
}

// NewOpenAIClient creates an oracle client from config. BaseURL may point
// at any OpenAI-compatible endpoint.
func NewOpenAIClient(cfg *config.OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		cli:          openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.Model,
		logger:       logger,
	}
}

// InferJSON sends one chat completion request and returns the raw parsed
// JSON object. An empty model falls back to the configured default. Low
// temperature keeps extraction output stable across retries.
func (c *OpenAIClient) InferJSON(ctx context.Context, systemPrompt, userPrompt, model string) (json.RawMessage, error) {
	useModel := model
	if useModel == "" {
		useModel = c.defaultModel
	}

	resp, err := c.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: useModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, &OracleError{Op: "chat completion", Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &OracleError{Op: "chat completion", Err: fmt.Errorf("empty choices in response")}
	}

	if c.logger != nil {
		c.logger.Debug("oracle tokens used",
			zap.String("model", useModel),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			zap.Int("total_tokens", resp.Usage.TotalTokens),
		)
	}

	content := ExtractJSON(resp.Choices[0].Message.Content)

	var parsed json.RawMessage
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		preview := content
		if len(preview) > 500 {
			preview = preview[:500]
		}
		return nil, &OracleError{Op: "parse response", Err: fmt.Errorf("invalid JSON %q: %w", preview, err)}
	}

	return parsed, nil
}

// ExtractJSON extracts JSON content from markdown code blocks or plain text.
// Some models fence their output even when asked for raw JSON.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
