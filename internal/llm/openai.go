package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/aihub/rag-go/internal/logger"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// 已验证可用的OpenAI对话模型
var supportedOpenAIModels = map[string]bool{
	"gpt-3.5-turbo":       true,
	"gpt-4":               true,
	"gpt-4-turbo-preview": true,
	"gpt-4o":              true,
	"gpt-4o-mini":         true,
}

// OpenAICompleter 使用OpenAI Chat Completion API
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter 创建OpenAI补全客户端，不支持的模型回退到gpt-3.5-turbo
func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	if !supportedOpenAIModels[model] {
		logger.Warn("不在支持列表中的OpenAI模型，回退到gpt-3.5-turbo", zap.String("model", model))
		model = "gpt-3.5-turbo"
	}

	var client *openai.Client
	if strings.TrimSpace(apiKey) != "" {
		client = openai.NewClient(apiKey)
	}
	return &OpenAICompleter{client: client, model: model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion response empty")
	}
	return resp.Choices[0].Message.Content, nil
}
