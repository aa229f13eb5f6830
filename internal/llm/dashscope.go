package llm

import (
	"context"
	"errors"

	"github.com/aihub/rag-go/internal/dashscope"
)

// DashScopeCompleter 使用DashScope的OpenAI兼容聊天接口
type DashScopeCompleter struct {
	service *dashscope.Service
	model   string
}

// NewDashScopeCompleter 创建DashScope补全客户端
func NewDashScopeCompleter(service *dashscope.Service, model string) *DashScopeCompleter {
	if model == "" {
		model = "qwen-turbo"
	}
	return &DashScopeCompleter{service: service, model: model}
}

func (c *DashScopeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.service == nil || !c.service.Ready() {
		return "", errors.New("dashscope service not initialized")
	}

	resp, err := c.service.ChatCompletion(ctx, dashscope.ChatRequest{
		Model: c.model,
		Messages: []dashscope.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
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
