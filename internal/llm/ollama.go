package llm

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
)

// OllamaCompleter 调用本地Ollama守护进程的/api/chat接口
type OllamaCompleter struct {
	host   string
	model  string
	client *http.Client
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error,omitempty"`
}

// NewOllamaCompleter 创建Ollama补全客户端
func NewOllamaCompleter(host, model string) *OllamaCompleter {
	host = strings.TrimRight(host, "/")
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = "mistral"
	}
	return &OllamaCompleter{
		host:  host,
		model: model,
		client: &http.Client{
			Timeout: 120 * time.Second, // 本地推理可能较慢
		},
	}
}

func (c *OllamaCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := ollamaChatRequest{
		Model: c.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.host+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("Ollama调用失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama错误: HTTP %d - %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if chatResp.Error != "" {
		return "", fmt.Errorf("Ollama错误: %s", chatResp.Error)
	}
	if chatResp.Message.Content == "" {
		return "", errors.New("chat response empty")
	}
	return chatResp.Message.Content, nil
}
