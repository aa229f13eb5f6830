package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aihub/rag-go/internal/logger"
	"go.uber.org/zap"
)

// Service 统一的DashScope服务，支持LLM、Embedding、Rerank
type Service struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter sync.Mutex
}

// ChatMessage 聊天消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 聊天请求（兼容OpenAI格式）
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// ChatResponse 聊天响应（兼容OpenAI格式）
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingRequest 向量化请求（兼容OpenAI格式）
type EmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     *int     `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

// EmbeddingResponse 向量化响应（兼容OpenAI格式）
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// RerankRequest 重排序请求
type RerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      *int     `json:"top_n,omitempty"`
}

// RerankResponse 重排序响应
type RerankResponse struct {
	Output struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	} `json:"output"`
	RequestID string `json:"request_id"`
}

// Error DashScope API错误
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// NewService 创建DashScope服务，apiKey为空时返回nil
func NewService(apiKey string) *Service {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}

	return &Service{
		apiKey:  apiKey,
		baseURL: "https://dashscope.aliyuncs.com",
		client: &http.Client{
			Timeout: 60 * time.Second, // LLM可能需要更长时间
		},
	}
}

// post 发送JSON请求并解析响应
func (s *Service) post(ctx context.Context, path string, payload, out interface{}) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("DashScope service not initialized")
	}

	s.limiter.Lock()
	defer s.limiter.Unlock()

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("API调用失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp Error
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Message != "" {
			return fmt.Errorf("DashScope API错误: %s (code: %s, request_id: %s)",
				errorResp.Message, errorResp.Code, errorResp.RequestID)
		}
		return fmt.Errorf("DashScope API错误: HTTP %d - %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

// ChatCompletion 调用LLM聊天接口
func (s *Service) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var chatResp ChatResponse
	if err := s.post(ctx, "/compatible-mode/v1/chat/completions", req, &chatResp); err != nil {
		return nil, err
	}

	logger.Debug("DashScope ChatCompletion success",
		zap.String("model", req.Model),
		zap.Int("prompt_tokens", chatResp.Usage.PromptTokens),
		zap.Int("completion_tokens", chatResp.Usage.CompletionTokens))

	return &chatResp, nil
}

// CreateEmbeddings 调用向量化接口
func (s *Service) CreateEmbeddings(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	var embeddingResp EmbeddingResponse
	if err := s.post(ctx, "/compatible-mode/v1/embeddings", req, &embeddingResp); err != nil {
		return nil, err
	}

	logger.Debug("DashScope CreateEmbeddings success",
		zap.String("model", req.Model),
		zap.Int("input_count", len(req.Input)),
		zap.Int("total_tokens", embeddingResp.Usage.TotalTokens))

	return &embeddingResp, nil
}

// CreateRerank 调用重排序接口
func (s *Service) CreateRerank(ctx context.Context, req RerankRequest) (*RerankResponse, error) {
	var rerankResp RerankResponse
	if err := s.post(ctx, "/api/v1/services/rerank/rerank", req, &rerankResp); err != nil {
		return nil, err
	}

	logger.Debug("DashScope CreateRerank success",
		zap.String("model", req.Model),
		zap.Int("document_count", len(req.Documents)),
		zap.String("request_id", rerankResp.RequestID))

	return &rerankResp, nil
}

// Ready 检查服务是否就绪
func (s *Service) Ready() bool {
	return s != nil && s.client != nil && s.apiKey != ""
}
