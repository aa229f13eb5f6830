package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/aihub/rag-go/internal/dashscope"
)

// 千问Embedding模型维度映射
var dashscopeEmbeddingDimensions = map[string]int{
	"text-embedding-v1": 1536,
	"text-embedding-v2": 1536,
	"text-embedding-v3": 1536, // 支持自定义维度
	"text-embedding-v4": 1536, // 支持自定义维度
}

// DashScopeEmbedder 使用阿里云DashScope Embedding API
type DashScopeEmbedder struct {
	service    *dashscope.Service
	model      string
	dimensions int
}

// NewDashScopeEmbedder 创建DashScope嵌入向量生成器
func NewDashScopeEmbedder(service *dashscope.Service, model string) Embedder {
	if service == nil || !service.Ready() {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "text-embedding-v1"
	}

	dims, ok := dashscopeEmbeddingDimensions[model]
	if !ok {
		dims = 1536
	}

	return &DashScopeEmbedder{
		service:    service,
		model:      model,
		dimensions: dims,
	}
}

func (e *DashScopeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 一次请求向量化整批文本，返回顺序与输入一致
func (e *DashScopeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("texts is empty")
	}
	if e.service == nil || !e.service.Ready() {
		return nil, errors.New("dashscope service not initialized")
	}

	req := dashscope.EmbeddingRequest{
		Model:          e.model,
		Input:          texts,
		EncodingFormat: "float",
	}
	// v3和v4模型可以指定输出维度
	if e.model == "text-embedding-v3" || e.model == "text-embedding-v4" {
		req.Dimensions = &e.dimensions
	}

	resp, err := e.service.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	// 响应按index回填，转换float64到float32
	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			continue
		}
		if len(data.Embedding) != e.dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(data.Embedding), e.dimensions)
		}
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		vectors[data.Index] = vec
	}
	for i, vec := range vectors {
		if vec == nil {
			return nil, fmt.Errorf("embedding response missing index %d", i)
		}
	}
	return vectors, nil
}

func (e *DashScopeEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *DashScopeEmbedder) Ready() bool {
	return e.service != nil && e.service.Ready()
}
