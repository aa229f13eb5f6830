package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aihub/rag-go/internal/dashscope"
)

// DashScopeReranker 使用阿里云DashScope Rerank API
type DashScopeReranker struct {
	service *dashscope.Service
	model   string
}

// NewDashScopeReranker 创建DashScope重排序器
func NewDashScopeReranker(service *dashscope.Service, model string) Reranker {
	if service == nil || !service.Ready() {
		return &NoopReranker{}
	}
	if model == "" {
		model = "gte-rerank" // 通义千问重排序模型
	}

	return &DashScopeReranker{
		service: service,
		model:   model,
	}
}

// Rerank 对一批候选打分，每个(query, document)对恰好打分一次
func (r *DashScopeReranker) Rerank(ctx context.Context, query string, documents []RerankDocument) ([]RerankResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query cannot be empty")
	}
	if len(documents) == 0 {
		return nil, errors.New("documents cannot be empty")
	}
	if r.service == nil || !r.service.Ready() {
		return nil, errors.New("dashscope service not initialized")
	}

	docContents := make([]string, len(documents))
	for i, doc := range documents {
		docContents[i] = doc.Content
	}

	resp, err := r.service.CreateRerank(ctx, dashscope.RerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: docContents,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	if len(resp.Output.Results) == 0 {
		return nil, errors.New("rerank response empty")
	}

	// 按输入下标回填分数，缺失的下标记0分
	scoreMap := make(map[int]float64)
	for _, result := range resp.Output.Results {
		scoreMap[result.Index] = result.RelevanceScore
	}

	results := make([]RerankResult, len(documents))
	for i, doc := range documents {
		results[i] = RerankResult{Document: doc, Score: scoreMap[i]}
	}
	return results, nil
}

func (r *DashScopeReranker) Ready() bool {
	return r.service != nil && r.service.Ready()
}
