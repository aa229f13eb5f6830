package knowledge

import (
	"context"
	"sort"
)

// Reranker 重排序接口，对(query, candidate)逐对打分
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []RerankDocument) ([]RerankResult, error)
	Ready() bool
}

// RerankDocument 待重排序的文档
type RerankDocument struct {
	Position int     `json:"position"` // 在chunk存储中的位置
	Content  string  `json:"content"`
	Score    float64 `json:"score,omitempty"` // 原始分数
}

// RerankResult 重排序结果
type RerankResult struct {
	Document RerankDocument `json:"document"`
	Score    float64        `json:"score"` // 重排序后的分数
}

// NoopReranker 默认占位实现
type NoopReranker struct{}

func (n *NoopReranker) Rerank(ctx context.Context, query string, documents []RerankDocument) ([]RerankResult, error) {
	// 不进行重排序，原样返回
	results := make([]RerankResult, len(documents))
	for i, doc := range documents {
		results[i] = RerankResult{Document: doc, Score: doc.Score}
	}
	return results, nil
}

func (n *NoopReranker) Ready() bool {
	return false
}

// sortRerankResults 按分数降序稳定排序
func sortRerankResults(results []RerankResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
