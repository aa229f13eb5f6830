package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/aihub/rag-go/internal/config"
	"github.com/aihub/rag-go/internal/logger"
	"go.uber.org/zap"
)

// Retriever 检索编排器：向量搜索超采候选，重排序提升精度。
// 索引对在构造和Reload时整体加载，检索期间只读，可并发调用Retrieve。
type Retriever struct {
	mu     sync.RWMutex
	index  *FlatIndex
	chunks []string

	embedder Embedder
	reranker Reranker

	indexDir        string
	defaultTopK     int
	overfetchFactor int
	rerankEnabled   bool
	rerankBatchSize int
}

// NewRetriever 创建检索编排器并尝试加载磁盘索引。
// 索引缺失或损坏时进入降级状态：不报错，后续Retrieve返回ErrIndexNotAvailable。
func NewRetriever(cfg *config.Config, embedder Embedder, reranker Reranker) *Retriever {
	r := &Retriever{
		embedder:        embedder,
		reranker:        reranker,
		indexDir:        cfg.Data.IndexDir,
		defaultTopK:     cfg.Retrieval.TopK,
		overfetchFactor: cfg.Retrieval.OverfetchMultiplier,
		rerankEnabled:   cfg.Rerank.Enabled,
		rerankBatchSize: cfg.Rerank.BatchSize,
	}

	if err := r.Reload(); err != nil {
		logger.Warn("索引未加载，检索进入降级状态",
			zap.String("index_dir", r.indexDir),
			zap.Error(err))
	}
	return r
}

// Reload 重新加载磁盘上的索引对，重建索引完成后调用
func (r *Retriever) Reload() error {
	index, chunks, err := LoadIndexPair(r.indexDir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.index = index
	r.chunks = chunks
	r.mu.Unlock()

	logger.Info("索引加载完成",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimensions", index.Dim()))
	return nil
}

// Ready 索引是否已加载
func (r *Retriever) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index != nil
}

// Retrieve 返回与query最相关的chunk文本，按相关度降序，长度不超过topK。
// topK不为正时使用配置默认值。降级状态返回ErrIndexNotAvailable哨兵，
// 调用方用errors.Is与真正的空结果区分。
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	r.mu.RLock()
	index, chunks := r.index, r.chunks
	r.mu.RUnlock()

	if index == nil {
		return nil, ErrIndexNotAvailable
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("向量化查询失败: %w", err)
	}

	// 超采candidates，留给重排序更大的候选池
	neighbors, err := index.Search(queryVec, topK*r.overfetchFactor)
	if err != nil {
		return nil, err
	}

	// 位置越界的结果防御性丢弃，索引损坏不应导致崩溃
	candidates := make([]RerankDocument, 0, len(neighbors))
	for _, nb := range neighbors {
		if nb.Position < 0 || nb.Position >= len(chunks) {
			logger.Warn("丢弃越界的索引位置", zap.Int("position", nb.Position), zap.Int("store_size", len(chunks)))
			continue
		}
		candidates = append(candidates, RerankDocument{
			Position: nb.Position,
			Content:  chunks[nb.Position],
			Score:    float64(nb.Distance),
		})
	}

	if !r.rerankEnabled || r.reranker == nil || !r.reranker.Ready() {
		return truncateTexts(candidates, topK), nil
	}

	results, err := r.rerankCandidates(ctx, query, candidates)
	if err != nil {
		// 重排序属于精度优化，失败时退回距离序而不是让查询失败
		logger.Error("重排序失败，退回距离排序", zap.String("query", query), zap.Error(err))
		return truncateTexts(candidates, topK), nil
	}

	// 按分数降序稳定排序，同分保持原距离序
	sortRerankResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Document.Content
	}
	return texts, nil
}

// rerankCandidates 分批调用重排序器，每个候选恰好打分一次
func (r *Retriever) rerankCandidates(ctx context.Context, query string, candidates []RerankDocument) ([]RerankResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	batchSize := r.rerankBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	results := make([]RerankResult, 0, len(candidates))
	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batchResults, err := r.reranker.Rerank(ctx, query, candidates[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batchResults...)
	}
	return results, nil
}

func truncateTexts(candidates []RerankDocument, topK int) []string {
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Content
	}
	return texts
}
