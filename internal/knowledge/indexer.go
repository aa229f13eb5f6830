package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/aihub/rag-go/internal/config"
	"github.com/aihub/rag-go/internal/logger"
	"go.uber.org/zap"
)

// Indexer 索引构建流水线：加载 → 分块 → 向量化 → 持久化
type Indexer struct {
	loader   *DocumentLoader
	chunker  *Chunker
	embedder Embedder
	indexDir string
}

// NewIndexer 创建索引构建流水线
func NewIndexer(cfg *config.Config, embedder Embedder) *Indexer {
	return &Indexer{
		loader:   NewDocumentLoader(),
		chunker:  NewChunker(cfg.Chunk.Size, cfg.Chunk.Overlap),
		embedder: embedder,
		indexDir: cfg.Data.IndexDir,
	}
}

// Build 对dataDir中的文档建立索引并原子替换磁盘上的索引对。
// 目录中没有可索引文本时返回ErrNoDocuments且不触碰已有索引；
// 任何其他失败同样发生在替换之前，旧索引保持可用。
func (ix *Indexer) Build(ctx context.Context, dataDir string) error {
	start := time.Now()

	text, err := ix.loader.LoadDirectory(dataDir)
	if err != nil {
		return err
	}

	chunks := ix.chunker.Split(text)
	if len(chunks) == 0 {
		return ErrNoDocuments
	}
	logger.Info("文档分块完成", zap.Int("chunks", len(chunks)))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("向量化失败: %w", err)
	}

	index, err := NewFlatIndex(ix.embedder.Dimensions())
	if err != nil {
		return err
	}
	if err := index.Add(vectors); err != nil {
		return err
	}

	if err := SaveIndexPair(ix.indexDir, index, texts); err != nil {
		return fmt.Errorf("持久化索引失败: %w", err)
	}

	logger.Info("✅ 索引构建完成",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimensions", index.Dim()),
		zap.String("index_dir", ix.indexDir),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
