package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexerBuildEmptyDir(t *testing.T) {
	indexDir := filepath.Join(t.TempDir(), "idx")
	cfg := testConfig(indexDir)
	indexer := NewIndexer(cfg, newKeywordEmbedder())

	err := indexer.Build(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoDocuments)

	// 失败时不应创建任何索引文件
	_, statErr := os.Stat(indexDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestIndexerBuildUnsupportedFilesOnly(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, dataDir, "a.zip", "zip data")
	writeFile(t, dataDir, "b.exe", "exe data")

	indexDir := filepath.Join(t.TempDir(), "idx")
	cfg := testConfig(indexDir)
	indexer := NewIndexer(cfg, newKeywordEmbedder())

	err := indexer.Build(context.Background(), dataDir)
	assert.ErrorIs(t, err, ErrNoDocuments)
	_, statErr := os.Stat(indexDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestIndexerBuildSuccess(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, dataDir, "a.txt", "The warranty covers the engine for 3 years.")
	writeFile(t, dataDir, "b.txt", "Tire pressure should be 32 PSI.")

	indexDir := filepath.Join(t.TempDir(), "idx")
	cfg := testConfig(indexDir)
	embedder := newKeywordEmbedder()
	indexer := NewIndexer(cfg, embedder)

	require.NoError(t, indexer.Build(context.Background(), dataDir))

	// 索引与chunk存储条目数必须一致
	index, chunks, err := LoadIndexPair(indexDir)
	require.NoError(t, err)
	assert.Equal(t, index.Size(), len(chunks))
	assert.Equal(t, embedder.Dimensions(), index.Dim())
	assert.Contains(t, strings.Join(chunks, "\n"), "3 years")
}

func TestIndexerBuildSplitsLongDocuments(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, dataDir, "long.txt", wordsText(500))

	indexDir := filepath.Join(t.TempDir(), "idx")
	cfg := testConfig(indexDir)
	cfg.Chunk.Size = 200
	cfg.Chunk.Overlap = 20
	indexer := NewIndexer(cfg, newKeywordEmbedder())

	require.NoError(t, indexer.Build(context.Background(), dataDir))

	index, chunks, err := LoadIndexPair(indexDir)
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	assert.Equal(t, index.Size(), len(chunks))
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 200)
	}
}

func TestIndexerBuildFailureKeepsOldIndex(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, dataDir, "a.txt", "warranty information document")

	indexDir := filepath.Join(t.TempDir(), "idx")
	cfg := testConfig(indexDir)
	embedder := newKeywordEmbedder()
	indexer := NewIndexer(cfg, embedder)
	require.NoError(t, indexer.Build(context.Background(), dataDir))

	_, oldChunks, err := LoadIndexPair(indexDir)
	require.NoError(t, err)

	// 第二次构建失败（embedding不可用），旧索引必须原样保留
	failing := NewIndexer(cfg, &fakeEmbedder{dim: 4, fail: true})
	writeFile(t, dataDir, "b.txt", "new tire document")
	err = failing.Build(context.Background(), dataDir)
	require.Error(t, err)

	_, chunks, err := LoadIndexPair(indexDir)
	require.NoError(t, err)
	assert.Equal(t, oldChunks, chunks)
}

func TestIndexerBuildIdempotent(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, dataDir, "a.txt", "The warranty covers the engine for 3 years.")
	writeFile(t, dataDir, "b.txt", "Tire pressure should be 32 PSI.")

	indexDir := filepath.Join(t.TempDir(), "idx")
	cfg := testConfig(indexDir)
	embedder := newKeywordEmbedder()
	indexer := NewIndexer(cfg, embedder)

	require.NoError(t, indexer.Build(context.Background(), dataDir))
	_, firstChunks, err := LoadIndexPair(indexDir)
	require.NoError(t, err)

	require.NoError(t, indexer.Build(context.Background(), dataDir))
	_, secondChunks, err := LoadIndexPair(indexDir)
	require.NoError(t, err)

	assert.Equal(t, firstChunks, secondChunks)

	// 相同输入重建后，任意查询的检索结果保持不变
	r := NewRetriever(cfg, embedder, nil)
	results, err := r.Retrieve(context.Background(), "How long is the engine warranty?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0], "3 years")
}

func TestIndexerBuildThenRetrieveScenario(t *testing.T) {
	// 构建→检索端到端：空目录构建失败后检索返回哨兵
	indexDir := filepath.Join(t.TempDir(), "idx")
	cfg := testConfig(indexDir)
	embedder := newKeywordEmbedder()

	indexer := NewIndexer(cfg, embedder)
	err := indexer.Build(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoDocuments)

	r := NewRetriever(cfg, embedder, nil)
	_, err = r.Retrieve(context.Background(), "warranty", 3)
	assert.ErrorIs(t, err, ErrIndexNotAvailable)
}
