package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFlatIndexInvalidDim(t *testing.T) {
	_, err := NewFlatIndex(0)
	assert.Error(t, err)
	_, err = NewFlatIndex(-3)
	assert.Error(t, err)
}

func TestFlatIndexAddDimensionMismatch(t *testing.T) {
	idx, err := NewFlatIndex(3)
	require.NoError(t, err)

	err = idx.Add([][]float32{{1, 2}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	// 整批被拒绝，不允许部分插入
	assert.Equal(t, 0, idx.Size())
}

func TestFlatIndexSearchOrder(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{
		{0, 0},   // 位置0
		{10, 10}, // 位置1
		{1, 1},   // 位置2
	}))

	neighbors, err := idx.Search([]float32{0.5, 0.5}, 3)
	require.NoError(t, err)
	require.Len(t, neighbors, 3)
	assert.Equal(t, 0, neighbors[0].Position)
	assert.Equal(t, 2, neighbors[1].Position)
	assert.Equal(t, 1, neighbors[2].Position)
	assert.LessOrEqual(t, neighbors[0].Distance, neighbors[1].Distance)
	assert.LessOrEqual(t, neighbors[1].Distance, neighbors[2].Distance)
}

func TestFlatIndexSearchKLargerThanSize(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0}, {0, 1}}))

	neighbors, err := idx.Search([]float32{1, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, neighbors, 2)
}

func TestFlatIndexSearchQueryDimensionMismatch(t *testing.T) {
	idx, err := NewFlatIndex(3)
	require.NoError(t, err)
	_, err = idx.Search([]float32{1, 2}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndexSaveLoadRoundTrip(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1.5, -2.5}, {0.25, 3.75}}))

	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, idx.Save(path))

	loaded, err := LoadFlatIndex(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Dim())
	assert.Equal(t, 2, loaded.Size())

	neighbors, err := loaded.Search([]float32{1.5, -2.5}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, neighbors[0].Position)
	assert.Equal(t, float32(0), neighbors[0].Distance)
}

func TestLoadFlatIndexCorrupt(t *testing.T) {
	dir := t.TempDir()

	// 非索引文件
	garbage := filepath.Join(dir, "garbage.bin")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not an index"), 0o644))
	_, err := LoadFlatIndex(garbage)
	assert.ErrorIs(t, err, ErrCorruptIndex)

	// 截断的索引文件
	idx, err := NewFlatIndex(4)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}}))
	truncated := filepath.Join(dir, "truncated.bin")
	require.NoError(t, idx.Save(truncated))
	data, err := os.ReadFile(truncated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(truncated, data[:len(data)-5], 0o644))
	_, err = LoadFlatIndex(truncated)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestLoadFlatIndexMissing(t *testing.T) {
	_, err := LoadFlatIndex(filepath.Join(t.TempDir(), "index.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveIndexPairCountMismatch(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 2}}))

	err = SaveIndexPair(t.TempDir(), idx, []string{"one", "two"})
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestSaveLoadIndexPairRoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0}, {0, 1}}))

	require.NoError(t, SaveIndexPair(dir, idx, []string{"first chunk", "second chunk"}))

	loaded, chunks, err := LoadIndexPair(dir)
	require.NoError(t, err)
	assert.Equal(t, loaded.Size(), len(chunks))
	assert.Equal(t, []string{"first chunk", "second chunk"}, chunks)

	// 临时文件不应残留
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLoadIndexPairInconsistent(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, SaveIndexPair(dir, idx, []string{"a", "b"}))

	// 篡改chunk存储制造数量不一致
	require.NoError(t, os.WriteFile(filepath.Join(dir, chunkStoreFileName), []byte(`["only one"]`), 0o644))

	_, _, err = LoadIndexPair(dir)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}
