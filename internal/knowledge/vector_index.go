package knowledge

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// 索引文件头：magic + 版本 + 维度 + 向量数，随后是count*dim个小端float32
var indexMagic = [4]byte{'R', 'G', 'I', 'X'}

const indexFormatVersion uint32 = 1

// Neighbor 最近邻搜索结果
type Neighbor struct {
	Position int     // 在chunk存储中的位置
	Distance float32 // 欧氏距离平方，越小越相近
}

// FlatIndex 平铺向量索引，精确的暴力最近邻搜索
type FlatIndex struct {
	dim     int
	vectors []float32 // 行优先展开，长度 = count*dim
}

// NewFlatIndex 创建指定维度的空索引
func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid index dimension: %d", dim)
	}
	return &FlatIndex{dim: dim}, nil
}

// Dim 返回向量维度
func (idx *FlatIndex) Dim() int {
	return idx.dim
}

// Size 返回已存储的向量数
func (idx *FlatIndex) Size() int {
	return len(idx.vectors) / idx.dim
}

// Add 按顺序追加向量，维度不匹配返回ErrDimensionMismatch
func (idx *FlatIndex) Add(vectors [][]float32) error {
	for i, vec := range vectors {
		if len(vec) != idx.dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d", ErrDimensionMismatch, i, len(vec), idx.dim)
		}
	}
	for _, vec := range vectors {
		idx.vectors = append(idx.vectors, vec...)
	}
	return nil
}

// Search 返回query的k个最近邻，按距离升序。k大于向量总数时返回全部。
func (idx *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), idx.dim)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	size := idx.Size()
	neighbors := make([]Neighbor, size)
	for i := 0; i < size; i++ {
		row := idx.vectors[i*idx.dim : (i+1)*idx.dim]
		var dist float32
		for j, q := range query {
			d := row[j] - q
			dist += d * d
		}
		neighbors[i] = Neighbor{Position: i, Distance: dist}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance == neighbors[j].Distance {
			return neighbors[i].Position < neighbors[j].Position
		}
		return neighbors[i].Distance < neighbors[j].Distance
	})

	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Save 将索引写入二进制文件
func (idx *FlatIndex) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建索引文件失败: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := w.Write(indexMagic[:]); err != nil {
		return err
	}
	header := []uint32{indexFormatVersion, uint32(idx.dim), uint32(idx.Size())}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, idx.vectors); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// LoadFlatIndex 从二进制文件加载索引，格式损坏时返回ErrCorruptIndex
func LoadFlatIndex(path string) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, magic)
	}

	var version, dim, count uint32
	for _, p := range []*uint32{&version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
		}
	}
	if version != indexFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorruptIndex, version)
	}
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero dimension", ErrCorruptIndex)
	}

	vectors := make([]float32, int(dim)*int(count))
	if err := binary.Read(r, binary.LittleEndian, vectors); err != nil {
		return nil, fmt.Errorf("%w: truncated vector data: %v", ErrCorruptIndex, err)
	}
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after %d vectors", ErrCorruptIndex, count)
	}

	return &FlatIndex{dim: int(dim), vectors: vectors}, nil
}
