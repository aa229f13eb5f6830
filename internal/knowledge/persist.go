package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	indexFileName      = "index.bin"
	chunkStoreFileName = "documents.json"
)

// SaveIndexPair 原子地持久化索引和chunk存储。
// 两个文件先写入临时路径再依次rename，读取方通过条目数一致性检查发现半写状态。
func SaveIndexPair(dir string, index *FlatIndex, chunks []string) error {
	if index.Size() != len(chunks) {
		return fmt.Errorf("%w: index has %d entries, chunk store has %d", ErrCorruptIndex, index.Size(), len(chunks))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建索引目录失败: %w", err)
	}

	storePath := filepath.Join(dir, chunkStoreFileName)
	indexPath := filepath.Join(dir, indexFileName)
	storeTmp := storePath + ".tmp"
	indexTmp := indexPath + ".tmp"

	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("序列化chunk存储失败: %w", err)
	}
	if err := os.WriteFile(storeTmp, data, 0o644); err != nil {
		return fmt.Errorf("写入chunk存储失败: %w", err)
	}
	if err := index.Save(indexTmp); err != nil {
		os.Remove(storeTmp)
		return fmt.Errorf("写入向量索引失败: %w", err)
	}

	if err := os.Rename(storeTmp, storePath); err != nil {
		os.Remove(indexTmp)
		return err
	}
	if err := os.Rename(indexTmp, indexPath); err != nil {
		return err
	}
	return nil
}

// LoadIndexPair 加载持久化的索引和chunk存储。
// 文件缺失时返回os.ErrNotExist语义的错误；两者条目数不一致视为损坏。
func LoadIndexPair(dir string) (*FlatIndex, []string, error) {
	index, err := LoadFlatIndex(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, chunkStoreFileName))
	if err != nil {
		return nil, nil, err
	}
	var chunks []string
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, nil, fmt.Errorf("%w: chunk store unreadable: %v", ErrCorruptIndex, err)
	}

	if index.Size() != len(chunks) {
		return nil, nil, fmt.Errorf("%w: index has %d entries, chunk store has %d", ErrCorruptIndex, index.Size(), len(chunks))
	}
	return index, chunks, nil
}
