package knowledge

import "errors"

var (
	// ErrIndexNotAvailable 磁盘上没有可用索引，检索进入降级状态
	ErrIndexNotAvailable = errors.New("index not available, build an index first")

	// ErrNoDocuments 数据目录中没有可索引的文本
	ErrNoDocuments = errors.New("no documents found to index")

	// ErrDimensionMismatch 向量维度与索引维度不一致
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCorruptIndex 索引文件或chunk存储损坏、不成对
	ErrCorruptIndex = errors.New("index artifacts are corrupt or inconsistent")
)
