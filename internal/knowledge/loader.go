package knowledge

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/aihub/rag-go/internal/logger"
	"go.uber.org/zap"
)

// DocumentLoader 从目录加载并解析文档
type DocumentLoader struct {
	parsers *FileParserManager
}

// NewDocumentLoader 创建文档加载器
func NewDocumentLoader() *DocumentLoader {
	return &DocumentLoader{parsers: NewFileParserManager()}
}

// LoadDirectory 读取目录下的所有受支持文件（不递归），返回以空行分隔拼接的全文。
// 单个文件读取或解析失败只记录日志并跳过，不中断其余文件；
// 目录中没有任何文本时返回ErrNoDocuments。
func (l *DocumentLoader) LoadDirectory(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var texts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !l.parsers.Supports(name) {
			// 不支持的扩展名静默跳过
			continue
		}

		path := filepath.Join(dir, name)
		file, err := os.Open(path)
		if err != nil {
			logger.Error("打开文件失败，跳过", zap.String("file", name), zap.Error(err))
			continue
		}

		text, err := l.parsers.ParseFile(file, name)
		file.Close()
		if err != nil {
			logger.Error("解析文件失败，跳过", zap.String("file", name), zap.Error(err))
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}

	if len(texts) == 0 {
		logger.Warn("目录中没有找到可索引的文本", zap.String("dir", dir))
		return "", ErrNoDocuments
	}

	return strings.Join(texts, "\n\n"), nil
}
