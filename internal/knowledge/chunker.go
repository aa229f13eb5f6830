package knowledge

import (
	"strings"
)

// Chunk 表示分块后的文本结构
type Chunk struct {
	Index int
	Text  string
}

// Chunker 文本分块器，按固定大小+重叠切分，优先在自然边界断开
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// Split 将文本切分为多个chunk。
// 每个chunk不超过chunkSize个rune，相邻chunk之间重叠约chunkOverlap个rune。
// 切分点依次优先选择段落边界、行边界、句子边界、词边界，最后才做硬切。
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			c.appendChunk(&chunks, runes[start:])
			break
		}

		cut := c.findBoundary(runes, start, end)
		c.appendChunk(&chunks, runes[start:cut])

		next := cut - c.chunkOverlap
		if next <= start {
			// 重叠过大时强制前进，避免死循环
			next = cut
		}
		start = next
	}

	return chunks
}

func (c *Chunker) appendChunk(chunks *[]Chunk, runes []rune) {
	text := strings.TrimSpace(string(runes))
	if text == "" {
		return
	}
	*chunks = append(*chunks, Chunk{Index: len(*chunks), Text: text})
}

// findBoundary 在[minCut, end]范围内从后向前寻找最佳切分点。
// 回看窗口为chunk大小的20%，找不到任何边界时在end处硬切。
func (c *Chunker) findBoundary(runes []rune, start, end int) int {
	minCut := end - c.chunkSize/5
	if minCut <= start {
		minCut = start + 1
	}

	// 段落边界
	if cut := lastBoundary(runes, minCut, end, isParagraphBreak); cut > 0 {
		return cut
	}
	// 行边界
	if cut := lastBoundary(runes, minCut, end, func(rs []rune, i int) bool {
		return rs[i] == '\n'
	}); cut > 0 {
		return cut
	}
	// 句子边界
	if cut := lastBoundary(runes, minCut, end, isSentenceEnd); cut > 0 {
		return cut
	}
	// 词边界
	if cut := lastBoundary(runes, minCut, end, func(rs []rune, i int) bool {
		return rs[i] == ' ' || rs[i] == '\t'
	}); cut > 0 {
		return cut
	}

	return end
}

// lastBoundary 返回[minCut, end)内最靠后的边界切分点（边界符之后的位置），没有则返回0
func lastBoundary(runes []rune, minCut, end int, isBoundary func([]rune, int) bool) int {
	for i := end - 1; i >= minCut; i-- {
		if isBoundary(runes, i) {
			return i + 1
		}
	}
	return 0
}

func isParagraphBreak(runes []rune, i int) bool {
	return runes[i] == '\n' && i > 0 && runes[i-1] == '\n'
}

func isSentenceEnd(runes []rune, i int) bool {
	switch runes[i] {
	case '.', '!', '?', '。', '！', '？':
	default:
		return false
	}
	// 句号后需跟空白或位于文本末尾，避免切在小数点处
	return i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n'
}
