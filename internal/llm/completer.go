package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aihub/rag-go/internal/config"
	"github.com/aihub/rag-go/internal/dashscope"
)

// Completer 文本补全接口，屏蔽具体LLM提供方
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NoContextPlaceholder 检索结果为空时填充的占位上下文
const NoContextPlaceholder = "No context found."

// BuildUserPrompt 将检索到的上下文与问题拼装成完整的用户提示词
func BuildUserPrompt(query string, contexts []string) string {
	contextBlock := NoContextPlaceholder
	if len(contexts) > 0 {
		contextBlock = strings.Join(contexts, "\n\n")
	}
	return fmt.Sprintf("%s\n\nQuestion: %s", contextBlock, query)
}

// NewCompleter 按配置选择LLM提供方
func NewCompleter(cfg *config.Config, ds *dashscope.Service) (Completer, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAICompleter(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIModel), nil
	case "dashscope":
		return NewDashScopeCompleter(ds, cfg.LLM.Model), nil
	case "ollama":
		return NewOllamaCompleter(cfg.LLM.OllamaHost, cfg.LLM.Model), nil
	default:
		return nil, fmt.Errorf("未知的LLM提供方: %s", cfg.LLM.Provider)
	}
}
